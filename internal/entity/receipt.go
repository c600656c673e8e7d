package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Receipt represents a receipt for data transfer between layers.
//
// Date and Amount are nil while the field is unresolved; Amount is a
// canonical non-negative decimal string with at most two fractional digits.
type Receipt struct {
	ID                uuid.UUID  `json:"id"`
	UID               string     `json:"uid"`
	ImageBucket       string     `json:"image_bucket"`
	ImageURL          string     `json:"image_url,omitempty"`
	Date              *time.Time `json:"date,omitempty"`
	LocationName      string     `json:"location_name"`
	Address           string     `json:"address"`
	Items             string     `json:"items"`
	Amount            *string    `json:"amount,omitempty"`
	NeedsConfirmation bool       `json:"needs_confirmation"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Validate checks the record invariants: amount non-negative with at most two
// fractional digits, date not after now.
func (r *Receipt) Validate(now time.Time) error {
	if strings.TrimSpace(r.UID) == "" {
		return ErrMissingOwner
	}
	if r.Amount != nil {
		if _, err := ParseAmount(*r.Amount); err != nil {
			return err
		}
	}
	if r.Date != nil && r.Date.After(now) {
		return ErrFutureDate
	}
	return nil
}
