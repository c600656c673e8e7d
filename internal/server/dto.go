package server

import (
	"time"

	"github.com/receiptwise/expense-tracker/internal/entity"
)

type tokenRequest struct {
	UID string `json:"uid" validate:"required,min=1,max=128"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type receiptRequest struct {
	Date              string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	LocationName      string `json:"location_name" validate:"max=256"`
	Address           string `json:"address" validate:"max=512"`
	Items             string `json:"items" validate:"max=4096"`
	Amount            string `json:"amount" validate:"max=32"`
	NeedsConfirmation *bool  `json:"needs_confirmation"`
}

// apply copies the request onto a receipt. Empty strings clear text fields
// on update, matching what a form submit sends.
func (req *receiptRequest) apply(r *entity.Receipt, now time.Time) error {
	r.LocationName = req.LocationName
	r.Address = req.Address
	r.Items = req.Items

	if req.Date != "" {
		t, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return err
		}
		r.Date = &t
	} else {
		r.Date = nil
	}

	if req.Amount != "" {
		cents, err := entity.ParseAmount(req.Amount)
		if err != nil {
			return err
		}
		a := entity.FormatAmount(cents)
		r.Amount = &a
	} else {
		r.Amount = nil
	}

	if req.NeedsConfirmation != nil {
		r.NeedsConfirmation = *req.NeedsConfirmation
	} else {
		// Confirming by hand is the usual reason to edit a record.
		r.NeedsConfirmation = false
	}

	r.UpdatedAt = now
	return r.Validate(now)
}

type uploadResponse struct {
	Key      string `json:"key"`
	ImageURL string `json:"image_url"`
}
