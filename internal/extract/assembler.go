package extract

import (
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/expense-tracker/internal/entity"
)

// Assemble builds a persistable receipt record from a validated extraction
// result. Unresolved fields map to their empty sentinels (nil date, nil
// amount, empty strings) so the record is storable regardless of how much
// the pipeline recovered.
func Assemble(res ExtractionResult, uid, imageRef string, now time.Time) *entity.Receipt {
	r := &entity.Receipt{
		ID:                uuid.New(),
		UID:               uid,
		ImageBucket:       imageRef,
		NeedsConfirmation: res.NeedsConfirmation,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if res.Merchant.Resolved {
		r.LocationName = res.Merchant.Value
	}
	if res.Address.Resolved {
		r.Address = res.Address.Value
	}
	if res.Items.Resolved {
		r.Items = res.Items.Value
	}
	if res.Date.Resolved {
		d := res.Date.Value
		r.Date = &d
	}
	if res.Amount.Resolved {
		a := res.Amount.Value
		r.Amount = &a
	}
	return r
}
