package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestReceiptValidate(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	amount := "23.45"
	past := now.AddDate(0, -1, 0)

	r := &Receipt{
		ID:     uuid.New(),
		UID:    "alice",
		Date:   &past,
		Amount: &amount,
	}
	assert.NoError(t, r.Validate(now))
}

func TestReceiptValidateMissingOwner(t *testing.T) {
	now := time.Now()
	r := &Receipt{ID: uuid.New(), UID: "   "}
	assert.ErrorIs(t, r.Validate(now), ErrMissingOwner)
}

func TestReceiptValidateFutureDate(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 1)
	r := &Receipt{ID: uuid.New(), UID: "alice", Date: &future}
	assert.ErrorIs(t, r.Validate(now), ErrFutureDate)
}

func TestReceiptValidateBadAmount(t *testing.T) {
	now := time.Now()
	for in, want := range map[string]error{
		"23.456": ErrAmountScale,
		"-1.00":  ErrNegativeAmount,
		"nope":   ErrBadAmount,
	} {
		amt := in
		r := &Receipt{ID: uuid.New(), UID: "alice", Amount: &amt}
		assert.ErrorIs(t, r.Validate(now), want, "amount %q", in)
	}
}

func TestReceiptValidateUnresolvedFields(t *testing.T) {
	// nil date and amount are the unresolved sentinels and always pass.
	r := &Receipt{ID: uuid.New(), UID: "alice"}
	assert.NoError(t, r.Validate(time.Now()))
}
