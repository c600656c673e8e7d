package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/receiptwise/expense-tracker/constants"
	"github.com/receiptwise/expense-tracker/internal/entity"
)

// ErrInvalidCandidates reports a candidate list that breaks the
// extractor/validator contract. Distinct from per-field rejection: a bad
// candidate value just leaves its field unresolved, a bad list is a bug.
var ErrInvalidCandidates = errors.New("candidate list violates contract")

// ConfidenceThreshold is the floor below which a candidate does not resolve
// its field.
const ConfidenceThreshold = 0.5

// Validator turns raw candidates into a validated extraction result. It is
// deterministic: the same candidate list and clock always produce the same
// result.
type Validator struct {
	threshold float32
	logger    *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{threshold: ConfidenceThreshold, logger: logger}
}

// WithThreshold overrides the confidence floor. Values outside (0, 1] are
// ignored and the default stays in effect.
func (v *Validator) WithThreshold(t float32) *Validator {
	if t > 0 && t <= 1 {
		v.threshold = t
	}
	return v
}

// Validate picks the best candidate per field kind, normalizes values, and
// decides whether the receipt needs manual confirmation. now is the upper
// bound for transaction dates.
func (v *Validator) Validate(cands []Candidate, now time.Time) (ExtractionResult, error) {
	if err := validateCandidates(cands); err != nil {
		return ExtractionResult{}, fmt.Errorf("%w: %v", ErrInvalidCandidates, err)
	}

	best := map[constants.FieldKind]Candidate{}
	for _, c := range cands {
		if c.Confidence < v.threshold {
			continue
		}
		if cur, ok := best[c.Kind]; !ok || c.Confidence > cur.Confidence {
			best[c.Kind] = c
		}
	}

	var res ExtractionResult
	res.Merchant = v.textField(best, constants.FieldMerchant)
	res.Address = v.textField(best, constants.FieldAddress)
	res.Items = v.textField(best, constants.FieldItem)
	res.Date = v.dateField(best, now)
	res.Amount = v.amountField(best)

	res.NeedsConfirmation = !res.Merchant.Resolved ||
		!res.Address.Resolved ||
		!res.Date.Resolved ||
		!res.Amount.Resolved
	return res, nil
}

func (v *Validator) textField(best map[constants.FieldKind]Candidate, kind constants.FieldKind) Field {
	c, ok := best[kind]
	if !ok || c.Value == "" {
		return Field{}
	}
	return Field{Value: c.Value, Confidence: c.Confidence, Resolved: true}
}

func (v *Validator) dateField(best map[constants.FieldKind]Candidate, now time.Time) DateField {
	c, ok := best[constants.FieldDate]
	if !ok {
		return DateField{}
	}
	t, err := time.Parse("2006-01-02", c.Value)
	if err != nil {
		v.logger.Warn("date candidate not normalized", "value", c.Value, "error", err)
		return DateField{}
	}
	if t.After(now) {
		v.logger.Warn("date candidate in the future", "value", c.Value)
		return DateField{}
	}
	return DateField{Value: t, Confidence: c.Confidence, Resolved: true}
}

// amountField normalizes the winning amount candidate to a canonical
// two-decimal string. Negative values and more than two fractional digits
// are rejected: the candidate loses and the field stays unresolved.
func (v *Validator) amountField(best map[constants.FieldKind]Candidate) Field {
	c, ok := best[constants.FieldAmount]
	if !ok {
		return Field{}
	}
	cents, err := entity.ParseAmount(c.Value)
	if err != nil {
		v.logger.Warn("amount candidate rejected", "value", c.Value, "error", err)
		return Field{}
	}
	return Field{Value: entity.FormatAmount(cents), Confidence: c.Confidence, Resolved: true}
}
