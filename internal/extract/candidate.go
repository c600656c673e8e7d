package extract

import (
	"time"

	"github.com/receiptwise/expense-tracker/constants"
)

// Candidate is a tentative, confidence-scored guess at one field's value.
// Value carries the normalized string form (dates as YYYY-MM-DD); RawText is
// the matched text as recognized.
type Candidate struct {
	Kind       constants.FieldKind `json:"kind"`
	RawText    string              `json:"raw_text"`
	Value      string              `json:"value"`
	Confidence float32             `json:"confidence"`
	Fragments  []int               `json:"fragments,omitempty"`
}

// Field is a validated text field: either resolved with a value, or not.
type Field struct {
	Value      string  `json:"value"`
	Confidence float32 `json:"confidence"`
	Resolved   bool    `json:"resolved"`
}

// DateField is the validated transaction date.
type DateField struct {
	Value      time.Time `json:"value"`
	Confidence float32   `json:"confidence"`
	Resolved   bool      `json:"resolved"`
}

// ExtractionResult is the validator's verdict: one slot per field kind,
// resolved or not. Amount holds a canonical two-decimal string when resolved.
// NeedsConfirmation is true iff any of merchant, address, date, amount is
// unresolved; item text is free-form and does not trigger confirmation alone.
type ExtractionResult struct {
	Merchant          Field     `json:"merchant"`
	Address           Field     `json:"address"`
	Date              DateField `json:"date"`
	Amount            Field     `json:"amount"`
	Items             Field     `json:"items"`
	NeedsConfirmation bool      `json:"needs_confirmation"`
}
