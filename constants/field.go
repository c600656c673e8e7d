package constants

// FieldKind identifies which receipt field a candidate is a guess for.
type FieldKind string

// Stable values (these exact strings cross the extractor/validator boundary).
const (
	FieldMerchant FieldKind = "merchant"
	FieldAddress  FieldKind = "address"
	FieldDate     FieldKind = "date"
	FieldAmount   FieldKind = "amount"
	FieldItem     FieldKind = "item"
)

var allFieldKinds = []FieldKind{
	FieldMerchant,
	FieldAddress,
	FieldDate,
	FieldAmount,
	FieldItem,
}

// FieldKindStrings returns the field kinds as plain strings, in a fixed order.
func FieldKindStrings() []string {
	result := make([]string, len(allFieldKinds))
	for i, k := range allFieldKinds {
		result[i] = string(k)
	}
	return result
}

// IsFieldKind reports whether s is one of the known field kinds.
func IsFieldKind(s string) bool {
	for _, k := range allFieldKinds {
		if string(k) == s {
			return true
		}
	}
	return false
}
