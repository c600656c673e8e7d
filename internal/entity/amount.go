package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingOwner   = errors.New("receipt has no owning user")
	ErrFutureDate     = errors.New("receipt date is in the future")
	ErrBadAmount      = errors.New("amount is not a valid decimal")
	ErrNegativeAmount = errors.New("amount is negative")
	ErrAmountScale    = errors.New("amount has more than two fractional digits")
)

// ParseAmount parses a monetary string into cents. Currency symbols, commas
// and surrounding whitespace are tolerated; negative values and more than two
// fractional digits are rejected.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$£€ ")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrBadAmount
	}
	if s[0] == '-' {
		return 0, ErrNegativeAmount
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" || len(frac) > 2 {
		if len(frac) > 2 {
			return 0, ErrAmountScale
		}
		return 0, ErrBadAmount
	}

	var units int64
	for _, c := range whole {
		if c < '0' || c > '9' {
			return 0, ErrBadAmount
		}
		units = units*10 + int64(c-'0')
	}
	cents := units * 100
	mult := int64(10)
	for _, c := range frac {
		if c < '0' || c > '9' {
			return 0, ErrBadAmount
		}
		cents += int64(c-'0') * mult
		mult /= 10
	}
	return cents, nil
}

// FormatAmount renders cents as a canonical two-decimal string.
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
