package service

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned for numbers that cannot be normalized.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone converts a user-typed number to E.164.  Non-digits are
// dropped; a leading "0" marks a national number and is replaced by
// countryCode, and a leading "00" is the international prefix.  The
// result must carry 8 to 15 digits.
//
//	"050-123 4567", "972" -> "+972501234567"
//	"+1 (415) 555-0100", "972" -> "+14155550100"
func NormalizePhone(raw, countryCode string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case strings.HasPrefix(digits, "00"):
		digits = digits[2:] // international dialling prefix
	case strings.HasPrefix(digits, "0"):
		digits = countryCode + digits[1:]
	}
	if len(digits) < 8 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}
	return "+" + digits, nil
}
