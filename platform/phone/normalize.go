// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// Digits strips everything but digits from a phone number.
func Digits(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LastTen returns the last 10 digits of a phone number, the US national
// significant number. Shorter inputs are returned as-is.
func LastTen(input string) string {
	digits := Digits(input)
	if len(digits) <= 10 {
		return digits
	}
	return digits[len(digits)-10:]
}

// SameNumber reports whether two phone numbers refer to the same US line,
// comparing their last 10 digits. Used by the call authorization check.
func SameNumber(a, b string) bool {
	la, lb := LastTen(a), LastTen(b)
	return la != "" && la == lb
}
