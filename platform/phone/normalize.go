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

// Digits keeps an optional leading plus and the digits of input, dropping
// spaces, dashes, dots and parentheses.
func Digits(input string) string {
	trimmed := strings.TrimSpace(input)
	var b strings.Builder
	for i, r := range trimmed {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize returns the canonical form of a user supplied phone number:
// E.164 when the number parses as valid, otherwise its digits with an
// optional leading plus. ok is false when fewer than 7 digits remain.
func Normalize(input string) (normalized string, ok bool) {
	e164 := NormalizeE164(input)
	if strings.HasPrefix(e164, "+") && e164 == Digits(e164) {
		return e164, true
	}

	digits := Digits(input)
	count := len(strings.TrimPrefix(digits, "+"))
	if count < 7 || count > 15 {
		return "", false
	}
	return digits, true
}

// Plausible reports whether input looks like a real phone number rather than
// an arbitrary digit run: either phonenumbers accepts it as valid, or it
// carries between 10 and 15 digits.
func Plausible(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return false
	}
	if number, err := phonenumbers.Parse(trimmed, defaultRegion); err == nil && phonenumbers.IsValidNumber(number) {
		return true
	}
	count := len(strings.TrimPrefix(Digits(trimmed), "+"))
	return count >= 10 && count <= 15
}
