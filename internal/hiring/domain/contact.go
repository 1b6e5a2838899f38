package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"hiring_assistant_backend/platform/apperr"
	"hiring_assistant_backend/platform/phone"
	"hiring_assistant_backend/platform/sanitize"
	"hiring_assistant_backend/platform/validator"
)

const (
	minApplicantAge = 14
	maxApplicantAge = 100
	maxNameLength   = 120
)

// NormalizeEmail lowercases and trims raw and checks the local@domain.tld shape.
func NormalizeEmail(raw string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if !validator.IsStrictEmail(v) {
		return "", apperr.InvalidFormat("email")
	}
	return v, nil
}

// NormalizePhone reduces raw to digits with an optional leading plus.
func NormalizePhone(raw string) (string, error) {
	v, ok := phone.Normalize(raw)
	if !ok {
		return "", apperr.InvalidFormat("phone_number")
	}
	return v, nil
}

// NormalizeName strips markup and collapses whitespace.
func NormalizeName(raw string) (string, error) {
	v := sanitize.Text(raw)
	if v == "" || utf8.RuneCountInString(v) > maxNameLength {
		return "", apperr.InvalidFormat("full_name")
	}
	return v, nil
}

// ValidateAge rejects ages outside the accepted applicant range.
func ValidateAge(age int) error {
	if age < minApplicantAge || age > maxApplicantAge {
		return apperr.InvalidFormat("age")
	}
	return nil
}

// SetEmail stores a normalized email. A different value than the one being
// verified resets the email channel. Returns whether a reset happened.
func (s *Session) SetEmail(raw string, now time.Time) (bool, error) {
	v, err := NormalizeEmail(raw)
	if err != nil {
		return false, err
	}
	app := s.EnsureApplication()
	reset := s.resetChannelIfChanged(ChannelEmail, app.Email, v)
	app.Email = &v
	s.UpdatedAt = now
	return reset, nil
}

// SetPhone stores a normalized phone number with the same reset rule as SetEmail.
func (s *Session) SetPhone(raw string, now time.Time) (bool, error) {
	v, err := NormalizePhone(raw)
	if err != nil {
		return false, err
	}
	app := s.EnsureApplication()
	reset := s.resetChannelIfChanged(ChannelPhone, app.PhoneNumber, v)
	app.PhoneNumber = &v
	s.UpdatedAt = now
	return reset, nil
}

// ContactValue returns the stored value for ch, or "".
func (s *Session) ContactValue(ch Channel) string {
	if s.Application == nil {
		return ""
	}
	var v *string
	if ch == ChannelPhone {
		v = s.Application.PhoneNumber
	} else {
		v = s.Application.Email
	}
	if v == nil {
		return ""
	}
	return *v
}

func (s *Session) resetChannelIfChanged(ch Channel, old *string, next string) bool {
	if s.Verification == nil {
		return false
	}
	rec := s.Verification.Channel(ch)
	if rec.Status == ChannelNotSent && !rec.Verified {
		return false
	}
	changed := old != nil && *old != next
	stale := rec.ForVerification != "" && rec.ForVerification != next
	if !changed && !stale {
		return false
	}
	rec.reset()
	return true
}
