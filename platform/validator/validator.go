// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// strictEmailPattern accepts local@domain.tld with an alphabetic TLD of at least two letters.
var strictEmailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)

// Validator wraps the go-playground validator for structured validation.
// Using a struct allows for dependency injection and easier testing.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the strict_email tag registered.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("strict_email", func(fl validator.FieldLevel) bool {
		return IsStrictEmail(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

// IsStrictEmail reports whether value passes both the library email check
// and the local@domain.tld pattern.
func IsStrictEmail(value string) bool {
	if !strictEmailPattern.MatchString(value) {
		return false
	}
	return emailCheck.Var(value, "email") == nil
}

var emailCheck = validator.New()
