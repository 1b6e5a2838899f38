// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer
// maps them to status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates invalid input data.
	KindValidation
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindBadRequest indicates a malformed or invalid request.
	KindBadRequest
	// KindInternal indicates an unexpected internal error.
	KindInternal
	// KindMissingRequiredField indicates contact facts are absent at a gating point.
	KindMissingRequiredField
	// KindInvalidFormat indicates a malformed email or phone number.
	KindInvalidFormat
	// KindExternalUnavailable indicates a collaborator call failed or timed out.
	KindExternalUnavailable
	// KindAlreadyCompleted indicates a duplicate one-shot operation.
	KindAlreadyCompleted
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		return "bad_request"
	case KindInternal:
		return "internal"
	case KindMissingRequiredField:
		return "missing_required_field"
	case KindInvalidFormat:
		return "invalid_format"
	case KindExternalUnavailable:
		return "external_unavailable"
	case KindAlreadyCompleted:
		return "already_completed"
	default:
		return "unknown"
	}
}

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest, KindInvalidFormat, KindMissingRequiredField:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindAlreadyCompleted:
		return http.StatusConflict
	case KindExternalUnavailable:
		return http.StatusBadGateway
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation and returns the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails sets response details and returns the error.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// BadRequest creates a bad request error.
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// MissingRequiredField reports the named fields as absent.
func MissingRequiredField(fields ...string) *Error {
	return New(KindMissingRequiredField, "missing required fields").WithDetails(fields)
}

// InvalidFormat creates an invalid format error for the named field.
func InvalidFormat(field string) *Error {
	return New(KindInvalidFormat, "invalid "+field+" format").WithDetails(field)
}

// ExternalUnavailable wraps a failed collaborator call.
func ExternalUnavailable(collaborator string, err error) *Error {
	return Wrap(KindExternalUnavailable, collaborator+" unavailable", err)
}

// AlreadyCompleted creates an already completed error.
func AlreadyCompleted(message string) *Error {
	return New(KindAlreadyCompleted, message)
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is found.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// MissingFields returns the field names carried by a MissingRequiredField error.
func MissingFields(err error) []string {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindMissingRequiredField {
		return nil
	}
	fields, _ := e.Details.([]string)
	return fields
}
