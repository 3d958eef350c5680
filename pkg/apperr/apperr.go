// Package apperr provides machine-coded domain errors shared by the stores, the services and
// the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code. It is what API clients see in the "error" field.
type Code string

const (
	CodeInternal        Code = "internal"
	CodeValidation      Code = "validation"
	CodeNotFound        Code = "not_found"
	CodeConflict        Code = "conflict"
	CodeReadOnly        Code = "read_only"
	CodeUnauthenticated Code = "unauthenticated"
	CodeForbidden       Code = "forbidden"
	CodeTooLarge        Code = "too_large"
	CodeUnsupportedType Code = "unsupported_media_type"

	// Payment errors
	CodeInvalidSignature Code = "invalid_signature"
	CodeUnknownGateway   Code = "unknown_gateway"
	CodeUnknownCheckout  Code = "unknown_checkout"
	CodeAmountMismatch   Code = "amount_mismatch"
	CodeAlreadyPaid      Code = "already_paid"

	// Booking errors
	CodeSlotTaken Code = "slot_taken"
)

// HTTPStatus maps codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation, CodeAmountMismatch:
		return http.StatusUnprocessableEntity
	case CodeNotFound, CodeUnknownGateway, CodeUnknownCheckout:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyPaid, CodeSlotTaken:
		return http.StatusConflict
	case CodeReadOnly:
		return http.StatusServiceUnavailable
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidSignature:
		return http.StatusBadRequest
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeUnsupportedType:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type.
type Error struct {
	Code    Code              // Machine-readable error code
	Message string            // Internal message (for logs)
	Fields  map[string]string // Per-field validation messages, returned to the client
	Cause   error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil && e.Message != "" {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Code)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrConflict         = &Error{Code: CodeConflict}
	ErrReadOnly         = &Error{Code: CodeReadOnly, Message: "application is in read-only mode"}
	ErrUnauthenticated  = &Error{Code: CodeUnauthenticated}
	ErrValidation       = &Error{Code: CodeValidation}
	ErrAlreadyPaid      = &Error{Code: CodeAlreadyPaid}
	ErrInvalidSignature = &Error{Code: CodeInvalidSignature}
	ErrUnknownGateway   = &Error{Code: CodeUnknownGateway}
	ErrUnknownCheckout  = &Error{Code: CodeUnknownCheckout}
	ErrAmountMismatch   = &Error{Code: CodeAmountMismatch}
	ErrSlotTaken        = &Error{Code: CodeSlotTaken}
)

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NotFound reports a missing resource of the given kind.
func NotFound(what string) *Error {
	return &Error{Code: CodeNotFound, Message: what + " not found"}
}

// Validation creates a validation error from per-field messages.
func Validation(fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: "validation failed", Fields: fields}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// FieldsOf returns the validation fields of the first *Error in err's chain.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// Check collects validation failures.
//
//	var c apperr.Check
//	c.Require("name", name != "", "is required")
//	if err := c.Err(); err != nil { ... }
type Check struct {
	fields map[string]string
}

// Require records msg for field unless ok holds. The first message per field wins.
func (c *Check) Require(field string, ok bool, msg string) {
	if ok {
		return
	}
	if c.fields == nil {
		c.fields = make(map[string]string)
	}
	if _, exists := c.fields[field]; !exists {
		c.fields[field] = msg
	}
}

// Err returns a validation error when any requirement failed.
func (c *Check) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return Validation(c.fields)
}
