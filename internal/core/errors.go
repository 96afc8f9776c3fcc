// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data-shape errors: caller-visible hard failures
	ErrMissingField = &Error{Code: "MISSING_FIELD", Message: "required field absent from series"}
	ErrEmptyInput   = &Error{Code: "EMPTY_INPUT", Message: "bar series is empty"}
	ErrBadInput     = &Error{Code: "BAD_INPUT", Message: "malformed bar series"}

	// Internal logic errors: a bug, never a runtime condition to handle
	ErrInvariant = &Error{Code: "INVARIANT_VIOLATION", Message: "internal invariant violated"}

	// Lookup / access errors
	ErrNotFound     = &Error{Code: "NOT_FOUND", Message: "resource not found"}
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
