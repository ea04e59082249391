// Package errors provides structured errors with stable codes for the
// capture analysis pipeline. Codes survive wrapping so transport layers
// and callers can match on them with errors.As.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes as constants
const (
	ErrCodeUnsafePath       = "UNSAFE_PATH"
	ErrCodeCaptureTooLarge  = "CAPTURE_TOO_LARGE"
	ErrCodeParse            = "PARSE_ERROR"
	ErrCodeTimeout          = "CAPTURE_TIMEOUT"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAnalysisDisabled = "ANALYSIS_DISABLED"
	ErrCodeBackpressure     = "BACKPRESSURE"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// StructuredError is an error with a stable code and optional details
// that callers can act on without parsing the message.
type StructuredError struct {
	Code    string
	Message string
	Details map[string]interface{}
	cause   error
}

// New creates a StructuredError with the given code and message.
func New(code, message string) *StructuredError {
	return &StructuredError{Code: code, Message: message}
}

// Newf creates a StructuredError with a formatted message.
func Newf(code, format string, args ...interface{}) *StructuredError {
	return &StructuredError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a StructuredError that wraps cause. The cause is reachable
// via errors.Unwrap / errors.Is.
func Wrap(code, message string, cause error) *StructuredError {
	return &StructuredError{Code: code, Message: message, cause: cause}
}

// Wrapf creates a StructuredError with a formatted message that wraps
// cause.
func Wrapf(code string, cause error, format string, args ...interface{}) *StructuredError {
	return &StructuredError{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// WithDetail attaches a key/value detail to the error and returns it.
func (e *StructuredError) WithDetail(key string, value interface{}) *StructuredError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *StructuredError) Unwrap() error {
	return e.cause
}

// Is matches two StructuredErrors by code.
func (e *StructuredError) Is(target error) bool {
	t, ok := target.(*StructuredError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// AsStructured returns the StructuredError in err's chain, or nil when
// there is none.
func AsStructured(err error) *StructuredError {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// CodeOf returns the structured error code of err, or ErrCodeInternal when
// err carries no code.
func CodeOf(err error) string {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given structured error code.
func HasCode(err error, code string) bool {
	var se *StructuredError
	return stderrors.As(err, &se) && se.Code == code
}
