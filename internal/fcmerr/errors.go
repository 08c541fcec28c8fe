// Package fcmerr defines the error taxonomy for the adjustment engine.
package fcmerr

import "fmt"

// Code identifies the class of an adjustment error.
type Code string

const (
	// CodeInvalidModel marks a structurally or semantically invalid model
	// (unknown concept/connection references, missing target values,
	// min/max inversions, and similar construction-time defects).
	CodeInvalidModel Code = "INVALID_MODEL"

	// CodeInvalidInput marks an invalid AdjustmentInput (bad time window,
	// non-positive generation size, inconsistent stop condition).
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeSinkError marks a failure returned by a SaveResult sink.
	CodeSinkError Code = "SINK_ERROR"
)

// Error is the error type returned across package boundaries by
// internal/model and internal/adjustment.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error carrying a wrapped cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// InvalidModel builds a CodeInvalidModel error.
func InvalidModel(message string) *Error {
	return New(CodeInvalidModel, message)
}

// InvalidModelf builds a CodeInvalidModel error with a formatted message.
func InvalidModelf(format string, args ...any) *Error {
	return New(CodeInvalidModel, fmt.Sprintf(format, args...))
}

// InvalidInput builds a CodeInvalidInput error.
func InvalidInput(message string) *Error {
	return New(CodeInvalidInput, message)
}

// InvalidInputf builds a CodeInvalidInput error with a formatted message.
func InvalidInputf(format string, args ...any) *Error {
	return New(CodeInvalidInput, fmt.Sprintf(format, args...))
}

// SinkError wraps an error returned by a SaveResult sink. The cause is
// forwarded unchanged; sinks are free to return whatever error type fits
// their transport (a *pgconn.PgError, a websocket close error, and so on).
func SinkError(cause error) *Error {
	return Wrap(CodeSinkError, "save result sink failed", cause)
}

// Is supports errors.Is against the sentinel Code values, e.g.
// errors.Is(err, fcmerr.InvalidModel("")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
