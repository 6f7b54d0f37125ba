// Package domainerrors defines coded errors that services return to transport layers.
//
// Stores return sentinel errors (see pkg/platform/sentinel); services translate them
// into coded errors so handlers can map them to HTTP statuses without knowing about
// storage details.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for translation at the transport boundary.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_error"
	CodeInvalidInput Code = "invalid_input"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInvalidState Code = "invalid_state"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"

	// CodeConfiguration marks a misconfigured engine (weights, thresholds). Fatal:
	// processing must stop before any score is persisted.
	CodeConfiguration Code = "configuration_error"

	// CodePipelineFailure marks an unexpected failure while scoring or deciding.
	// The request is moved to failed and the error is surfaced for audit.
	CodePipelineFailure Code = "pipeline_failure"
)

// Error is a coded domain error. The message is safe to show to API clients for
// client-side codes; internal codes are never described in responses.
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

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// From returns the outermost coded error in the chain.
func From(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost coded error, or CodeInternal.
func CodeOf(err error) Code {
	if de, ok := From(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in the chain carries code.
func HasCode(err error, code Code) bool {
	de, ok := From(err)
	return ok && de.Code == code
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
