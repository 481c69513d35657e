// Package errors provides structured error types for sceneguard.
//
// Layout degradation is not an error. A conflict the resolver cannot clear is
// reported through a Degraded resolution status, and a reflow that cannot
// remove all overflow still returns its best-effort result. The codes in this
// package cover the cases where a caller handed the engine something it must
// reject: malformed bounds, empty time windows, unknown regions, illegal state
// moves, broken plan documents or configuration.
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND: Unknown element, scene or stored run
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidBounds, "element %q: x_max < x_min", key)
//	if errors.Is(err, errors.ErrCodeInvalidBounds) {
//	    // skip or replace the element
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidPlan, yamlErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput           Code = "INVALID_INPUT"
	ErrCodeInvalidBounds          Code = "INVALID_BOUNDS"
	ErrCodeInvalidTimeWindow      Code = "INVALID_TIME_WINDOW"
	ErrCodeInvalidElement         Code = "INVALID_ELEMENT"
	ErrCodeInvalidRegion          Code = "INVALID_REGION"
	ErrCodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	ErrCodeInvalidPlan            Code = "INVALID_PLAN"
	ErrCodeInvalidConfig          Code = "INVALID_CONFIG"
	ErrCodeInvalidPath            Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsInvalid reports whether err carries any INVALID_* code. Callers use it to
// decide whether an offending element can be skipped instead of failing a job.
func IsInvalid(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidBounds, ErrCodeInvalidTimeWindow,
		ErrCodeInvalidElement, ErrCodeInvalidRegion, ErrCodeInvalidStateTransition,
		ErrCodeInvalidPlan, ErrCodeInvalidConfig, ErrCodeInvalidPath:
		return true
	}
	return false
}
