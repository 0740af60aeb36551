package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig  = "CONFIG"
	ErrResolve = "RESOLVE"
	ErrConnect = "CONNECT"
	ErrTimeout = "TIMEOUT"
	ErrRender  = "RENDER"
	ErrSource  = "SOURCE"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Messages follow the error design used throughout the CLI:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrSource code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrSource,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface with formatted output.
func (e *Error) Error() string {
	var b strings.Builder

	// First line: failure symbol + main message
	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	// Include cause if present (why it failed)
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	// Include suggestion if present (how to fix)
	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Code == code
	}
	return false
}

// Retryable reports whether the error represents a condition worth retrying:
// source resolution, connection, and timeout failures are transient; config
// errors are not.
func Retryable(err error) bool {
	var verr *Error
	if errors.As(err, &verr) {
		switch verr.Code {
		case ErrResolve, ErrConnect, ErrTimeout, ErrSource:
			return true
		}
		return false
	}
	// Unclassified errors from the source layer are treated as transient.
	return err != nil
}
