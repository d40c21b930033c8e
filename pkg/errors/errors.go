// Package errors provides structured error types for the footpredict client.
//
// This package defines error codes and types that enable:
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes mirror the outcomes of a single request attempt plus the terminal
// state of a whole operation:
//   - TIMEOUT: an attempt exceeded its deadline
//   - NETWORK_ERROR: the backend could not be reached
//   - HTTP_STATUS: the backend answered with a non-2xx status (see [StatusError])
//   - PARSE_ERROR: a response body was not valid data
//   - ATTEMPTS_EXHAUSTED: every attempt failed and nothing was cached (see [ExhaustedError])
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "home team is required")
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "GET %s", path)
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
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Attempt outcomes
	ErrCodeTimeout    Code = "TIMEOUT"
	ErrCodeNetwork    Code = "NETWORK_ERROR"
	ErrCodeHTTPStatus Code = "HTTP_STATUS"
	ErrCodeParse      Code = "PARSE_ERROR"

	// Terminal and protective states
	ErrCodeExhausted   Code = "ATTEMPTS_EXHAUSTED"
	ErrCodeCircuitOpen Code = "CIRCUIT_OPEN"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// coder is implemented by error types that carry their own code.
type coder interface {
	Code() Code
}

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

// Is reports whether any error in err's chain has the given code.
// Both *Error and typed errors such as *StatusError are considered, so an
// ExhaustedError caused by a timeout matches ErrCodeExhausted and ErrCodeTimeout.
func Is(err error, code Code) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if c := codeOf(err); c != "" && c == code {
			return true
		}
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if no coded error is in the chain.
func GetCode(err error) Code {
	for ; err != nil; err = errors.Unwrap(err) {
		if c := codeOf(err); c != "" {
			return c
		}
	}
	return ""
}

func codeOf(err error) Code {
	switch e := err.(type) {
	case *Error:
		return e.Code
	case coder:
		return e.Code()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var ex *ExhaustedError
	if errors.As(err, &ex) {
		return fmt.Sprintf("%s failed after %d attempts", ex.Op, ex.Attempts)
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// StatusError reports a completed response whose status was outside the
// success range. Body holds the (possibly truncated) response text.
type StatusError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", ErrCodeHTTPStatus, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrCodeHTTPStatus, e.Status, e.Body)
}

// Code returns the error code for this error type.
func (e *StatusError) Code() Code { return ErrCodeHTTPStatus }

// ClientError reports whether the status is in the 4xx range.
func (e *StatusError) ClientError() bool { return e.Status >= 400 && e.Status < 500 }

// ExhaustedError is returned when every attempt of an operation failed and
// no cached value was available to fall back on. Last is the error of the
// final attempt.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

// Exhausted creates an ExhaustedError for op.
func Exhausted(op string, attempts int, last error) *ExhaustedError {
	return &ExhaustedError{Op: op, Attempts: attempts, Last: last}
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("%s: %s failed after %d attempt", ErrCodeExhausted, e.Op, e.Attempts)
	if e.Attempts != 1 {
		msg += "s"
	}
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

// Unwrap returns the last attempt error.
func (e *ExhaustedError) Unwrap() error { return e.Last }

// Code returns the error code for this error type.
func (e *ExhaustedError) Code() Code { return ErrCodeExhausted }
