// Package errors provides structured error types for CaMML.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the API and the search engine
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures and corrupted structural invariants
//   - CAPACITY_EXCEEDED / OVERFLOW: hard representation limits
//   - LEARNER_FAILED: a local model learner could not parameterize a parent set
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeCapacity, "graph of %d nodes exceeds %d", n, 64)
//	if errors.Is(err, errors.ErrCodeCapacity) {
//	    // fall back to sampling
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeLearner, origErr, "node %d", node)
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
	ErrCodeInvalidArc    Code = "INVALID_ARC"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"

	// Hard limits
	ErrCodeCapacity Code = "CAPACITY_EXCEEDED"
	ErrCodeOverflow Code = "OVERFLOW"

	// Model learner errors
	ErrCodeLearner Code = "LEARNER_FAILED"

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
// LearnerError values match ErrCodeLearner.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error carries no code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var le *LearnerError
	if errors.As(err, &le) {
		return le.Code()
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

// LearnerError reports that a local model learner could not parameterize
// a node given a parent set, e.g. because the number of parent-state
// combinations exceeds what the data can support.
type LearnerError struct {
	Learner string // Learner name
	Node    int    // Child variable
	Parents []int  // Parent variables
	Reason  string
}

// Error implements the error interface.
func (e *LearnerError) Error() string {
	return fmt.Sprintf("learner %s: node %d with parents %v: %s", e.Learner, e.Node, e.Parents, e.Reason)
}

// Code returns the error code for this error type.
func (e *LearnerError) Code() Code {
	return ErrCodeLearner
}
