// Package apperr defines the engine's error taxonomy.
//
// Every failure the engine reports to a caller is an *Error carrying a Code.
// Callers compare with errors.Is against the sentinels below:
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
//
// Errors are always recoverable; none of them leaves shared state modified.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeParse        Code = "PARSE_ERROR"
	CodeNotFound     Code = "NOT_FOUND"
	CodePolicyDenied Code = "POLICY_DENIED"
	CodeInternal     Code = "INTERNAL"
)

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrValidation   = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrParse        = &Error{Code: CodeParse, Message: "parse failed"}
	ErrNotFound     = &Error{Code: CodeNotFound, Message: "not found"}
	ErrPolicyDenied = &Error{Code: CodePolicyDenied, Message: "policy denied"}
	ErrInternal     = &Error{Code: CodeInternal, Message: "internal error"}
)

// Error is the engine error type.
type Error struct {
	Code    Code
	Message string
	// Field names the offending field when known, e.g. "operations[1].selector".
	Field string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Validation creates a validation error for field.
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Field: field}
}

// Validationf creates a validation error with a formatted message.
func Validationf(field, format string, args ...any) *Error {
	return Validation(field, fmt.Sprintf(format, args...))
}

// Parse creates a parse error. field may be empty.
func Parse(field, message string, cause error) *Error {
	return &Error{Code: CodeParse, Message: message, Field: field, Cause: cause}
}

// NotFound creates a not-found error for a record kind and id.
func NotFound(kind, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %q not found", kind, id)}
}

// Internal wraps an infrastructure failure.
func Internal(message string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf("%s: %v", message, cause), Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain. Errors
// that expose their own code (such as policy denials) are honoured.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var coded interface{ ErrorCode() Code }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// FieldOf returns the offending field recorded in err, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
