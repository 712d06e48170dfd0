// Package errors provides standardized domain errors with codes for the feed server.
//
// Usage:
//
//	// In services - wrap collaborator failures in a coded error
//	profile, err := s.fetcher.FetchProfile(ctx, userID, lang)
//	if err != nil {
//	    return nil, errors.Wrap(err, errors.CodeUpstream, "fetch profile")
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrEmptyProfile) {
//	    ...
//	}
//
//	// Or use the Code directly for status mapping
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    status := domainErr.HTTPStatus()
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound       Code = "NOT_FOUND"
	CodeValidation     Code = "VALIDATION"
	CodeInternal       Code = "INTERNAL"
	CodeUpstream       Code = "UPSTREAM"
	CodeEmptyProfile   Code = "EMPTY_PROFILE"
	CodeInvalidDate    Code = "INVALID_DATE"
	CodeEnclosureProbe Code = "ENCLOSURE_PROBE"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
// Failures caused by pixiv (unreachable, unparseable, bad timestamps, failed
// probes) are gateway errors; an empty profile has no feed to build.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUpstream, CodeInvalidDate, CodeEnclosureProbe:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation     = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal       = &Error{Code: CodeInternal, Message: "internal error"}
	ErrUpstream       = &Error{Code: CodeUpstream, Message: "upstream error"}
	ErrEmptyProfile   = &Error{Code: CodeEmptyProfile, Message: "profile has no works"}
	ErrInvalidDate    = &Error{Code: CodeInvalidDate, Message: "invalid date"}
	ErrEnclosureProbe = &Error{Code: CodeEnclosureProbe, Message: "enclosure probe failed"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return Validation(msg).WithDetails(details)
}

// Upstream creates an upstream error.
func Upstream(msg string) *Error {
	return &Error{Code: CodeUpstream, Message: msg}
}

// EmptyProfile creates an empty profile error.
func EmptyProfile(msg string) *Error {
	return &Error{Code: CodeEmptyProfile, Message: msg}
}

// InvalidDatef creates an invalid date error with formatted message.
func InvalidDatef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidDate, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
