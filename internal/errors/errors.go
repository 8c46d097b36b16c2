// Package errors provides standardized domain errors with codes for the racing notes API.
//
// Usage:
//
//	// In services - return typed errors
//	if note == nil {
//	    return errors.NotFoundf("note %s not found", noteID)
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrFileTooLarge) {
//	    ...
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeStorage:
//	        // the user may retry the upload step
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeUnsupportedType  Code = "UNSUPPORTED_MEDIA_TYPE"
	CodeFileTooLarge     Code = "FILE_TOO_LARGE"
	CodeCompression      Code = "COMPRESSION_FAILED"
	CodeStorage          Code = "STORAGE_FAILED"
	CodeConflict         Code = "CONFLICT"
	CodePersistence      Code = "PERSISTENCE_FAILED"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeTokenExpired     Code = "TOKEN_EXPIRED"
	CodeInvalidReference Code = "INVALID_REFERENCE"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodeValidation, CodeInvalidReference:
		return http.StatusBadRequest
	case CodeUnsupportedType:
		return http.StatusUnsupportedMediaType
	case CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeCompression:
		return http.StatusUnprocessableEntity
	case CodeStorage:
		return http.StatusBadGateway
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a client can reasonably retry the same request.
// Storage failures are the only class the user is expected to retry by hand.
func (c Code) Retryable() bool {
	return c == CodeStorage || c == CodeRateLimited
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

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists    = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized     = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrValidation       = &Error{Code: CodeValidation, Message: "validation error"}
	ErrUnsupportedType  = &Error{Code: CodeUnsupportedType, Message: "unsupported media type"}
	ErrFileTooLarge     = &Error{Code: CodeFileTooLarge, Message: "file too large"}
	ErrCompression      = &Error{Code: CodeCompression, Message: "media compression failed"}
	ErrStorage          = &Error{Code: CodeStorage, Message: "media upload failed"}
	ErrConflict         = &Error{Code: CodeConflict, Message: "conflict"}
	ErrPersistence      = &Error{Code: CodePersistence, Message: "could not save changes"}
	ErrRateLimited      = &Error{Code: CodeRateLimited, Message: "too many requests"}
	ErrInternal         = &Error{Code: CodeInternal, Message: "internal error"}
	ErrTokenExpired     = &Error{Code: CodeTokenExpired, Message: "token expired"}
	ErrInvalidReference = &Error{Code: CodeInvalidReference, Message: "referenced record does not exist"}
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

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// AlreadyExistsf creates an already exists error with formatted message.
func AlreadyExistsf(format string, args ...any) *Error {
	return &Error{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// UnsupportedType creates an unsupported media type error.
func UnsupportedType(msg string) *Error {
	return &Error{Code: CodeUnsupportedType, Message: msg}
}

// FileTooLarge creates a file too large error.
func FileTooLarge(msg string) *Error {
	return &Error{Code: CodeFileTooLarge, Message: msg}
}

// Compression wraps a compression failure.
func Compression(err error, msg string) *Error {
	return &Error{Code: CodeCompression, Message: msg, cause: err}
}

// Storage wraps a blob storage failure.
func Storage(err error, msg string) *Error {
	return &Error{Code: CodeStorage, Message: msg, cause: err}
}

// Persistence wraps a database failure. The message stays generic; the cause is for logs.
func Persistence(err error) *Error {
	return &Error{Code: CodePersistence, Message: ErrPersistence.Message, cause: err}
}

// InvalidReferencef creates an invalid reference error with formatted message.
func InvalidReferencef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidReference, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// TokenExpired creates a token expired error.
func TokenExpired(msg string) *Error {
	return &Error{Code: CodeTokenExpired, Message: msg}
}

// RateLimited creates a rate limited error.
func RateLimited(msg string) *Error {
	return &Error{Code: CodeRateLimited, Message: msg}
}
