// Package apperr defines the error taxonomy shared by the API handlers and the core services.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a transport-independent error code surfaced in the response envelope.
type Code string

const (
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeBadRequest          Code = "BAD_REQUEST"
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeRateLimitExceeded   Code = "RATE_LIMIT_EXCEEDED"
	CodeInsufficientCredits Code = "INSUFFICIENT_CREDITS"
	CodeFileTooLarge        Code = "FILE_TOO_LARGE"
	CodeInvalidFileType     Code = "INVALID_FILE_TYPE"
	CodeInternal            Code = "INTERNAL_ERROR"
	CodeServiceUnavailable  Code = "SERVICE_UNAVAILABLE"
	CodeConflict            Code = "CONFLICT"
)

// Error is an application error carrying a taxonomy code and an optional details payload.
type Error struct {
	Code    Code
	Message string
	Details any
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

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetails attaches a details payload and returns the same error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// Wrap creates an Error that keeps cause in its chain.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

func Unauthorized(message string) *Error { return New(CodeUnauthorized, message) }
func Forbidden(message string) *Error    { return New(CodeForbidden, message) }
func NotFound(message string) *Error     { return New(CodeNotFound, message) }
func BadRequest(message string) *Error   { return New(CodeBadRequest, message) }
func Validation(message string) *Error   { return New(CodeValidation, message) }
func Conflict(message string) *Error     { return New(CodeConflict, message) }
func Internal(message string) *Error     { return New(CodeInternal, message) }

// InsufficientCredits reports a credit shortfall.
func InsufficientCredits(required, remaining int) *Error {
	return New(CodeInsufficientCredits,
		fmt.Sprintf("insufficient credits: need %d, have %d", required, remaining)).
		WithDetails(map[string]int{"required": required, "remaining": remaining})
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the taxonomy code of err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatus returns the HTTP status code for a taxonomy code.
func HTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeInsufficientCredits:
		return http.StatusPaymentRequired
	case CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeInvalidFileType:
		return http.StatusUnsupportedMediaType
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
