// Package errors defines the error taxonomy shared by the perimeter services.
// Every error carries a stable code and the HTTP status it maps to at the edge.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeTokenInvalid       Code = "token_invalid"
	CodeTokenExpired       Code = "token_expired"
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeCallNotPermitted   Code = "call_not_permitted"
	CodeRemoteCallFailed   Code = "remote_call_failed"
	CodeServiceUnavailable Code = "service_unavailable"
	CodeInvalidRequest     Code = "invalid_request"
	CodeInvalidConfig      Code = "invalid_config"
	CodeNotFound           Code = "not_found"
	CodeUnknown            Code = "unknown"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// AppError represents a structured error with an HTTP mapping
type AppError interface {
	error

	// Code returns the stable error code
	Code() Code

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Description returns a human-readable description safe to show to clients
	Description() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause returns a copy of the error carrying cause
	WithCause(cause error) AppError

	// WithMessage returns a copy of the error with an internal message
	WithMessage(message string) AppError
}

// ================================================================================
// Base Error Implementation
// ================================================================================

type baseError struct {
	code        Code
	httpStatus  int
	description string
	message     string
	cause       error
}

// Error implements the error interface
func (e *baseError) Error() string {
	msg := e.description
	if e.message != "" {
		msg = e.message
	}
	if e.cause != nil {
		return msg + ": " + e.cause.Error()
	}
	return msg
}

func (e *baseError) Code() Code          { return e.code }
func (e *baseError) HTTPStatus() int     { return e.httpStatus }
func (e *baseError) Description() string { return e.description }
func (e *baseError) Unwrap() error       { return e.cause }

// WithCause adds a cause error to the error chain
func (e *baseError) WithCause(cause error) AppError {
	cp := *e
	cp.cause = cause
	return &cp
}

// WithMessage sets the internal message. It is logged, never sent to clients.
func (e *baseError) WithMessage(message string) AppError {
	cp := *e
	cp.message = message
	return &cp
}

// Is reports whether target carries the same code, so that copies produced by
// WithCause still match the package sentinels.
func (e *baseError) Is(target error) bool {
	var t *baseError
	if !stderrors.As(target, &t) {
		return false
	}
	return t.code == e.code
}

// NewError creates a new AppError with the specified parameters
func NewError(code Code, httpStatus int, description string) AppError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
	}
}

// ================================================================================
// Sentinel Errors
// ================================================================================

var (
	// ErrTokenInvalid is returned for bad signatures, wrong algorithms or malformed tokens
	ErrTokenInvalid = NewError(CodeTokenInvalid, http.StatusUnauthorized, "token is invalid")

	// ErrTokenExpired is returned when now is at or past the token expiry
	ErrTokenExpired = NewError(CodeTokenExpired, http.StatusUnauthorized, "token has expired")

	// ErrInvalidCredentials is returned when the identity store rejects a login
	ErrInvalidCredentials = NewError(CodeInvalidCredentials, http.StatusUnauthorized, "invalid username or password")

	// ErrCallNotPermitted is returned by an open circuit breaker
	ErrCallNotPermitted = NewError(CodeCallNotPermitted, http.StatusServiceUnavailable, "call not permitted")

	// ErrRemoteCallFailed wraps transient failures of a remote collaborator
	ErrRemoteCallFailed = NewError(CodeRemoteCallFailed, http.StatusBadGateway, "remote call failed")

	// ErrServiceUnavailable is returned when a dependency cannot be reached
	ErrServiceUnavailable = NewError(CodeServiceUnavailable, http.StatusServiceUnavailable, "service unavailable")

	// ErrInvalidRequest is returned for malformed request bodies
	ErrInvalidRequest = NewError(CodeInvalidRequest, http.StatusBadRequest, "invalid request")

	// ErrInvalidConfig is returned when configuration fails validation
	ErrInvalidConfig = NewError(CodeInvalidConfig, http.StatusInternalServerError, "invalid configuration")

	// ErrNotFound is returned when a record does not exist
	ErrNotFound = NewError(CodeNotFound, http.StatusNotFound, "not found")

	// ErrUnknown covers any other failure
	ErrUnknown = NewError(CodeUnknown, http.StatusInternalServerError, "internal server error")
)

// ================================================================================
// Helpers
// ================================================================================

// Is is a passthrough to the standard library
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is a passthrough to the standard library
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// New is a passthrough to the standard library
func New(text string) error {
	return stderrors.New(text)
}

// From returns err as an AppError, classifying anything unrecognised as ErrUnknown.
func From(err error) AppError {
	if err == nil {
		return nil
	}
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithCause(err)
}
