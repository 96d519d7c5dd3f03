// Package apperror provides the error kinds surfaced at the HTTP boundary.
// Each AppError carries a status code, a machine-readable type and a message
// that is safe to show to the client.
//
// Infrastructure errors must never reach the client verbatim. Wrap them with
// NewInternal, which keeps the cause for logging and shows a generic message.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types, one per kind in the taxonomy.
const (
	TypeValidation     = "validation_error"
	TypeConflict       = "conflict"
	TypeUnauthorized   = "unauthorized"
	TypeMisconfigured  = "server_misconfigured"
	TypeCSRF           = "csrf_error"
	TypeRateLimited    = "too_many_requests"
	TypeInfrastructure = "internal_error"
)

// AppError is the base error type for all boundary errors.
type AppError struct {
	// Code is the HTTP status code.
	Code int `json:"-"`

	// Type classifies the error for clients.
	Type string `json:"type"`

	// Message is safe to show to the client.
	Message string `json:"error"`

	// Internal holds the underlying error for logging. Never exposed.
	Internal error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Internal
}

// Expected reports whether the error is part of normal client interaction
// (bad input, bad credentials) rather than a server-side fault.
func (e *AppError) Expected() bool {
	return e.Code < http.StatusInternalServerError
}

// NewValidation creates a 400 error for malformed or missing input.
func NewValidation(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Type: TypeValidation, Message: message}
}

// NewConflict creates a 400 error for a duplicate unique key. Conflicts are
// reported as 400 to match the registration contract.
func NewConflict(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Type: TypeConflict, Message: message}
}

// NewUnauthorized creates a 401 error.
func NewUnauthorized(message string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Type: TypeUnauthorized, Message: message}
}

// NewMisconfigured creates a 500 error for a server configuration defect.
func NewMisconfigured(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeMisconfigured,
		Message:  "server misconfigured",
		Internal: err,
	}
}

// NewCSRF creates a 403 error for a missing or invalid CSRF proof.
func NewCSRF(message string) *AppError {
	return &AppError{Code: http.StatusForbidden, Type: TypeCSRF, Message: message}
}

// NewTooManyRequests creates a 429 error.
func NewTooManyRequests() *AppError {
	return &AppError{
		Code:    http.StatusTooManyRequests,
		Type:    TypeRateLimited,
		Message: "too many requests, please try again later",
	}
}

// NewInternal creates a 500 error. The real error is kept for logging but the
// client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeInfrastructure,
		Message:  "an unexpected error occurred",
		Internal: err,
	}
}

// As returns the AppError in err's chain, or wraps err with NewInternal.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}
