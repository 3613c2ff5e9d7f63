package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUpstreamError   = errors.New("upstream error")
	ErrRateLimited     = errors.New("rate limited")
	ErrVersionConflict = errors.New("version conflict")
	ErrConfiguration   = errors.New("configuration error")
)

// APIError represents a structured error for API responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a 404 error for missing resources.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// NewValidationError creates a 400 error for invalid input.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: http.StatusBadRequest,
		Err:        ErrInvalidRequest,
	}
}

// NewUnauthorizedError creates a 401 error for auth failures.
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:       "UNAUTHORIZED",
		Message:    reason,
		StatusCode: http.StatusUnauthorized,
		Err:        ErrUnauthorized,
	}
}

// NewUpstreamError creates a 502 error for backend failures.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       "UPSTREAM_ERROR",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: http.StatusBadGateway,
		Err:        fmt.Errorf("%w: %v", ErrUpstreamError, err),
	}
}

// NewConflictError creates a 409 error for writes against a stale entity version.
// The caller has to re-read the entity and retry with the current version.
func NewConflictError(resource, detail string) *APIError {
	return &APIError{
		Code:       "CONCURRENT_MODIFICATION",
		Message:    fmt.Sprintf("%s was modified concurrently: %s", resource, detail),
		StatusCode: http.StatusConflict,
		Err:        ErrVersionConflict,
	}
}

// NewConfigurationError creates a 500 error for missing or invalid service settings.
func NewConfigurationError(reason string) *APIError {
	return &APIError{
		Code:       "CONFIGURATION_ERROR",
		Message:    reason,
		StatusCode: http.StatusInternalServerError,
		Err:        ErrConfiguration,
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewRateLimitError creates a 429 error for rate limiting.
func NewRateLimitError(service string) *APIError {
	return &APIError{
		Code:       "RATE_LIMITED",
		Message:    fmt.Sprintf("%s rate limit exceeded, please retry later", service),
		StatusCode: http.StatusTooManyRequests,
		Err:        ErrRateLimited,
	}
}
