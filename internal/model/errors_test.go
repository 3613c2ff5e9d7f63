package model

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "without wrapped error",
			err: &APIError{
				Code:    "TEST_ERROR",
				Message: "something went wrong",
			},
			want: "TEST_ERROR: something went wrong",
		},
		{
			name: "with wrapped error",
			err: &APIError{
				Code:    "TEST_ERROR",
				Message: "something went wrong",
				Err:     errors.New("underlying cause"),
			},
			want: "TEST_ERROR: something went wrong (underlying cause)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &APIError{
		Code:    "TEST",
		Message: "test",
		Err:     underlying,
	}

	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlying)
	}

	errNoWrap := &APIError{Code: "TEST", Message: "test"}
	if errNoWrap.Unwrap() != nil {
		t.Error("Unwrap() should return nil when no wrapped error")
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantCode   string
		wantStatus int
		sentinel   error
	}{
		{"not found", NewNotFoundError("cart"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"validation", NewValidationError("items", "empty"), "VALIDATION_ERROR", http.StatusBadRequest, ErrInvalidRequest},
		{"unauthorized", NewUnauthorizedError("bad token"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"upstream", NewUpstreamError("commercetools", errors.New("boom")), "UPSTREAM_ERROR", http.StatusBadGateway, ErrUpstreamError},
		{"conflict", NewConflictError("cart", "version 3 expected"), "CONCURRENT_MODIFICATION", http.StatusConflict, ErrVersionConflict},
		{"configuration", NewConfigurationError("missing key"), "CONFIGURATION_ERROR", http.StatusInternalServerError, ErrConfiguration},
		{"rate limited", NewRateLimitError("Stripe"), "RATE_LIMITED", http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.wantStatus)
			}
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("error should wrap %v", tt.sentinel)
			}
		})
	}
}

func TestNewValidationError_Message(t *testing.T) {
	err := NewValidationError("shipping_address.country", "not supported")
	want := "invalid shipping_address.country: not supported"
	if err.Message != want {
		t.Errorf("Message = %q, want %q", err.Message, want)
	}
}

func TestAPIError_ErrorsAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("adding line items: %w", NewConflictError("cart", "stale"))

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As should find APIError in chain")
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Errorf("StatusCode = %d, want 409", apiErr.StatusCode)
	}
	if !errors.Is(wrapped, ErrVersionConflict) {
		t.Error("wrapped error should match ErrVersionConflict")
	}
}

func TestNewInternalError(t *testing.T) {
	cause := errors.New("db down")
	err := NewInternalError(cause)

	if err.Message != "an internal error occurred" {
		t.Errorf("Message = %q, should not leak cause", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("internal error should wrap cause")
	}
}
