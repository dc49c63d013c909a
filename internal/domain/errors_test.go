package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name:     "error with type and message",
			err:      &APIError{Type: ErrorTypeInvalidRequest, Message: "bad request"},
			expected: "invalid_request: bad request",
		},
		{
			name:     "error with type, code, and message",
			err:      &APIError{Type: ErrorTypeRateLimit, Code: ErrorCodeRateLimitExceeded, Message: "rate limited"},
			expected: "rate_limit (rate_limit_exceeded): rate limited",
		},
		{
			name:     "error with cause",
			err:      &APIError{Type: ErrorTypeServer, Message: "boom", Cause: errors.New("disk full")},
			expected: "server: boom: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected int
	}{
		{
			name:     "invalid request",
			err:      &APIError{Type: ErrorTypeInvalidRequest},
			expected: http.StatusBadRequest,
		},
		{
			name:     "not found error",
			err:      &APIError{Type: ErrorTypeNotFound},
			expected: http.StatusNotFound,
		},
		{
			name:     "rate limit error",
			err:      &APIError{Type: ErrorTypeRateLimit},
			expected: http.StatusTooManyRequests,
		},
		{
			name:     "upstream error",
			err:      &APIError{Type: ErrorTypeUpstream},
			expected: http.StatusBadGateway,
		},
		{
			name:     "server error",
			err:      &APIError{Type: ErrorTypeServer},
			expected: http.StatusInternalServerError,
		},
		{
			name:     "unknown type",
			err:      &APIError{Type: "mystery"},
			expected: http.StatusInternalServerError,
		},
		{
			name:     "explicit status wins",
			err:      &APIError{Type: ErrorTypeServer, StatusCode: http.StatusServiceUnavailable},
			expected: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.expected {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestAsAPIError(t *testing.T) {
	validation := ErrInvalidRequest("All fields are required").WithCode(ErrorCodeMissingField)
	wrapped := fmt.Errorf("submit: %w", validation)

	if got := AsAPIError(wrapped); got != validation {
		t.Errorf("AsAPIError() = %v, want %v", got, validation)
	}

	plain := errors.New("socket closed")
	got := AsAPIError(plain)
	if got.Type != ErrorTypeServer {
		t.Errorf("AsAPIError().Type = %q, want %q", got.Type, ErrorTypeServer)
	}
	if !errors.Is(got, plain) {
		t.Error("AsAPIError() should wrap the original error")
	}
}

func TestWriteError_DoesNotLeakCause(t *testing.T) {
	rec := httptest.NewRecorder()
	err := ErrServer("Failed to send message").
		WithCode(ErrorCodeProcessingFailed).
		WithCause(errors.New("smtp: 535 authentication failed"))

	WriteError(rec, err)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["error"] != "Failed to send message" {
		t.Errorf("error = %q, want %q", body["error"], "Failed to send message")
	}
	if len(body) != 1 {
		t.Errorf("body has %d keys, want 1: %v", len(body), body)
	}
}
