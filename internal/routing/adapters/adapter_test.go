package adapters

import (
	"errors"
	"testing"
)

func TestErrorTypeForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{429, "rate_limit_error"},
		{408, "timeout_error"},
		{401, "authentication_error"},
		{403, "permission_error"},
		{404, "not_found_error"},
		{529, "overloaded_error"},
		{500, "server_error"},
		{502, "server_error"},
		{400, "invalid_request_error"},
		{422, "invalid_request_error"},
	}
	for _, tt := range tests {
		if got := errorTypeForStatus(tt.status); got != tt.want {
			t.Errorf("errorTypeForStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestNewProviderError_BodyTypeWins(t *testing.T) {
	body := []byte(`{"error":{"type":"overloaded_error","message":"busy"}}`)
	pe := NewProviderError("anthropic", 500, body)
	if pe.Type != "overloaded_error" {
		t.Errorf("expected body type to override status-derived type, got %q", pe.Type)
	}
	if pe.StatusCode != 500 || pe.Vendor != "anthropic" {
		t.Errorf("unexpected error fields: %+v", pe)
	}
}

func TestNewProviderError_FallsBackToStatus(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"empty body", nil},
		{"non-json body", []byte("upstream timeout")},
		{"json without type", []byte(`{"error":{"message":"oops"}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := NewProviderError("openai", 429, tt.body)
			if pe.Type != "rate_limit_error" {
				t.Errorf("expected status-derived type, got %q", pe.Type)
			}
		})
	}
}

func TestProviderError_ErrorsAs(t *testing.T) {
	var err error = NewProviderError("openai", 503, nil)
	wrapped := errors.Join(errors.New("attempt failed"), err)

	var pe *ProviderError
	if !errors.As(wrapped, &pe) {
		t.Fatal("expected errors.As to find ProviderError through wrapping")
	}
	if pe.StatusCode != 503 {
		t.Errorf("expected status 503, got %d", pe.StatusCode)
	}
}
