// Package adapters translates between the canonical chat request/response
// and each vendor's wire protocol. A fallback chain that swaps vendors
// mid-request crosses protocols through these translations.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/af-corp/compass-router/internal/types"
)

// ProviderAdapter transforms requests/responses between the canonical format
// and one vendor's API format.
type ProviderAdapter interface {
	Vendor() string
	Protocol() types.Protocol
	TransformRequest(ctx context.Context, req *types.ChatRequest) (*http.Request, error)
	TransformResponse(ctx context.Context, resp *http.Response) (*types.ChatResponse, error)
	TransformStreamChunk(chunk []byte) ([]byte, error)
	SupportsStreaming() bool
	// SendRequest sends an HTTP request using the vendor's configured client.
	SendRequest(req *http.Request) (*http.Response, error)
}

// RenderResponse marshals a canonical response into the wire shape the
// serving chain attempt selected. Anthropic gets a Messages-style body;
// every other protocol gets the canonical (OpenAI-style) shape.
func RenderResponse(resp *types.ChatResponse, protocol types.Protocol) ([]byte, error) {
	if protocol != types.ProtocolAnthropic {
		return json.Marshal(resp)
	}

	out := anthropicResponseBody{
		ID:    resp.RequestID,
		Type:  "message",
		Role:  "assistant",
		Model: resp.Model,
	}
	if len(resp.Choices) > 0 {
		c := resp.Choices[0]
		out.Content = []anthropicContentBlock{{Type: "text", Text: c.Message.Content}}
		out.StopReason = anthropicStopReason(c.FinishReason)
	}
	out.Usage.InputTokens = resp.Usage.PromptTokens
	out.Usage.OutputTokens = resp.Usage.CompletionTokens
	return json.Marshal(out)
}

// ProviderError is a non-2xx vendor reply, classified so fallback chains can
// match it against their trigger sets.
type ProviderError struct {
	Vendor     string
	StatusCode int
	Type       string
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s returned status %d (%s): %s", e.Vendor, e.StatusCode, e.Type, e.Body)
}

// NewProviderError builds a classified error from a vendor reply, preferring
// the error type embedded in the body over the status-derived one.
func NewProviderError(vendor string, statusCode int, body []byte) *ProviderError {
	errType := errorTypeForStatus(statusCode)
	var parsed struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Type != "" {
		errType = parsed.Error.Type
	}
	return &ProviderError{
		Vendor:     vendor,
		StatusCode: statusCode,
		Type:       errType,
		Body:       string(body),
	}
}

func errorTypeForStatus(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limit_error"
	case status == http.StatusRequestTimeout:
		return "timeout_error"
	case status == http.StatusUnauthorized:
		return "authentication_error"
	case status == http.StatusForbidden:
		return "permission_error"
	case status == http.StatusNotFound:
		return "not_found_error"
	case status == 529:
		return "overloaded_error"
	case status >= 500:
		return "server_error"
	default:
		return "invalid_request_error"
	}
}
