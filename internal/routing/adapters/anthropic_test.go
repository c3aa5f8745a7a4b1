package adapters

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/af-corp/compass-router/internal/config"
	"github.com/af-corp/compass-router/internal/types"
)

func TestAnthropicAdapter_TransformRequest(t *testing.T) {
	a := NewAnthropicAdapter("anthropic", config.VendorConfig{
		BaseURL:    "https://api.anthropic.com/v1",
		APIKey:     "sk-ant",
		APIVersion: "2023-06-01",
	}, http.DefaultClient)

	req := &types.ChatRequest{
		Model: "claude-sonnet-4",
		Messages: []types.Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
			{Role: "user", Content: "bye"},
		},
	}

	httpReq, err := a.TransformRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("TransformRequest: %v", err)
	}

	if httpReq.URL.String() != "https://api.anthropic.com/v1/messages" {
		t.Errorf("unexpected URL %s", httpReq.URL)
	}
	if got := httpReq.Header.Get("x-api-key"); got != "sk-ant" {
		t.Errorf("x-api-key = %q", got)
	}
	if got := httpReq.Header.Get("anthropic-version"); got != "2023-06-01" {
		t.Errorf("anthropic-version = %q", got)
	}

	var body anthropicRequestBody
	raw, _ := io.ReadAll(httpReq.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal request body: %v", err)
	}
	if body.System != "be brief" {
		t.Errorf("system = %q; system turns must be lifted out of messages", body.System)
	}
	if len(body.Messages) != 3 {
		t.Errorf("expected 3 non-system messages, got %d", len(body.Messages))
	}
	if body.MaxTokens != 4096 {
		t.Errorf("max_tokens must default to 4096, got %d", body.MaxTokens)
	}
}

func TestAnthropicAdapter_MaxTokensForwarded(t *testing.T) {
	a := NewAnthropicAdapter("anthropic", config.VendorConfig{BaseURL: "https://x"}, http.DefaultClient)
	mt := 512
	req := &types.ChatRequest{Model: "claude", MaxTokens: &mt, Messages: []types.Message{{Role: "user", Content: "hi"}}}

	httpReq, err := a.TransformRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("TransformRequest: %v", err)
	}
	var body anthropicRequestBody
	raw, _ := io.ReadAll(httpReq.Body)
	json.Unmarshal(raw, &body)
	if body.MaxTokens != 512 {
		t.Errorf("max_tokens = %d, want 512", body.MaxTokens)
	}
}

func TestAnthropicAdapter_ToolsForwarded(t *testing.T) {
	a := NewAnthropicAdapter("anthropic", config.VendorConfig{BaseURL: "https://x"}, http.DefaultClient)
	req := &types.ChatRequest{
		Model:    "claude",
		Messages: []types.Message{{Role: "user", Content: "weather in SF?"}},
		Tools: []types.Tool{
			{Type: "function", Function: map[string]any{
				"name":        "get_weather",
				"description": "Look up current weather",
				"parameters": map[string]any{
					"type":       "object",
					"properties": map[string]any{"city": map[string]any{"type": "string"}},
				},
			}},
			{Type: "web_search"}, // non-function entries are skipped
		},
	}

	httpReq, err := a.TransformRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("TransformRequest: %v", err)
	}
	var body anthropicRequestBody
	raw, _ := io.ReadAll(httpReq.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal request body: %v", err)
	}

	if len(body.Tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(body.Tools))
	}
	if body.Tools[0].Name != "get_weather" {
		t.Errorf("tool name = %q", body.Tools[0].Name)
	}
	if body.Tools[0].Description != "Look up current weather" {
		t.Errorf("tool description = %q", body.Tools[0].Description)
	}
	schema, ok := body.Tools[0].InputSchema.(map[string]any)
	if !ok || schema["type"] != "object" {
		t.Errorf("input_schema = %v; parameters must become input_schema", body.Tools[0].InputSchema)
	}
}

func TestRenderResponse(t *testing.T) {
	resp := &types.ChatResponse{
		RequestID: "req-1",
		Model:     "claude-sonnet-4",
		Vendor:    "anthropic",
		Choices: []types.Choice{
			{Message: types.Message{Role: "assistant", Content: "hello"}, FinishReason: "stop"},
		},
		Usage: types.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}

	raw, err := RenderResponse(resp, types.ProtocolAnthropic)
	if err != nil {
		t.Fatalf("RenderResponse: %v", err)
	}
	var body anthropicResponseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Type != "message" || body.Role != "assistant" {
		t.Errorf("type/role = %q/%q", body.Type, body.Role)
	}
	if len(body.Content) != 1 || body.Content[0].Text != "hello" {
		t.Errorf("content = %+v", body.Content)
	}
	if body.StopReason != "end_turn" {
		t.Errorf("stop_reason = %q, want end_turn", body.StopReason)
	}
	if body.Usage.InputTokens != 10 || body.Usage.OutputTokens != 5 {
		t.Errorf("usage = %+v", body.Usage)
	}

	// Canonical shape round-trips for the default protocol.
	raw, err = RenderResponse(resp, types.ProtocolOpenAI)
	if err != nil {
		t.Fatalf("RenderResponse: %v", err)
	}
	var canonical types.ChatResponse
	if err := json.Unmarshal(raw, &canonical); err != nil {
		t.Fatalf("unmarshal canonical: %v", err)
	}
	if canonical.Choices[0].FinishReason != "stop" {
		t.Errorf("finish_reason = %q", canonical.Choices[0].FinishReason)
	}
}

func TestAnthropicAdapter_TransformResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"id": "msg_1",
			"model": "claude-sonnet-4",
			"stop_reason": "max_tokens",
			"content": [{"type": "text", "text": "hello there"}],
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	a := NewAnthropicAdapter("anthropic", config.VendorConfig{BaseURL: srv.URL}, srv.Client())
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	out, err := a.TransformResponse(context.Background(), resp)
	if err != nil {
		t.Fatalf("TransformResponse: %v", err)
	}
	if len(out.Choices) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(out.Choices))
	}
	choice := out.Choices[0]
	if choice.Message.Role != "assistant" || choice.Message.Content != "hello there" {
		t.Errorf("unexpected message: %+v", choice.Message)
	}
	if choice.FinishReason != "length" {
		t.Errorf("stop_reason max_tokens must map to length, got %q", choice.FinishReason)
	}
	if out.Usage.TotalTokens != 15 {
		t.Errorf("total tokens = %d, want input+output", out.Usage.TotalTokens)
	}
}

func TestAnthropicAdapter_TransformStreamChunk(t *testing.T) {
	a := NewAnthropicAdapter("anthropic", config.VendorConfig{}, http.DefaultClient)

	tests := []struct {
		name        string
		chunk       string
		wantContent string
		wantDone    bool
		wantSkip    bool
	}{
		{
			name:        "text delta becomes canonical delta",
			chunk:       `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hi"}}`,
			wantContent: "hi",
		},
		{
			name:     "message_stop becomes done marker",
			chunk:    `{"type":"message_stop"}`,
			wantDone: true,
		},
		{
			name:     "ping skipped",
			chunk:    `{"type":"ping"}`,
			wantSkip: true,
		},
		{
			name:     "message_start skipped",
			chunk:    `{"type":"message_start","message":{}}`,
			wantSkip: true,
		},
		{
			name:     "garbage skipped",
			chunk:    `not json`,
			wantSkip: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := a.TransformStreamChunk([]byte(tt.chunk))
			if err != nil {
				t.Fatalf("TransformStreamChunk: %v", err)
			}
			if tt.wantSkip {
				if out != nil {
					t.Errorf("expected skip, got %s", out)
				}
				return
			}
			if tt.wantDone {
				if string(out) != "[DONE]" {
					t.Errorf("expected [DONE], got %s", out)
				}
				return
			}
			var chunk openAIStreamChunk
			if err := json.Unmarshal(out, &chunk); err != nil {
				t.Fatalf("unmarshal canonical chunk: %v", err)
			}
			if len(chunk.Choices) != 1 || chunk.Choices[0].Delta.Content != tt.wantContent {
				t.Errorf("unexpected chunk: %s", out)
			}
		})
	}
}

func TestAnthropicAdapter_StreamFinishReason(t *testing.T) {
	a := NewAnthropicAdapter("anthropic", config.VendorConfig{}, http.DefaultClient)
	out, err := a.TransformStreamChunk([]byte(`{"type":"message_delta","delta":{"stop_reason":"end_turn"}}`))
	if err != nil {
		t.Fatalf("TransformStreamChunk: %v", err)
	}
	var chunk openAIStreamChunk
	if err := json.Unmarshal(out, &chunk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if chunk.Choices[0].FinishReason == nil || *chunk.Choices[0].FinishReason != "stop" {
		t.Errorf("expected finish_reason stop, got %s", out)
	}
}

func TestMapStopReason(t *testing.T) {
	tests := []struct{ in, want string }{
		{"end_turn", "stop"},
		{"stop_sequence", "stop"},
		{"max_tokens", "length"},
		{"tool_use", "tool_use"},
	}
	for _, tt := range tests {
		if got := mapStopReason(tt.in); got != tt.want {
			t.Errorf("mapStopReason(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
