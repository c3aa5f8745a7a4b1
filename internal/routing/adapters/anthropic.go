package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/af-corp/compass-router/internal/config"
	"github.com/af-corp/compass-router/internal/types"
)

// AnthropicAdapter handles the Anthropic Messages API.
type AnthropicAdapter struct {
	vendor string
	cfg    config.VendorConfig
	client *http.Client
}

func NewAnthropicAdapter(vendor string, cfg config.VendorConfig, client *http.Client) *AnthropicAdapter {
	return &AnthropicAdapter{vendor: vendor, cfg: cfg, client: client}
}

func (a *AnthropicAdapter) Vendor() string           { return a.vendor }
func (a *AnthropicAdapter) Protocol() types.Protocol { return types.ProtocolAnthropic }
func (a *AnthropicAdapter) SupportsStreaming() bool  { return true }

func (a *AnthropicAdapter) TransformRequest(ctx context.Context, req *types.ChatRequest) (*http.Request, error) {
	// Convert canonical messages to Anthropic format
	var system string
	var messages []anthropicMessage
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		messages = append(messages, anthropicMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	// Anthropic requires max_tokens
	maxTokens := 4096
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	body := anthropicRequestBody{
		Model:       req.Model,
		Messages:    messages,
		System:      system,
		MaxTokens:   maxTokens,
		Stream:      req.Stream,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Tools:       anthropicTools(req.Tools),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	url := a.cfg.BaseURL + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.cfg.APIKey)
	if a.cfg.APIVersion != "" {
		httpReq.Header.Set("anthropic-version", a.cfg.APIVersion)
	}
	for k, v := range a.cfg.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	return httpReq, nil
}

func (a *AnthropicAdapter) TransformResponse(ctx context.Context, resp *http.Response) (*types.ChatResponse, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", a.vendor, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, NewProviderError(a.vendor, resp.StatusCode, body)
	}

	var antResp anthropicResponseBody
	if err := json.Unmarshal(body, &antResp); err != nil {
		return nil, fmt.Errorf("unmarshal %s response: %w", a.vendor, err)
	}

	// Convert Anthropic response to canonical format
	var content string
	for _, block := range antResp.Content {
		if block.Type == "text" {
			content = block.Text
			break
		}
	}

	return &types.ChatResponse{
		Model:  antResp.Model,
		Vendor: a.vendor,
		Choices: []types.Choice{
			{
				Index: 0,
				Message: types.Message{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: mapStopReason(antResp.StopReason),
			},
		},
		Usage: types.Usage{
			PromptTokens:     antResp.Usage.InputTokens,
			CompletionTokens: antResp.Usage.OutputTokens,
			TotalTokens:      antResp.Usage.InputTokens + antResp.Usage.OutputTokens,
		},
	}, nil
}

// TransformStreamChunk converts an Anthropic SSE data payload to the
// canonical (OpenAI) streaming format. Anthropic events: message_start,
// content_block_start, content_block_delta, message_delta, message_stop.
// content_block_delta (text) becomes a delta chunk, message_stop becomes [DONE].
func (a *AnthropicAdapter) TransformStreamChunk(chunk []byte) ([]byte, error) {
	var event struct {
		Type  string `json:"type"`
		Index int    `json:"index"`
		Delta struct {
			Type       string `json:"type"`
			Text       string `json:"text"`
			StopReason string `json:"stop_reason"`
		} `json:"delta"`
	}
	if err := json.Unmarshal(chunk, &event); err != nil {
		return nil, nil // skip unparseable chunks
	}

	switch event.Type {
	case "content_block_delta":
		if event.Delta.Type == "text_delta" {
			oaiChunk := openAIStreamChunk{
				Choices: []openAIStreamChoice{
					{
						Index: event.Index,
						Delta: openAIDelta{Content: event.Delta.Text},
					},
				},
			}
			data, err := json.Marshal(oaiChunk)
			if err != nil {
				return nil, fmt.Errorf("marshal stream chunk: %w", err)
			}
			return data, nil
		}
		return nil, nil

	case "message_delta":
		// Final chunk with stop reason
		finishReason := mapStopReason(event.Delta.StopReason)
		oaiChunk := openAIStreamChunk{
			Choices: []openAIStreamChoice{
				{
					Index:        0,
					Delta:        openAIDelta{},
					FinishReason: &finishReason,
				},
			},
		}
		data, err := json.Marshal(oaiChunk)
		if err != nil {
			return nil, fmt.Errorf("marshal finish chunk: %w", err)
		}
		return data, nil

	case "message_stop":
		// Signal end of stream — caller should send [DONE]
		return []byte("[DONE]"), nil

	default:
		// message_start, content_block_start, content_block_stop, ping — skip
		return nil, nil
	}
}

func (a *AnthropicAdapter) SendRequest(req *http.Request) (*http.Response, error) {
	return a.client.Do(req)
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequestBody struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Stream      bool               `json:"stream,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	TopP        *float64           `json:"top_p,omitempty"`
	Stop        []string           `json:"stop,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema,omitempty"`
}

// anthropicTools converts canonical function tools to the Messages API tool
// shape. The canonical form wraps name/description/parameters in a function
// object; Anthropic flattens them and renames parameters to input_schema.
func anthropicTools(tools []types.Tool) []anthropicTool {
	var out []anthropicTool
	for _, t := range tools {
		if t.Type != "function" || t.Function == nil {
			continue
		}
		at := anthropicTool{}
		if name, ok := t.Function["name"].(string); ok {
			at.Name = name
		}
		if desc, ok := t.Function["description"].(string); ok {
			at.Description = desc
		}
		if params, ok := t.Function["parameters"]; ok {
			at.InputSchema = params
		}
		out = append(out, at)
	}
	return out
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponseBody struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type,omitempty"`
	Role       string                  `json:"role,omitempty"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Content    []anthropicContentBlock `json:"content"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Canonical streaming format types
type openAIStreamChunk struct {
	Choices []openAIStreamChoice `json:"choices"`
}

type openAIStreamChoice struct {
	Index        int         `json:"index"`
	Delta        openAIDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason,omitempty"`
}

type openAIDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

func mapStopReason(reason string) string {
	switch reason {
	case "end_turn":
		return "stop"
	case "max_tokens":
		return "length"
	case "stop_sequence":
		return "stop"
	case "tool_use":
		return "tool_calls"
	default:
		return reason
	}
}

func anthropicStopReason(reason string) string {
	switch reason {
	case "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	case "tool_calls":
		return "tool_use"
	default:
		return reason
	}
}
