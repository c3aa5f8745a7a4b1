package types

import "time"

// ChatRequest is the canonical internal representation of an inbound chat request.
// All provider-specific formats are converted to/from this type.
type ChatRequest struct {
	// Identity
	RequestID string `json:"request_id"`
	BotID     string `json:"bot_id"`

	// Request content
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
	TopP        *float64  `json:"top_p,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
	Tools       []Tool    `json:"tools,omitempty"`

	// Protocol is the wire format the caller spoke. Chain execution uses it
	// to decide whether a model swap needs payload translation.
	Protocol Protocol `json:"-"`

	// Internal tracking
	ReceivedAt      time.Time `json:"-"`
	EstimatedTokens int       `json:"-"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Tool is a function-calling tool definition carried by the request.
// Presence alone matters for routing; the definition is forwarded opaquely.
type Tool struct {
	Type     string         `json:"type"`
	Function map[string]any `json:"function,omitempty"`
}

// HasTools reports whether the request carries tool definitions.
func (r *ChatRequest) HasTools() bool {
	return len(r.Tools) > 0
}

// LastUserMessage returns the content of the most recent user message plus
// the preceding non-system turns joined as classification context.
func (r *ChatRequest) LastUserMessage() (message, context string) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role != "user" {
			continue
		}
		message = r.Messages[i].Content
		for _, m := range r.Messages[:i] {
			if m.Role == "system" {
				continue
			}
			if context != "" {
				context += "\n"
			}
			context += m.Content
		}
		return message, context
	}
	return "", ""
}
