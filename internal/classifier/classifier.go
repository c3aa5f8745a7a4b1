// Package classifier buckets inbound messages into the five ordinal
// complexity levels by calling a cheap LLM with a fixed few-shot prompt.
// Classification never fails a request: any error degrades to the medium
// default with a warning log.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/af-corp/compass-router/internal/config"
	"github.com/af-corp/compass-router/internal/types"
)

const (
	messageMaxChars = 500
	contextMaxChars = 200

	// Messages at or below this many whitespace tokens are treated as
	// short follow-ups that borrow their context's complexity.
	inheritTokenLimit = 5
)

// errNoConfig matches the upstream error text for a classifier with neither
// a per-config override nor a global default endpoint.
var errNoConfig = errors.New("OpenAI config not available")

var thinkTagPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// labelScanOrder is checked most-specific first so "hard" never matches
// inside "super_hard". Do not reorder.
var labelScanOrder = []types.Complexity{
	types.ComplexitySuperHard,
	types.ComplexitySuperEasy,
	types.ComplexityHard,
	types.ComplexityMedium,
	types.ComplexityEasy,
}

// Override redirects classification to a config-specific endpoint,
// taking precedence over the global classifier default.
type Override struct {
	Vendor  string
	Model   string
	BaseURL string
}

// Classifier calls the classification LLM and parses its answer.
type Classifier struct {
	cfg     func() config.ClassifierConfig
	vendors func() *config.VendorsConfig
	client  *http.Client
	logger  *slog.Logger
}

func New(cfg func() config.ClassifierConfig, vendors func() *config.VendorsConfig, logger *slog.Logger) *Classifier {
	return &Classifier{
		cfg:     cfg,
		vendors: vendors,
		// Per-attempt deadlines come from the config timeout via context;
		// the client itself carries no timeout.
		client: &http.Client{},
		logger: logger,
	}
}

// Classify assigns a complexity level to message. It never returns an error:
// classification failure degrades routing quality, not request availability.
func (c *Classifier) Classify(ctx context.Context, message, msgContext string, hasTools bool, ov *Override) types.ClassifyResult {
	start := time.Now()

	message = truncate(message, messageMaxChars)
	msgContext = truncate(msgContext, contextMaxChars)
	prompt := buildPrompt(message, msgContext)

	level := types.ComplexityMedium
	raw, err := c.invoke(ctx, prompt, ov)
	if err != nil {
		c.logger.Warn("complexity classification failed, defaulting to medium", "error", err)
	} else {
		level = extractComplexity(raw)
	}

	// Tool-capable requests are never trivial.
	if hasTools && level == types.ComplexitySuperEasy {
		level = types.ComplexityEasy
	}

	return types.ClassifyResult{
		Level:                level,
		LatencyMs:            time.Since(start).Milliseconds(),
		RawResponse:          raw,
		InheritedFromContext: msgContext != "" && len(strings.Fields(message)) <= inheritTokenLimit,
	}
}

// endpoint is the resolved LLM target for one classification call.
type endpoint struct {
	model   string
	baseURL string
	apiKey  string
	timeout time.Duration
}

// resolveEndpoint picks the classification target: config-specific override
// first, then the global classifier default.
func (c *Classifier) resolveEndpoint(ov *Override) (endpoint, error) {
	cfg := c.cfg()
	ep := endpoint{
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
	}
	if ep.timeout <= 0 {
		ep.timeout = 30 * time.Second
	}

	vendor := cfg.Vendor
	if ov != nil {
		if ov.Model != "" {
			ep.model = ov.Model
		}
		if ov.BaseURL != "" {
			ep.baseURL = ov.BaseURL
		}
		if ov.Vendor != "" {
			vendor = ov.Vendor
		}
	}

	// Fill gaps from the vendor endpoint table.
	if vendors := c.vendors(); vendors != nil {
		if vc, ok := vendors.Vendors[vendor]; ok {
			if ep.baseURL == "" {
				ep.baseURL = vc.BaseURL
			}
			if ep.apiKey == "" {
				ep.apiKey = vc.APIKey
			}
		}
	}

	if ep.baseURL == "" || ep.model == "" {
		return endpoint{}, errNoConfig
	}
	return ep, nil
}

func (c *Classifier) invoke(ctx context.Context, prompt string, ov *Override) (string, error) {
	ep, err := c.resolveEndpoint(ov)
	if err != nil {
		return "", err
	}

	cfg := c.cfg()
	body := chatCompletionRequest{
		Model:       ep.model,
		Messages:    []types.Message{{Role: "user", Content: prompt}},
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = 50
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal classify request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, ep.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, ep.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ep.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+ep.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("classify call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read classify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal classify response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("classifier returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// extractComplexity parses the raw model answer into a level. The whole-word
// scan order is load-bearing (see labelScanOrder); anything unmatched
// defaults to medium.
func extractComplexity(raw string) types.Complexity {
	cleaned := thinkTagPattern.ReplaceAllString(raw, "")
	cleaned = strings.ToLower(strings.TrimSpace(cleaned))

	if level, ok := types.ParseComplexity(cleaned); ok {
		return level
	}

	for _, label := range labelScanOrder {
		if wholeWordMatch(cleaned, string(label)) {
			return label
		}
	}
	return types.ComplexityMedium
}

func wholeWordMatch(s, word string) bool {
	pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return pattern.MatchString(s)
}

type chatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []types.Message `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message types.Message `json:"message"`
	} `json:"choices"`
}
