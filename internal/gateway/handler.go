// Package gateway implements the hot request path: classify, resolve,
// budget-check, execute the fallback chain, and account usage.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/af-corp/compass-router/internal/budget"
	"github.com/af-corp/compass-router/internal/classifier"
	"github.com/af-corp/compass-router/internal/config"
	"github.com/af-corp/compass-router/internal/httputil"
	"github.com/af-corp/compass-router/internal/ratelimit"
	"github.com/af-corp/compass-router/internal/routing"
	"github.com/af-corp/compass-router/internal/routing/adapters"
	"github.com/af-corp/compass-router/internal/store"
	"github.com/af-corp/compass-router/internal/telemetry"
	"github.com/af-corp/compass-router/internal/types"
)

// Store is the slice of the persistence layer the hot path needs.
type Store interface {
	GetFallbackChain(ctx context.Context, chainID string) (*types.FallbackChain, error)
	GetPricing(ctx context.Context, model string) (*types.ModelPricing, error)
	InsertUsage(ctx context.Context, rec *types.UsageRecord) error
}

// Handler holds dependencies for the router HTTP handlers.
type Handler struct {
	classifier *classifier.Classifier
	resolver   *routing.Resolver
	runner     *routing.ChainRunner
	registry   *routing.Registry
	store      Store
	guard      *budget.Guard
	limiter    *ratelimit.Limiter
	metrics    *telemetry.Metrics
	cfg        func() *config.Config
	vendors    func() *config.VendorsConfig
}

func NewHandler(
	cls *classifier.Classifier,
	resolver *routing.Resolver,
	runner *routing.ChainRunner,
	registry *routing.Registry,
	st Store,
	guard *budget.Guard,
	limiter *ratelimit.Limiter,
	metrics *telemetry.Metrics,
	cfg func() *config.Config,
	vendors func() *config.VendorsConfig,
) *Handler {
	return &Handler{
		classifier: cls,
		resolver:   resolver,
		runner:     runner,
		registry:   registry,
		store:      st,
		guard:      guard,
		limiter:    limiter,
		metrics:    metrics,
		cfg:        cfg,
		vendors:    vendors,
	}
}

// ChatCompletions handles POST /v1/chat/completions
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()
	cfg := h.cfg()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var req types.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	req.RequestID = reqID
	req.Protocol = types.ProtocolOpenAI
	req.ReceivedAt = receivedAt

	if req.BotID == "" {
		httputil.WriteBadRequestError(w, reqID, "bot_id is required")
		return
	}
	if len(req.Messages) == 0 {
		httputil.WriteBadRequestError(w, reqID, "messages is required")
		return
	}

	if h.limiter != nil && cfg.Routing.BotRPMLimit > 0 {
		limit, _ := h.limiter.CheckBot(r.Context(), req.BotID, int(cfg.Routing.BotRPMLimit))
		if !limit.Allowed {
			slog.Warn("rate limit exceeded",
				"request_id", reqID, "bot_id", req.BotID,
				"limit_rpm", cfg.Routing.BotRPMLimit)
			if h.metrics != nil {
				h.metrics.RecordRateLimitHit(req.BotID)
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(limit.RetryAfter.Seconds())))
			httputil.WriteRateLimitError(w, reqID,
				fmt.Sprintf("Rate limit exceeded: %d requests per minute", cfg.Routing.BotRPMLimit))
			return
		}
	}

	routeCfg, err := h.resolver.Config(r.Context(), cfg.Routing.DefaultConfigID)
	if err != nil {
		slog.Error("routing config unavailable",
			"request_id", reqID, "config_id", cfg.Routing.DefaultConfigID, "error", err)
		httputil.WriteServiceUnavailableError(w, reqID, "Routing configuration unavailable")
		return
	}

	message, msgContext := req.LastUserMessage()
	cls := h.classifier.Classify(r.Context(), message, msgContext, req.HasTools(), classifierOverride(routeCfg))
	if h.metrics != nil {
		h.metrics.RecordClassification(string(cls.Level), cls.InheritedFromContext,
			float64(cls.LatencyMs), routeCfg.ClassifierVendor)
	}

	ref, err := h.resolver.Target(routeCfg, cls.Level, req.HasTools())
	if err != nil {
		slog.Error("complexity resolution failed",
			"request_id", reqID, "config_id", routeCfg.ConfigID,
			"level", string(cls.Level), "error", err)
		httputil.WriteServiceUnavailableError(w, reqID, "Routing configuration unavailable")
		return
	}

	var budgetStatus types.BudgetStatus
	if h.guard != nil {
		budgetStatus = h.guard.Check(r.Context(), req.BotID)
		if budgetStatus.ThresholdCrossed || budgetStatus.Exceeded() {
			kind := "threshold"
			if budgetStatus.Exceeded() {
				kind = "exceeded"
			}
			if h.metrics != nil {
				h.metrics.RecordBudgetAlert(req.BotID, kind)
			}
			w.Header().Set("X-Budget-Alert", kind)
		}
	}

	chain := h.buildChain(r.Context(), ref, cfg.Routing.DefaultChainID)

	if req.Stream {
		h.handleStream(w, r, reqID, chain, &req, cls)
		return
	}

	ctx := r.Context()
	if cfg.Routing.DefaultTimeout > 0 {
		// Overall deadline across the whole chain. Trigger matching treats
		// this as caller cancellation, not a per-attempt timeout.
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Routing.DefaultTimeout)
		defer cancel()
	}

	result, err := h.runner.Execute(ctx, chain, &req, h.invoke)
	if err != nil {
		h.writeChainError(w, reqID, chain, result, err)
		h.recordOutcome(&req, cls, chain, result, statusOf(err), receivedAt, nil)
		return
	}

	resp := result.Response
	resp.RequestID = reqID
	resp.Routing = types.RoutingInfo{
		Complexity:     cls.Level,
		ConfigID:       routeCfg.ConfigID,
		ChainID:        chain.ChainID,
		ChainIndex:     result.Index,
		AttemptsUsed:   result.Attempts,
		BudgetAlert:    budgetStatus.ThresholdCrossed,
		BudgetExceeded: budgetStatus.Exceeded(),
	}
	resp.EstimatedCostUSD = h.estimateCost(r.Context(), resp)

	h.accountUsage(r.Context(), &req, resp)
	h.recordOutcome(&req, cls, chain, result, "200", receivedAt, resp)

	totalDuration := time.Since(receivedAt)
	slog.Info("request completed",
		"request_id", reqID,
		"bot_id", req.BotID,
		"complexity", string(cls.Level),
		"model_served", resp.Model,
		"vendor", resp.Vendor,
		"chain_id", chain.ChainID,
		"chain_index", result.Index,
		"attempts", result.Attempts,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"estimated_cost_usd", resp.EstimatedCostUSD,
		"duration_ms", totalDuration.Milliseconds(),
		"stream", false,
	)

	// The body goes out in the shape the serving attempt selected:
	// preserve_protocol pins the caller's shape, otherwise a mid-chain
	// vendor swap may change it to the target's native one.
	payload, err := adapters.RenderResponse(resp, resp.Protocol)
	if err != nil {
		httputil.WriteInternalError(w, reqID, "Failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// invoke issues one chain attempt through the vendor's protocol adapter.
func (h *Handler) invoke(ctx context.Context, ref types.ModelRef, protocol types.Protocol, req *types.ChatRequest) (*types.ChatResponse, error) {
	adapter, ok := h.registry.Resolve(ref, h.vendors())
	if !ok {
		return nil, fmt.Errorf("no adapter for vendor %q", ref.Vendor)
	}

	attempt := *req
	attempt.Model = ref.Model
	attempt.Stream = false

	httpReq, err := adapter.TransformRequest(ctx, &attempt)
	if err != nil {
		return nil, fmt.Errorf("prepare %s request: %w", ref.Vendor, err)
	}
	httpResp, err := adapter.SendRequest(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send %s request: %w", ref.Vendor, err)
	}
	resp, err := adapter.TransformResponse(ctx, httpResp)
	if err != nil {
		return nil, err
	}
	resp.Protocol = protocol
	return resp, nil
}

// buildChain assembles the execution chain: the resolved target leads, the
// configured chain supplies the alternates and the trigger policy. A missing
// or inactive chain degrades to a single direct attempt.
func (h *Handler) buildChain(ctx context.Context, ref types.ModelRef, chainID string) *types.FallbackChain {
	direct := &types.FallbackChain{
		ChainID: "direct",
		Models:  []types.ModelRef{ref},
	}
	if chainID == "" {
		return direct
	}

	configured, err := h.store.GetFallbackChain(ctx, chainID)
	if err != nil {
		if !store.IsNotFound(err) {
			slog.Warn("fallback chain lookup failed", "chain_id", chainID, "error", err)
		}
		return direct
	}
	if !configured.IsActive {
		return direct
	}

	models := []types.ModelRef{ref}
	for _, m := range configured.Models {
		if m.Vendor == ref.Vendor && m.Model == ref.Model {
			continue
		}
		models = append(models, m)
	}

	chain := *configured
	chain.Models = models
	return &chain
}

// estimateCost prices the response's token usage. Unknown models cost zero.
func (h *Handler) estimateCost(ctx context.Context, resp *types.ChatResponse) float64 {
	pricing, err := h.store.GetPricing(ctx, resp.Model)
	if err != nil {
		return 0
	}
	in := float64(resp.Usage.PromptTokens) * pricing.InputPrice / 1_000_000
	out := float64(resp.Usage.CompletionTokens) * pricing.OutputPrice / 1_000_000
	return in + out
}

// accountUsage appends the usage record and bumps the budget counters.
func (h *Handler) accountUsage(ctx context.Context, req *types.ChatRequest, resp *types.ChatResponse) {
	rec := &types.UsageRecord{
		BotID:            req.BotID,
		Vendor:           resp.Vendor,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		CostUSD:          resp.EstimatedCostUSD,
	}
	if err := h.store.InsertUsage(ctx, rec); err != nil {
		slog.Error("usage record insert failed",
			"request_id", req.RequestID, "bot_id", req.BotID, "error", err)
	}
	if h.guard != nil {
		if err := h.guard.RecordSpend(ctx, req.BotID, resp.EstimatedCostUSD); err != nil {
			slog.Warn("budget counter update failed",
				"request_id", req.RequestID, "bot_id", req.BotID, "error", err)
		}
	}
}

func (h *Handler) recordOutcome(req *types.ChatRequest, cls types.ClassifyResult, chain *types.FallbackChain, result *routing.ChainResult, status string, receivedAt time.Time, resp *types.ChatResponse) {
	if h.metrics == nil {
		return
	}
	labels := telemetry.RequestLabels{
		Bot:        req.BotID,
		Status:     status,
		Complexity: string(cls.Level),
		DurationMs: float64(time.Since(receivedAt).Milliseconds()),
	}
	if resp != nil {
		labels.Model = resp.Model
		labels.Vendor = resp.Vendor
		labels.PromptTokens = resp.Usage.PromptTokens
		labels.CompletionTokens = resp.Usage.CompletionTokens
		labels.CostUSD = resp.EstimatedCostUSD
	}
	h.metrics.RecordRequest(labels)

	if result != nil && result.Index >= 0 && result.Index < len(chain.Models) {
		outcome := "failure"
		if resp != nil {
			outcome = "success"
		}
		h.metrics.RecordChainAttempt(chain.ChainID, chain.Models[result.Index].Vendor, outcome)
	}
	if resp == nil && result != nil && result.Exhausted {
		h.metrics.RecordChainExhausted(chain.ChainID)
	}
}

// writeChainError maps a failed chain execution to a client response. Vendor
// failures keep their original status; everything else is a 503.
func (h *Handler) writeChainError(w http.ResponseWriter, reqID string, chain *types.FallbackChain, result *routing.ChainResult, err error) {
	slog.Error("chain execution failed",
		"request_id", reqID, "chain_id", chain.ChainID,
		"attempts", result.Attempts, "error", err)

	var pe *adapters.ProviderError
	if errors.As(err, &pe) {
		httputil.WriteUpstreamError(w, reqID, pe.StatusCode, pe.Type, pe.Error())
		return
	}
	if errors.Is(err, routing.ErrChainExhausted) {
		httputil.WriteServiceUnavailableError(w, reqID, "All routing targets unavailable")
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		httputil.WriteError(w, reqID, http.StatusGatewayTimeout, "timeout_error", "upstream_timeout", "Upstream request timed out")
		return
	}
	httputil.WriteServiceUnavailableError(w, reqID, "Routing target request failed")
}

func statusOf(err error) string {
	var pe *adapters.ProviderError
	if errors.As(err, &pe) {
		return strconv.Itoa(pe.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "504"
	}
	return "503"
}

// classifierOverride lifts a config's classifier fields into an override.
func classifierOverride(cfg *types.ComplexityRoutingConfig) *classifier.Override {
	if cfg.ClassifierVendor == "" && cfg.ClassifierModel == "" && cfg.ClassifierBaseURL == "" {
		return nil
	}
	return &classifier.Override{
		Vendor:  cfg.ClassifierVendor,
		Model:   cfg.ClassifierModel,
		BaseURL: cfg.ClassifierBaseURL,
	}
}
