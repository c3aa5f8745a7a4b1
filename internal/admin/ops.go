package admin

import (
	"net/http"
	"strconv"

	"github.com/af-corp/compass-router/internal/classifier"
	"github.com/af-corp/compass-router/internal/store"
	"github.com/af-corp/compass-router/internal/types"
)

type selectModelRequest struct {
	StrategyID      string   `json:"strategy_id"`
	AvailableModels []string `json:"available_models"`
	Scenario        string   `json:"scenario,omitempty"`
}

// SelectModel runs a cost-strategy selection over the given candidates. An
// empty selected_model means every candidate was filtered out.
func (h *Handler) SelectModel(w http.ResponseWriter, r *http.Request) {
	var req selectModelRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	if req.StrategyID == "" {
		writeBadRequest(w, "strategy_id is required")
		return
	}
	if len(req.AvailableModels) == 0 {
		writeBadRequest(w, "available_models must not be empty")
		return
	}

	strategy, err := h.store.GetCostStrategy(r.Context(), req.StrategyID)
	if err != nil {
		h.writeStoreErr(w, err)
		return
	}
	sel, err := h.selector.SelectOptimal(r.Context(), strategy, req.AvailableModels, req.Scenario)
	if err != nil {
		h.logger.Error("model selection failed", "strategy_id", req.StrategyID, "error", err)
		writeErrCode(w, http.StatusInternalServerError, codeInternal, "selection failed")
		return
	}
	writeData(w, sel)
}

type classifyRequest struct {
	Message  string `json:"message"`
	Context  string `json:"context,omitempty"`
	HasTools bool   `json:"has_tools,omitempty"`

	ClassifierVendor  string `json:"classifier_vendor,omitempty"`
	ClassifierModel   string `json:"classifier_model,omitempty"`
	ClassifierBaseURL string `json:"classifier_base_url,omitempty"`
}

// ClassifyComplexity classifies a single message, mainly for prompt tuning.
func (h *Handler) ClassifyComplexity(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeBadRequest(w, "message is required")
		return
	}
	var ov *classifier.Override
	if req.ClassifierVendor != "" || req.ClassifierModel != "" || req.ClassifierBaseURL != "" {
		ov = &classifier.Override{
			Vendor:  req.ClassifierVendor,
			Model:   req.ClassifierModel,
			BaseURL: req.ClassifierBaseURL,
		}
	}
	res := h.classifier.Classify(r.Context(), req.Message, req.Context, req.HasTools, ov)
	writeData(w, res)
}

type calculateCostRequest struct {
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

type calculateCostResponse struct {
	Model            string  `json:"model"`
	Vendor           string  `json:"vendor"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	InputCostUSD     float64 `json:"input_cost_usd"`
	OutputCostUSD    float64 `json:"output_cost_usd"`
	TotalCostUSD     float64 `json:"total_cost_usd"`
}

// CalculateCost prices a token count against the model's pricing record.
func (h *Handler) CalculateCost(w http.ResponseWriter, r *http.Request) {
	var req calculateCostRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	if req.Model == "" {
		writeBadRequest(w, "model is required")
		return
	}
	if req.PromptTokens < 0 || req.CompletionTokens < 0 {
		writeBadRequest(w, "token counts must be non-negative")
		return
	}

	pricing, err := h.store.GetPricing(r.Context(), req.Model)
	if err != nil {
		h.writeStoreErr(w, err)
		return
	}
	// Prices are USD per million tokens.
	in := float64(req.PromptTokens) * pricing.InputPrice / 1_000_000
	out := float64(req.CompletionTokens) * pricing.OutputPrice / 1_000_000
	writeData(w, calculateCostResponse{
		Model:            pricing.Model,
		Vendor:           pricing.Vendor,
		PromptTokens:     req.PromptTokens,
		CompletionTokens: req.CompletionTokens,
		InputCostUSD:     in,
		OutputCostUSD:    out,
		TotalCostUSD:     in + out,
	})
}

// BotUsage lists recent usage records for a bot.
func (h *Handler) BotUsage(w http.ResponseWriter, r *http.Request) {
	botID := r.URL.Query().Get("bot_id")
	if botID == "" {
		writeBadRequest(w, "bot_id is required")
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	records, err := h.store.ListUsage(r.Context(), botID, limit)
	if err != nil {
		if store.IsNotFound(err) {
			records = nil
		} else {
			h.writeStoreErr(w, err)
			return
		}
	}
	if records == nil {
		records = []types.UsageRecord{}
	}
	writeList(w, records)
}

// BotBudget reports current spend against the configured limits.
func (h *Handler) BotBudget(w http.ResponseWriter, r *http.Request) {
	botID := r.URL.Query().Get("bot_id")
	if botID == "" {
		writeBadRequest(w, "bot_id is required")
		return
	}
	writeData(w, h.guard.Check(r.Context(), botID))
}
