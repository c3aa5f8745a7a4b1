package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/af-corp/compass-router/internal/types"
)

// Complexity routing configs.

func (h *Handler) ListComplexityConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.store.ListComplexityConfigs(r.Context())
	if err != nil {
		h.writeStoreErr(w, err)
		return
	}
	if configs == nil {
		configs = []types.ComplexityRoutingConfig{}
	}
	writeList(w, configs)
}

func (h *Handler) GetComplexityConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.GetComplexityConfig(r.Context(), chi.URLParam(r, "configID"))
	if err != nil {
		h.writeStoreErr(w, err)
		return
	}
	writeData(w, cfg)
}

func (h *Handler) UpsertComplexityConfig(w http.ResponseWriter, r *http.Request) {
	var cfg types.ComplexityRoutingConfig
	if err := decodeBody(r, &cfg); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	if cfg.ConfigID == "" {
		writeBadRequest(w, "config_id is required")
		return
	}
	if err := cfg.Validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := h.store.UpsertComplexityConfig(r.Context(), &cfg); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	writeData(w, cfg)
}

func (h *Handler) DeleteComplexityConfig(w http.ResponseWriter, r *http.Request) {
	configID := chi.URLParam(r, "configID")
	if err := h.store.DeleteComplexityConfig(r.Context(), configID); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	h.logger.Info("complexity config deleted", "config_id", configID)
	writeData(w, nil)
}

// Fallback chains.

func (h *Handler) ListFallbackChains(w http.ResponseWriter, r *http.Request) {
	chains, err := h.store.ListFallbackChains(r.Context())
	if err != nil {
		h.writeStoreErr(w, err)
		return
	}
	if chains == nil {
		chains = []types.FallbackChain{}
	}
	writeList(w, chains)
}

func (h *Handler) GetFallbackChain(w http.ResponseWriter, r *http.Request) {
	chain, err := h.store.GetFallbackChain(r.Context(), chi.URLParam(r, "chainID"))
	if err != nil {
		h.writeStoreErr(w, err)
		return
	}
	writeData(w, chain)
}

func (h *Handler) UpsertFallbackChain(w http.ResponseWriter, r *http.Request) {
	var chain types.FallbackChain
	if err := decodeBody(r, &chain); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	if chain.ChainID == "" {
		writeBadRequest(w, "chain_id is required")
		return
	}
	if len(chain.Models) == 0 {
		writeBadRequest(w, "models must not be empty")
		return
	}
	if chain.MaxRetries < 0 || chain.RetryDelayMs < 0 || chain.TriggerTimeoutMs < 0 {
		writeBadRequest(w, "retry policy values must be non-negative")
		return
	}
	if err := h.store.UpsertFallbackChain(r.Context(), &chain); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	writeData(w, chain)
}

func (h *Handler) DeleteFallbackChain(w http.ResponseWriter, r *http.Request) {
	chainID := chi.URLParam(r, "chainID")
	if err := h.store.DeleteFallbackChain(r.Context(), chainID); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	h.logger.Info("fallback chain deleted", "chain_id", chainID)
	writeData(w, nil)
}

// Cost strategies.

func (h *Handler) ListCostStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := h.store.ListCostStrategies(r.Context())
	if err != nil {
		h.writeStoreErr(w, err)
		return
	}
	if strategies == nil {
		strategies = []types.CostStrategy{}
	}
	writeList(w, strategies)
}

func (h *Handler) GetCostStrategy(w http.ResponseWriter, r *http.Request) {
	strategy, err := h.store.GetCostStrategy(r.Context(), chi.URLParam(r, "strategyID"))
	if err != nil {
		h.writeStoreErr(w, err)
		return
	}
	writeData(w, strategy)
}

func (h *Handler) UpsertCostStrategy(w http.ResponseWriter, r *http.Request) {
	var strategy types.CostStrategy
	if err := decodeBody(r, &strategy); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	if strategy.StrategyID == "" {
		writeBadRequest(w, "strategy_id is required")
		return
	}
	if strategy.CostWeight < 0 || strategy.PerformanceWeight < 0 || strategy.CapabilityWeight < 0 {
		writeBadRequest(w, "weights must be non-negative")
		return
	}
	if err := h.store.UpsertCostStrategy(r.Context(), &strategy); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	writeData(w, strategy)
}

func (h *Handler) DeleteCostStrategy(w http.ResponseWriter, r *http.Request) {
	strategyID := chi.URLParam(r, "strategyID")
	if err := h.store.DeleteCostStrategy(r.Context(), strategyID); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	h.logger.Info("cost strategy deleted", "strategy_id", strategyID)
	writeData(w, nil)
}

// Capability tags.

func (h *Handler) ListCapabilityTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.ListCapabilityTags(r.Context())
	if err != nil {
		h.writeStoreErr(w, err)
		return
	}
	if tags == nil {
		tags = []types.CapabilityTag{}
	}
	writeList(w, tags)
}

func (h *Handler) GetCapabilityTag(w http.ResponseWriter, r *http.Request) {
	tag, err := h.store.GetCapabilityTag(r.Context(), chi.URLParam(r, "tagID"))
	if err != nil {
		h.writeStoreErr(w, err)
		return
	}
	writeData(w, tag)
}

func (h *Handler) UpsertCapabilityTag(w http.ResponseWriter, r *http.Request) {
	var tag types.CapabilityTag
	if err := decodeBody(r, &tag); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	if tag.TagID == "" {
		writeBadRequest(w, "tag_id is required")
		return
	}
	if err := h.store.UpsertCapabilityTag(r.Context(), &tag); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	writeData(w, tag)
}

func (h *Handler) DeleteCapabilityTag(w http.ResponseWriter, r *http.Request) {
	tagID := chi.URLParam(r, "tagID")
	if err := h.store.DeleteCapabilityTag(r.Context(), tagID); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	h.logger.Info("capability tag deleted", "tag_id", tagID)
	writeData(w, nil)
}

// Model pricing.

func (h *Handler) ListPricing(w http.ResponseWriter, r *http.Request) {
	pricing, err := h.store.ListPricing(r.Context())
	if err != nil {
		h.writeStoreErr(w, err)
		return
	}
	if pricing == nil {
		pricing = []types.ModelPricing{}
	}
	writeList(w, pricing)
}

func (h *Handler) GetPricing(w http.ResponseWriter, r *http.Request) {
	pricing, err := h.store.GetPricing(r.Context(), chi.URLParam(r, "model"))
	if err != nil {
		h.writeStoreErr(w, err)
		return
	}
	writeData(w, pricing)
}

func (h *Handler) UpsertPricing(w http.ResponseWriter, r *http.Request) {
	var pricing types.ModelPricing
	if err := decodeBody(r, &pricing); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	if pricing.Model == "" || pricing.Vendor == "" {
		writeBadRequest(w, "model and vendor are required")
		return
	}
	if pricing.InputPrice < 0 || pricing.OutputPrice < 0 {
		writeBadRequest(w, "prices must be non-negative")
		return
	}
	if err := h.store.UpsertPricing(r.Context(), &pricing); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	writeData(w, pricing)
}

func (h *Handler) DeletePricing(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	if err := h.store.DeletePricing(r.Context(), model); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	h.logger.Info("model pricing deleted", "model", model)
	writeData(w, nil)
}
