package admin

import (
	"net/http"

	"github.com/af-corp/compass-router/internal/types"
)

// configBundle is the export/import document: the full routing catalog in
// one JSON object. Usage records are operational data and stay out of it.
type configBundle struct {
	ComplexityConfigs []types.ComplexityRoutingConfig `json:"complexity_configs"`
	FallbackChains    []types.FallbackChain           `json:"fallback_chains"`
	CostStrategies    []types.CostStrategy            `json:"cost_strategies"`
	CapabilityTags    []types.CapabilityTag           `json:"capability_tags"`
	ModelPricing      []types.ModelPricing            `json:"model_pricing"`
}

type importReport struct {
	ComplexityConfigs int `json:"complexity_configs"`
	FallbackChains    int `json:"fallback_chains"`
	CostStrategies    int `json:"cost_strategies"`
	CapabilityTags    int `json:"capability_tags"`
	ModelPricing      int `json:"model_pricing"`
}

// Export dumps the whole catalog. The result round-trips through Import.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var bundle configBundle
	var err error

	if bundle.ComplexityConfigs, err = h.store.ListComplexityConfigs(ctx); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	if bundle.FallbackChains, err = h.store.ListFallbackChains(ctx); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	if bundle.CostStrategies, err = h.store.ListCostStrategies(ctx); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	if bundle.CapabilityTags, err = h.store.ListCapabilityTags(ctx); err != nil {
		h.writeStoreErr(w, err)
		return
	}
	if bundle.ModelPricing, err = h.store.ListPricing(ctx); err != nil {
		h.writeStoreErr(w, err)
		return
	}

	if bundle.ComplexityConfigs == nil {
		bundle.ComplexityConfigs = []types.ComplexityRoutingConfig{}
	}
	if bundle.FallbackChains == nil {
		bundle.FallbackChains = []types.FallbackChain{}
	}
	if bundle.CostStrategies == nil {
		bundle.CostStrategies = []types.CostStrategy{}
	}
	if bundle.CapabilityTags == nil {
		bundle.CapabilityTags = []types.CapabilityTag{}
	}
	if bundle.ModelPricing == nil {
		bundle.ModelPricing = []types.ModelPricing{}
	}
	writeData(w, bundle)
}

// Import upserts every entity in the bundle. Entities are validated the same
// way the individual endpoints validate them; the first failure aborts the
// import, so a bundle either needs fixing or applies from the top.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var bundle configBundle
	if err := decodeBody(r, &bundle); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}

	ctx := r.Context()
	var report importReport

	for i := range bundle.ComplexityConfigs {
		cfg := &bundle.ComplexityConfigs[i]
		if cfg.ConfigID == "" {
			writeBadRequest(w, "complexity config with empty config_id")
			return
		}
		if err := cfg.Validate(); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		if err := h.store.UpsertComplexityConfig(ctx, cfg); err != nil {
			h.writeStoreErr(w, err)
			return
		}
		report.ComplexityConfigs++
	}
	for i := range bundle.FallbackChains {
		chain := &bundle.FallbackChains[i]
		if chain.ChainID == "" || len(chain.Models) == 0 {
			writeBadRequest(w, "fallback chain with empty chain_id or models")
			return
		}
		if err := h.store.UpsertFallbackChain(ctx, chain); err != nil {
			h.writeStoreErr(w, err)
			return
		}
		report.FallbackChains++
	}
	for i := range bundle.CostStrategies {
		strategy := &bundle.CostStrategies[i]
		if strategy.StrategyID == "" {
			writeBadRequest(w, "cost strategy with empty strategy_id")
			return
		}
		if err := h.store.UpsertCostStrategy(ctx, strategy); err != nil {
			h.writeStoreErr(w, err)
			return
		}
		report.CostStrategies++
	}
	for i := range bundle.CapabilityTags {
		tag := &bundle.CapabilityTags[i]
		if tag.TagID == "" {
			writeBadRequest(w, "capability tag with empty tag_id")
			return
		}
		if err := h.store.UpsertCapabilityTag(ctx, tag); err != nil {
			h.writeStoreErr(w, err)
			return
		}
		report.CapabilityTags++
	}
	for i := range bundle.ModelPricing {
		pricing := &bundle.ModelPricing[i]
		if pricing.Model == "" || pricing.Vendor == "" {
			writeBadRequest(w, "pricing record with empty model or vendor")
			return
		}
		if err := h.store.UpsertPricing(ctx, pricing); err != nil {
			h.writeStoreErr(w, err)
			return
		}
		report.ModelPricing++
	}

	h.logger.Info("catalog import applied",
		"complexity_configs", report.ComplexityConfigs,
		"fallback_chains", report.FallbackChains,
		"cost_strategies", report.CostStrategies,
		"capability_tags", report.CapabilityTags,
		"model_pricing", report.ModelPricing)
	writeData(w, report)
}
