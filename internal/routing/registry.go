// Package routing implements the request routing core: complexity config
// resolution, cost-weighted model selection, and fallback chain execution.
package routing

import (
	"net/http"
	"sync"
	"time"

	"github.com/af-corp/compass-router/internal/config"
	"github.com/af-corp/compass-router/internal/routing/adapters"
	"github.com/af-corp/compass-router/internal/types"
)

// Registry manages per-vendor protocol adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]adapters.ProviderAdapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]adapters.ProviderAdapter),
	}
}

func (r *Registry) Register(vendor string, adapter adapters.ProviderAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[vendor] = adapter
}

func (r *Registry) Get(vendor string) (adapters.ProviderAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[vendor]
	return a, ok
}

// Resolve returns the adapter for a routing target. A ref that overrides the
// base URL gets a one-off adapter built on the vendor's config with the URL
// swapped in.
func (r *Registry) Resolve(ref types.ModelRef, vendors *config.VendorsConfig) (adapters.ProviderAdapter, bool) {
	if ref.BaseURL == "" {
		return r.Get(ref.Vendor)
	}
	vc, ok := vendors.Vendors[ref.Vendor]
	if !ok {
		return nil, false
	}
	vc.BaseURL = ref.BaseURL
	return buildAdapter(ref.Vendor, vc), true
}

// Rebuild replaces the adapter set from a fresh vendors config. The swap
// happens under the write lock so in-flight lookups on other goroutines
// never observe a partial set.
func (r *Registry) Rebuild(vendorsCfg *config.VendorsConfig) {
	next := make(map[string]adapters.ProviderAdapter, len(vendorsCfg.Vendors))
	for vendor, cfg := range vendorsCfg.Vendors {
		next[vendor] = buildAdapter(vendor, cfg)
	}
	r.mu.Lock()
	r.adapters = next
	r.mu.Unlock()
}

// BuildFromVendors builds the adapter registry from the vendors config.
func BuildFromVendors(vendorsCfg *config.VendorsConfig) *Registry {
	registry := NewRegistry()
	registry.Rebuild(vendorsCfg)
	return registry
}

func buildAdapter(vendor string, cfg config.VendorConfig) adapters.ProviderAdapter {
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.MaxConcurrent,
			MaxIdleConnsPerHost: cfg.MaxConcurrent,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}

	switch cfg.Protocol {
	case string(types.ProtocolAnthropic):
		return adapters.NewAnthropicAdapter(vendor, cfg, client)
	default:
		// openai-compatible is the default for unknown protocols
		return adapters.NewOpenAIAdapter(vendor, cfg, client)
	}
}
