package routing

import (
	"testing"

	"github.com/af-corp/compass-router/internal/config"
	"github.com/af-corp/compass-router/internal/types"
)

func testVendorsConfig() *config.VendorsConfig {
	return &config.VendorsConfig{
		Vendors: map[string]config.VendorConfig{
			"openai":    {Protocol: "openai-compatible", BaseURL: "https://api.openai.com/v1"},
			"anthropic": {Protocol: "anthropic-native", BaseURL: "https://api.anthropic.com/v1"},
			"deepseek":  {BaseURL: "https://api.deepseek.com/v1"},
		},
	}
}

func TestBuildFromVendors_ProtocolSelection(t *testing.T) {
	registry := BuildFromVendors(testVendorsConfig())

	tests := []struct {
		vendor string
		want   types.Protocol
	}{
		{"openai", types.ProtocolOpenAI},
		{"anthropic", types.ProtocolAnthropic},
		{"deepseek", types.ProtocolOpenAI}, // unknown protocol defaults to openai-compatible
	}
	for _, tt := range tests {
		a, ok := registry.Get(tt.vendor)
		if !ok {
			t.Fatalf("missing adapter for %s", tt.vendor)
		}
		if a.Protocol() != tt.want {
			t.Errorf("%s protocol = %s, want %s", tt.vendor, a.Protocol(), tt.want)
		}
		if a.Vendor() != tt.vendor {
			t.Errorf("adapter vendor = %s, want %s", a.Vendor(), tt.vendor)
		}
	}
}

func TestRegistry_UnknownVendor(t *testing.T) {
	registry := BuildFromVendors(testVendorsConfig())
	if _, ok := registry.Get("missing"); ok {
		t.Error("expected miss for unregistered vendor")
	}
	if _, ok := registry.Resolve(types.ModelRef{Vendor: "missing", BaseURL: "https://x"}, testVendorsConfig()); ok {
		t.Error("expected miss for override on unknown vendor")
	}
}

func TestRegistry_RebuildDuringLookups(t *testing.T) {
	vendors := testVendorsConfig()
	registry := BuildFromVendors(vendors)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			if _, ok := registry.Get("openai"); !ok {
				t.Error("lookup missed during rebuild")
				return
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		registry.Rebuild(vendors)
	}
	<-done

	a, ok := registry.Get("anthropic")
	if !ok || a.Protocol() != types.ProtocolAnthropic {
		t.Error("rebuild lost the anthropic adapter")
	}
}

func TestRegistry_ResolveBaseURLOverride(t *testing.T) {
	vendors := testVendorsConfig()
	registry := BuildFromVendors(vendors)

	shared, _ := registry.Get("openai")

	a, ok := registry.Resolve(types.ModelRef{Vendor: "openai", BaseURL: "https://proxy.internal/v1"}, vendors)
	if !ok {
		t.Fatal("expected adapter for override ref")
	}
	if a == shared {
		t.Error("override must not hand back the shared adapter")
	}

	// Without an override the shared adapter is reused.
	b, ok := registry.Resolve(types.ModelRef{Vendor: "openai"}, vendors)
	if !ok || b != shared {
		t.Error("expected the registered adapter without override")
	}
}
