package config

import "time"

// VendorsConfig maps vendor names to their endpoint configuration.
// Routing targets resolve vendor → endpoint here; a ModelRef may still
// override the base URL per entry.
type VendorsConfig struct {
	Vendors map[string]VendorConfig `yaml:"vendors"`
}

type VendorConfig struct {
	// Protocol is the wire format the vendor speaks:
	// "openai-compatible" or "anthropic-native".
	Protocol      string            `yaml:"protocol"`
	BaseURL       string            `yaml:"base_url"`
	APIKey        string            `yaml:"api_key"`
	APIVersion    string            `yaml:"api_version,omitempty"`
	MaxConcurrent int               `yaml:"max_concurrent"`
	Timeout       time.Duration     `yaml:"timeout"`
	Headers       map[string]string `yaml:"headers,omitempty"`
}
