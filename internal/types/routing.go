package types

// Protocol is the wire-format variant a model endpoint expects.
type Protocol string

const (
	ProtocolOpenAI    Protocol = "openai-compatible"
	ProtocolAnthropic Protocol = "anthropic-native"
)

func ParseProtocol(s string) (Protocol, bool) {
	switch Protocol(s) {
	case ProtocolOpenAI, ProtocolAnthropic:
		return Protocol(s), true
	default:
		return "", false
	}
}

// ModelRef identifies a concrete routing target.
type ModelRef struct {
	Vendor   string   `json:"vendor" yaml:"vendor"`
	Model    string   `json:"model" yaml:"model"`
	Protocol Protocol `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	APIType  string   `json:"api_type,omitempty" yaml:"api_type,omitempty"`
	BaseURL  string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Features are per-entry flags a chain may attach (e.g. disable vision
	// on a fallback target that lacks it).
	Features map[string]bool `json:"features,omitempty" yaml:"features,omitempty"`
}

// ClassifyResult is the per-request outcome of complexity classification.
// It is never persisted.
type ClassifyResult struct {
	Level                Complexity `json:"level"`
	LatencyMs            int64      `json:"latency_ms"`
	RawResponse          string     `json:"raw_response,omitempty"`
	InheritedFromContext bool       `json:"inherited_from_context"`
}
