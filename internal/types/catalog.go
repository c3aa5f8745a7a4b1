package types

import "time"

// ModelPricing holds per-model economics and capability scores.
// Upserted by admins or the catalog-sync job; read-only at request time.
type ModelPricing struct {
	Model  string `json:"model"`
	Vendor string `json:"vendor"`

	// USD per million tokens.
	InputPrice      float64  `json:"input_price"`
	OutputPrice     float64  `json:"output_price"`
	CacheReadPrice  *float64 `json:"cache_read_price,omitempty"`
	CacheWritePrice *float64 `json:"cache_write_price,omitempty"`
	ThinkingPrice   *float64 `json:"thinking_price,omitempty"`

	// Scores are 0-100.
	ReasoningScore  float64 `json:"reasoning_score"`
	CodingScore     float64 `json:"coding_score"`
	CreativityScore float64 `json:"creativity_score"`
	SpeedScore      float64 `json:"speed_score"`

	ContextLength int           `json:"context_length"`
	Features      ModelFeatures `json:"features"`
	IsEnabled     bool          `json:"is_enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ModelFeatures struct {
	ExtendedThinking bool `json:"supports_extended_thinking"`
	CacheControl     bool `json:"supports_cache_control"`
	Vision           bool `json:"supports_vision"`
	FunctionCalling  bool `json:"supports_function_calling"`
	Streaming        bool `json:"supports_streaming"`
}

// ScenarioScore returns the score field for a selection scenario, or the
// average of all four when the scenario is empty or unknown.
func (p *ModelPricing) ScenarioScore(scenario string) float64 {
	switch scenario {
	case "reasoning":
		return p.ReasoningScore
	case "coding":
		return p.CodingScore
	case "creativity":
		return p.CreativityScore
	case "speed":
		return p.SpeedScore
	default:
		return (p.ReasoningScore + p.CodingScore + p.CreativityScore + p.SpeedScore) / 4
	}
}

// CapabilityTag is a named requirement used to filter and rank candidates.
type CapabilityTag struct {
	TagID            string   `json:"tag_id"`
	Category         string   `json:"category"`
	Priority         int      `json:"priority"`
	RequiredProtocol Protocol `json:"required_protocol,omitempty"`
	RequiredModels   []string `json:"required_models,omitempty"`
	RequiredSkills   []string `json:"required_skills,omitempty"`

	RequiresVision           bool `json:"requires_vision"`
	RequiresFunctionCalling  bool `json:"requires_function_calling"`
	RequiresExtendedThinking bool `json:"requires_extended_thinking"`
	RequiresStreaming        bool `json:"requires_streaming"`

	MaxCostPerMToken *float64 `json:"max_cost_per_m_token,omitempty"`
	IsActive         bool     `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ComplexityRoutingConfig maps each complexity level to a routing target.
// Invariant: Models has an entry for all five levels.
type ComplexityRoutingConfig struct {
	ConfigID string                  `json:"config_id"`
	Models   map[Complexity]ModelRef `json:"models"`

	ClassifierVendor  string `json:"classifier_vendor,omitempty"`
	ClassifierModel   string `json:"classifier_model,omitempty"`
	ClassifierBaseURL string `json:"classifier_base_url,omitempty"`

	// ToolMinComplexity, when set, is the floor applied to requests that
	// carry tool definitions.
	ToolMinComplexity *Complexity `json:"tool_min_complexity,omitempty"`

	IsEnabled bool      `json:"is_enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the five-level invariant and the tool floor domain.
func (c *ComplexityRoutingConfig) Validate() error {
	for _, level := range Complexities {
		ref, ok := c.Models[level]
		if !ok {
			return &ConfigInvalidError{ConfigID: c.ConfigID, Reason: "missing level " + string(level)}
		}
		if ref.Vendor == "" || ref.Model == "" {
			return &ConfigInvalidError{ConfigID: c.ConfigID, Reason: "level " + string(level) + " missing vendor or model"}
		}
	}
	if c.ToolMinComplexity != nil {
		if _, ok := ParseComplexity(string(*c.ToolMinComplexity)); !ok {
			return &ConfigInvalidError{ConfigID: c.ConfigID, Reason: "invalid tool_min_complexity " + string(*c.ToolMinComplexity)}
		}
	}
	return nil
}

// ConfigInvalidError reports a configuration-integrity violation.
type ConfigInvalidError struct {
	ConfigID string
	Reason   string
}

func (e *ConfigInvalidError) Error() string {
	return "complexity config " + e.ConfigID + " invalid: " + e.Reason
}

// FallbackChain is an ordered list of alternate targets with trigger
// conditions and a chain-wide retry policy. Index 0 is the primary.
type FallbackChain struct {
	ChainID string     `json:"chain_id"`
	Models  []ModelRef `json:"models"`

	TriggerStatusCodes []int    `json:"trigger_status_codes"`
	TriggerErrorTypes  []string `json:"trigger_error_types"`
	TriggerTimeoutMs   int      `json:"trigger_timeout_ms"`

	MaxRetries       int  `json:"max_retries"`
	RetryDelayMs     int  `json:"retry_delay_ms"`
	PreserveProtocol bool `json:"preserve_protocol"`
	IsActive         bool `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CostStrategy is a weighted scoring policy for model selection.
// Weights should sum to ~1.0; this is deliberately not enforced.
type CostStrategy struct {
	StrategyID        string  `json:"strategy_id"`
	CostWeight        float64 `json:"cost_weight"`
	PerformanceWeight float64 `json:"performance_weight"`
	CapabilityWeight  float64 `json:"capability_weight"`

	MaxCostPerRequest  *float64 `json:"max_cost_per_request,omitempty"`
	MaxLatencyMs       *int     `json:"max_latency_ms,omitempty"`
	MinCapabilityScore *float64 `json:"min_capability_score,omitempty"`

	// ScenarioWeights optionally overrides the three weights per scenario.
	ScenarioWeights map[string]ScenarioWeights `json:"scenario_weights,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ScenarioWeights struct {
	CostWeight        float64 `json:"cost_weight"`
	PerformanceWeight float64 `json:"performance_weight"`
	CapabilityWeight  float64 `json:"capability_weight"`
}

// WeightsFor resolves the effective weights for a scenario.
func (s *CostStrategy) WeightsFor(scenario string) ScenarioWeights {
	if w, ok := s.ScenarioWeights[scenario]; ok && scenario != "" {
		return w
	}
	return ScenarioWeights{
		CostWeight:        s.CostWeight,
		PerformanceWeight: s.PerformanceWeight,
		CapabilityWeight:  s.CapabilityWeight,
	}
}

// UsageRecord is one accounted model call for a bot.
type UsageRecord struct {
	ID               string    `json:"id"`
	BotID            string    `json:"bot_id"`
	Vendor           string    `json:"vendor"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	CreatedAt        time.Time `json:"created_at"`
}

// BudgetStatus is the advisory outcome of a budget check. Exceeding a limit
// is reported as data, never as an error.
type BudgetStatus struct {
	BotID string `json:"bot_id"`

	DailyCost    float64  `json:"daily_cost"`
	MonthlyCost  float64  `json:"monthly_cost"`
	DailyLimit   *float64 `json:"daily_limit,omitempty"`
	MonthlyLimit *float64 `json:"monthly_limit,omitempty"`

	DailyExceeded    bool `json:"daily_exceeded"`
	MonthlyExceeded  bool `json:"monthly_exceeded"`
	ThresholdCrossed bool `json:"threshold_crossed"`
}

// Exceeded reports whether any configured limit is exceeded.
func (b BudgetStatus) Exceeded() bool {
	return b.DailyExceeded || b.MonthlyExceeded
}
