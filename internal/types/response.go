package types

type ChatResponse struct {
	RequestID        string   `json:"request_id"`
	Model            string   `json:"model"`
	Vendor           string   `json:"vendor"`
	Choices          []Choice `json:"choices"`
	Usage            Usage    `json:"usage"`
	EstimatedCostUSD float64  `json:"estimated_cost_usd"`

	// Routing is how the request was routed, for diagnosability.
	Routing RoutingInfo `json:"routing"`

	// Protocol is the wire shape the serving chain attempt selected; the
	// gateway renders the client body in this shape.
	Protocol Protocol `json:"-"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// RoutingInfo summarizes the routing decisions taken for a request.
type RoutingInfo struct {
	Complexity     Complexity `json:"complexity,omitempty"`
	ConfigID       string     `json:"config_id,omitempty"`
	ChainID        string     `json:"chain_id,omitempty"`
	ChainIndex     int        `json:"chain_index"`
	AttemptsUsed   int        `json:"attempts_used"`
	BudgetAlert    bool       `json:"budget_alert,omitempty"`
	BudgetExceeded bool       `json:"budget_exceeded,omitempty"`
}
