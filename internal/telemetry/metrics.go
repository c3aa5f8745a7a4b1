package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the COMPASS router.
type Metrics struct {
	RequestTotal        *prometheus.CounterVec
	RequestDurationMs   *prometheus.HistogramVec
	ClassifyTotal       *prometheus.CounterVec
	ClassifyDurationMs  *prometheus.HistogramVec
	ChainAttemptTotal   *prometheus.CounterVec
	ChainExhaustedTotal *prometheus.CounterVec
	SelectionTotal      *prometheus.CounterVec
	TokensTotal         *prometheus.CounterVec
	CostUSDTotal        *prometheus.CounterVec
	BudgetAlertTotal    *prometheus.CounterVec
	RateLimitHitTotal   *prometheus.CounterVec
	CircuitOpenTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_request_total",
			Help: "Total number of requests routed.",
		}, []string{"bot", "model", "vendor", "status", "complexity"}),

		RequestDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "compass_request_duration_ms",
			Help:    "Total request duration in milliseconds (including vendor latency).",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"model", "vendor"}),

		ClassifyTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_classify_total",
			Help: "Total complexity classifications by resulting level and outcome.",
		}, []string{"level", "outcome"}),

		ClassifyDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "compass_classify_duration_ms",
			Help:    "Classifier call latency in milliseconds.",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"vendor"}),

		ChainAttemptTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_chain_attempt_total",
			Help: "Fallback chain attempts by chain and outcome.",
		}, []string{"chain", "vendor", "outcome"}),

		ChainExhaustedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_chain_exhausted_total",
			Help: "Fallback chains that ended without a successful attempt.",
		}, []string{"chain"}),

		SelectionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_selection_total",
			Help: "Cost-strategy model selections by strategy and outcome.",
		}, []string{"strategy", "outcome"}),

		TokensTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_tokens_total",
			Help: "Total tokens processed.",
		}, []string{"bot", "model", "direction"}),

		CostUSDTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_cost_usd_total",
			Help: "Estimated total cost in USD.",
		}, []string{"bot", "model", "vendor"}),

		BudgetAlertTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_budget_alert_total",
			Help: "Budget threshold crossings and limit breaches.",
		}, []string{"bot", "kind"}),

		RateLimitHitTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_rate_limit_hit_total",
			Help: "Requests rejected by the per-bot rate limiter.",
		}, []string{"bot"}),

		CircuitOpenTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_circuit_open_total",
			Help: "Chain entries skipped due to an open vendor circuit.",
		}, []string{"vendor"}),
	}
}

// RecordRequest records metrics for a completed request.
func (m *Metrics) RecordRequest(labels RequestLabels) {
	m.RequestTotal.WithLabelValues(
		labels.Bot, labels.Model, labels.Vendor,
		labels.Status, labels.Complexity,
	).Inc()

	m.RequestDurationMs.WithLabelValues(
		labels.Model, labels.Vendor,
	).Observe(labels.DurationMs)

	if labels.PromptTokens > 0 {
		m.TokensTotal.WithLabelValues(
			labels.Bot, labels.Model, "prompt",
		).Add(float64(labels.PromptTokens))
	}

	if labels.CompletionTokens > 0 {
		m.TokensTotal.WithLabelValues(
			labels.Bot, labels.Model, "completion",
		).Add(float64(labels.CompletionTokens))
	}

	if labels.CostUSD > 0 {
		m.CostUSDTotal.WithLabelValues(
			labels.Bot, labels.Model, labels.Vendor,
		).Add(labels.CostUSD)
	}
}

// RecordClassification records one classifier call.
func (m *Metrics) RecordClassification(level string, inherited bool, latencyMs float64, vendor string) {
	outcome := "classified"
	if inherited {
		outcome = "inherited"
	}
	m.ClassifyTotal.WithLabelValues(level, outcome).Inc()
	if latencyMs > 0 {
		m.ClassifyDurationMs.WithLabelValues(vendor).Observe(latencyMs)
	}
}

// RecordChainAttempt records one fallback chain attempt.
func (m *Metrics) RecordChainAttempt(chain, vendor, outcome string) {
	m.ChainAttemptTotal.WithLabelValues(chain, vendor, outcome).Inc()
}

// RecordChainExhausted records a chain that ran out of targets.
func (m *Metrics) RecordChainExhausted(chain string) {
	m.ChainExhaustedTotal.WithLabelValues(chain).Inc()
}

// RecordSelection records a cost-strategy selection outcome.
func (m *Metrics) RecordSelection(strategy, outcome string) {
	m.SelectionTotal.WithLabelValues(strategy, outcome).Inc()
}

// RecordBudgetAlert records a budget threshold crossing or breach.
func (m *Metrics) RecordBudgetAlert(bot, kind string) {
	m.BudgetAlertTotal.WithLabelValues(bot, kind).Inc()
}

// RecordRateLimitHit records a rejected request.
func (m *Metrics) RecordRateLimitHit(bot string) {
	m.RateLimitHitTotal.WithLabelValues(bot).Inc()
}

// RecordCircuitOpen records a skipped chain entry.
func (m *Metrics) RecordCircuitOpen(vendor string) {
	m.CircuitOpenTotal.WithLabelValues(vendor).Inc()
}

// RequestLabels holds the label values for recording a request.
type RequestLabels struct {
	Bot              string
	Model            string
	Vendor           string
	Status           string
	Complexity       string
	DurationMs       float64
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
}
