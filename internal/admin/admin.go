// Package admin exposes the routing-configuration HTTP surface: CRUD for the
// catalog entities plus the selection, classification, costing and
// export/import operations.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/af-corp/compass-router/internal/budget"
	"github.com/af-corp/compass-router/internal/classifier"
	"github.com/af-corp/compass-router/internal/routing"
	"github.com/af-corp/compass-router/internal/store"
	"github.com/af-corp/compass-router/internal/types"
)

// Response codes used in the envelope.
const (
	codeOK         = 0
	codeBadRequest = 1001
	codeNotFound   = 1404
	codeConflict   = 1409
	codeInternal   = 1500
)

// Store is the persistence surface the admin handlers need.
type Store interface {
	GetPricing(ctx context.Context, model string) (*types.ModelPricing, error)
	ListPricing(ctx context.Context) ([]types.ModelPricing, error)
	UpsertPricing(ctx context.Context, p *types.ModelPricing) error
	DeletePricing(ctx context.Context, model string) error

	GetComplexityConfig(ctx context.Context, configID string) (*types.ComplexityRoutingConfig, error)
	ListComplexityConfigs(ctx context.Context) ([]types.ComplexityRoutingConfig, error)
	UpsertComplexityConfig(ctx context.Context, c *types.ComplexityRoutingConfig) error
	DeleteComplexityConfig(ctx context.Context, configID string) error

	GetFallbackChain(ctx context.Context, chainID string) (*types.FallbackChain, error)
	ListFallbackChains(ctx context.Context) ([]types.FallbackChain, error)
	UpsertFallbackChain(ctx context.Context, c *types.FallbackChain) error
	DeleteFallbackChain(ctx context.Context, chainID string) error

	GetCostStrategy(ctx context.Context, strategyID string) (*types.CostStrategy, error)
	ListCostStrategies(ctx context.Context) ([]types.CostStrategy, error)
	UpsertCostStrategy(ctx context.Context, c *types.CostStrategy) error
	DeleteCostStrategy(ctx context.Context, strategyID string) error

	GetCapabilityTag(ctx context.Context, tagID string) (*types.CapabilityTag, error)
	ListCapabilityTags(ctx context.Context) ([]types.CapabilityTag, error)
	UpsertCapabilityTag(ctx context.Context, t *types.CapabilityTag) error
	DeleteCapabilityTag(ctx context.Context, tagID string) error

	ListUsage(ctx context.Context, botID string, limit int) ([]types.UsageRecord, error)
}

// Handler serves the /routing admin surface.
type Handler struct {
	store      Store
	selector   *routing.Selector
	classifier *classifier.Classifier
	guard      *budget.Guard
	logger     *slog.Logger
}

func NewHandler(st Store, selector *routing.Selector, cls *classifier.Classifier, guard *budget.Guard, logger *slog.Logger) *Handler {
	return &Handler{store: st, selector: selector, classifier: cls, guard: guard, logger: logger}
}

// Routes mounts the admin surface on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/complexity-configs", func(r chi.Router) {
		r.Get("/", h.ListComplexityConfigs)
		r.Post("/", h.UpsertComplexityConfig)
		r.Get("/{configID}", h.GetComplexityConfig)
		r.Delete("/{configID}", h.DeleteComplexityConfig)
	})
	r.Route("/fallback-chains", func(r chi.Router) {
		r.Get("/", h.ListFallbackChains)
		r.Post("/", h.UpsertFallbackChain)
		r.Get("/{chainID}", h.GetFallbackChain)
		r.Delete("/{chainID}", h.DeleteFallbackChain)
	})
	r.Route("/cost-strategies", func(r chi.Router) {
		r.Get("/", h.ListCostStrategies)
		r.Post("/", h.UpsertCostStrategy)
		r.Get("/{strategyID}", h.GetCostStrategy)
		r.Delete("/{strategyID}", h.DeleteCostStrategy)
	})
	r.Route("/capability-tags", func(r chi.Router) {
		r.Get("/", h.ListCapabilityTags)
		r.Post("/", h.UpsertCapabilityTag)
		r.Get("/{tagID}", h.GetCapabilityTag)
		r.Delete("/{tagID}", h.DeleteCapabilityTag)
	})
	r.Route("/model-pricing", func(r chi.Router) {
		r.Get("/", h.ListPricing)
		r.Post("/", h.UpsertPricing)
		r.Get("/{model}", h.GetPricing)
		r.Delete("/{model}", h.DeletePricing)
	})

	r.Post("/select-model", h.SelectModel)
	r.Post("/classify-complexity", h.ClassifyComplexity)
	r.Post("/calculate-cost", h.CalculateCost)
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)
	r.Get("/bot-usage", h.BotUsage)
	r.Get("/bot-budget", h.BotBudget)

	return r
}

// envelope is the uniform admin response shape.
type envelope struct {
	Code    int    `json:"code"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// listPayload wraps collection responses.
type listPayload struct {
	List any `json:"list"`
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(envelope{Code: codeOK, Data: data})
}

func writeList(w http.ResponseWriter, list any) {
	writeData(w, listPayload{List: list})
}

func writeErrCode(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeErrCode(w, http.StatusBadRequest, codeBadRequest, message)
}

// writeStoreErr maps a store failure onto the envelope.
func (h *Handler) writeStoreErr(w http.ResponseWriter, err error) {
	switch store.KindOf(err) {
	case store.KindNotFound:
		writeErrCode(w, http.StatusNotFound, codeNotFound, err.Error())
	case store.KindUniqueConstraint, store.KindForeignKeyViolation, store.KindTransactionConflict:
		writeErrCode(w, http.StatusConflict, codeConflict, err.Error())
	default:
		h.logger.Error("admin store operation failed", "error", err)
		writeErrCode(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
