package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/af-corp/compass-router/internal/store"
	"github.com/af-corp/compass-router/internal/types"
)

var errConfigDisabled = errors.New("config is disabled")

// ConfigStore is the slice of the store the resolver needs.
type ConfigStore interface {
	GetComplexityConfig(ctx context.Context, configID string) (*types.ComplexityRoutingConfig, error)
}

// Resolver maps a classified complexity level to a routing target through a
// ComplexityRoutingConfig.
type Resolver struct {
	store  ConfigStore
	logger *slog.Logger
}

func NewResolver(store ConfigStore, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve looks up configID and returns the target for level. Requests that
// carry tools are floored at the config's toolMinComplexity before lookup.
func (r *Resolver) Resolve(ctx context.Context, configID string, level types.Complexity, hasTools bool) (types.ModelRef, *types.ComplexityRoutingConfig, error) {
	cfg, err := r.Config(ctx, configID)
	if err != nil {
		return types.ModelRef{}, nil, err
	}
	ref, err := r.Target(cfg, level, hasTools)
	if err != nil {
		return types.ModelRef{}, nil, err
	}
	return ref, cfg, nil
}

// Config fetches an enabled complexity config.
func (r *Resolver) Config(ctx context.Context, configID string) (*types.ComplexityRoutingConfig, error) {
	cfg, err := r.store.GetComplexityConfig(ctx, configID)
	if err != nil {
		return nil, fmt.Errorf("resolve complexity config: %w", err)
	}
	if !cfg.IsEnabled {
		// Disabled configs are indistinguishable from missing ones.
		return nil, fmt.Errorf("resolve complexity config: %w", &store.Error{
			Kind:   store.KindNotFound,
			Entity: "complexity_config",
			Key:    configID,
			Err:    errConfigDisabled,
		})
	}
	return cfg, nil
}

// Target maps a classified level to the config's routing target.
func (r *Resolver) Target(cfg *types.ComplexityRoutingConfig, level types.Complexity, hasTools bool) (types.ModelRef, error) {
	if hasTools && cfg.ToolMinComplexity != nil {
		level = types.EnsureMinComplexity(level, *cfg.ToolMinComplexity)
	}

	ref, ok := cfg.Models[level]
	if !ok {
		// All five levels are required at write time, so a miss here is a
		// configuration-integrity violation, not a routable condition.
		r.logger.Error("complexity config missing level entry",
			"config_id", cfg.ConfigID, "level", string(level))
		return types.ModelRef{}, &types.ConfigInvalidError{
			ConfigID: cfg.ConfigID,
			Reason:   "no entry for level " + string(level),
		}
	}
	return ref, nil
}
