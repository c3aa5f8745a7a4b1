package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/af-corp/compass-router/internal/types"
)

// GetCostStrategy fetches a cost strategy by id.
func (s *Store) GetCostStrategy(ctx context.Context, strategyID string) (*types.CostStrategy, error) {
	var c types.CostStrategy
	var scenarioJSON []byte

	err := s.db.QueryRow(ctx, `
		SELECT strategy_id, cost_weight, performance_weight, capability_weight,
		       max_cost_per_request, max_latency_ms, min_capability_score,
		       scenario_weights, created_at, updated_at
		FROM cost_strategies
		WHERE strategy_id = $1 AND NOT is_deleted
	`, strategyID).Scan(
		&c.StrategyID, &c.CostWeight, &c.PerformanceWeight, &c.CapabilityWeight,
		&c.MaxCostPerRequest, &c.MaxLatencyMs, &c.MinCapabilityScore,
		&scenarioJSON, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, classify("cost_strategy", strategyID, err)
	}

	if len(scenarioJSON) > 0 {
		if err := json.Unmarshal(scenarioJSON, &c.ScenarioWeights); err != nil {
			return nil, classify("cost_strategy", strategyID, err)
		}
	}
	return &c, nil
}

// ListCostStrategies returns all live strategies.
func (s *Store) ListCostStrategies(ctx context.Context) ([]types.CostStrategy, error) {
	rows, err := s.db.Query(ctx, `
		SELECT strategy_id, cost_weight, performance_weight, capability_weight,
		       max_cost_per_request, max_latency_ms, min_capability_score,
		       scenario_weights, created_at, updated_at
		FROM cost_strategies
		WHERE NOT is_deleted
		ORDER BY strategy_id
	`)
	if err != nil {
		return nil, classify("cost_strategy", "", err)
	}
	defer rows.Close()

	var out []types.CostStrategy
	for rows.Next() {
		var c types.CostStrategy
		var scenarioJSON []byte
		if err := rows.Scan(
			&c.StrategyID, &c.CostWeight, &c.PerformanceWeight, &c.CapabilityWeight,
			&c.MaxCostPerRequest, &c.MaxLatencyMs, &c.MinCapabilityScore,
			&scenarioJSON, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, classify("cost_strategy", "", err)
		}
		if len(scenarioJSON) > 0 {
			if err := json.Unmarshal(scenarioJSON, &c.ScenarioWeights); err != nil {
				return nil, classify("cost_strategy", c.StrategyID, err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertCostStrategy stores a strategy. Weights are stored as given; summing
// to 1.0 is a convention, not a constraint.
func (s *Store) UpsertCostStrategy(ctx context.Context, c *types.CostStrategy) error {
	var scenarioJSON []byte
	var err error
	if c.ScenarioWeights != nil {
		scenarioJSON, err = json.Marshal(c.ScenarioWeights)
		if err != nil {
			return classify("cost_strategy", c.StrategyID, err)
		}
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO cost_strategies (
			strategy_id, cost_weight, performance_weight, capability_weight,
			max_cost_per_request, max_latency_ms, min_capability_score,
			scenario_weights, is_deleted, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,FALSE,NOW(),NOW())
		ON CONFLICT (strategy_id) DO UPDATE SET
			cost_weight = EXCLUDED.cost_weight,
			performance_weight = EXCLUDED.performance_weight,
			capability_weight = EXCLUDED.capability_weight,
			max_cost_per_request = EXCLUDED.max_cost_per_request,
			max_latency_ms = EXCLUDED.max_latency_ms,
			min_capability_score = EXCLUDED.min_capability_score,
			scenario_weights = EXCLUDED.scenario_weights,
			is_deleted = FALSE,
			updated_at = NOW()
	`, c.StrategyID, c.CostWeight, c.PerformanceWeight, c.CapabilityWeight,
		c.MaxCostPerRequest, c.MaxLatencyMs, c.MinCapabilityScore, scenarioJSON)
	return classify("cost_strategy", c.StrategyID, err)
}

// DeleteCostStrategy soft-deletes a strategy.
func (s *Store) DeleteCostStrategy(ctx context.Context, strategyID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE cost_strategies SET is_deleted = TRUE, updated_at = NOW()
		WHERE strategy_id = $1 AND NOT is_deleted
	`, strategyID)
	if err != nil {
		return classify("cost_strategy", strategyID, err)
	}
	if tag.RowsAffected() == 0 {
		return &Error{Kind: KindNotFound, Entity: "cost_strategy", Key: strategyID, Err: pgx.ErrNoRows}
	}
	return nil
}
