package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/af-corp/compass-router/internal/types"
)

// GetComplexityConfig fetches a complexity routing config by id.
// The JSONB models map is validated against the five-level invariant on scan;
// a stored config that fails validation surfaces as a ConfigInvalidError, not
// a routable condition.
func (s *Store) GetComplexityConfig(ctx context.Context, configID string) (*types.ComplexityRoutingConfig, error) {
	var c types.ComplexityRoutingConfig
	var modelsJSON []byte
	var toolMin *string

	err := s.db.QueryRow(ctx, `
		SELECT config_id, models, classifier_vendor, classifier_model,
		       classifier_base_url, tool_min_complexity, is_enabled,
		       created_at, updated_at
		FROM complexity_configs
		WHERE config_id = $1 AND NOT is_deleted
	`, configID).Scan(
		&c.ConfigID, &modelsJSON, &c.ClassifierVendor, &c.ClassifierModel,
		&c.ClassifierBaseURL, &toolMin, &c.IsEnabled,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, classify("complexity_config", configID, err)
	}

	if err := json.Unmarshal(modelsJSON, &c.Models); err != nil {
		return nil, classify("complexity_config", configID, err)
	}
	if toolMin != nil {
		level := types.Complexity(*toolMin)
		c.ToolMinComplexity = &level
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComplexityConfigs returns all live configs.
func (s *Store) ListComplexityConfigs(ctx context.Context) ([]types.ComplexityRoutingConfig, error) {
	rows, err := s.db.Query(ctx, `
		SELECT config_id, models, classifier_vendor, classifier_model,
		       classifier_base_url, tool_min_complexity, is_enabled,
		       created_at, updated_at
		FROM complexity_configs
		WHERE NOT is_deleted
		ORDER BY config_id
	`)
	if err != nil {
		return nil, classify("complexity_config", "", err)
	}
	defer rows.Close()

	var out []types.ComplexityRoutingConfig
	for rows.Next() {
		var c types.ComplexityRoutingConfig
		var modelsJSON []byte
		var toolMin *string
		if err := rows.Scan(
			&c.ConfigID, &modelsJSON, &c.ClassifierVendor, &c.ClassifierModel,
			&c.ClassifierBaseURL, &toolMin, &c.IsEnabled,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, classify("complexity_config", "", err)
		}
		if err := json.Unmarshal(modelsJSON, &c.Models); err != nil {
			return nil, classify("complexity_config", c.ConfigID, err)
		}
		if toolMin != nil {
			level := types.Complexity(*toolMin)
			c.ToolMinComplexity = &level
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertComplexityConfig validates and stores a config.
func (s *Store) UpsertComplexityConfig(ctx context.Context, c *types.ComplexityRoutingConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}
	modelsJSON, err := json.Marshal(c.Models)
	if err != nil {
		return classify("complexity_config", c.ConfigID, err)
	}
	var toolMin *string
	if c.ToolMinComplexity != nil {
		v := string(*c.ToolMinComplexity)
		toolMin = &v
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO complexity_configs (
			config_id, models, classifier_vendor, classifier_model,
			classifier_base_url, tool_min_complexity, is_enabled,
			is_deleted, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,NOW(),NOW())
		ON CONFLICT (config_id) DO UPDATE SET
			models = EXCLUDED.models,
			classifier_vendor = EXCLUDED.classifier_vendor,
			classifier_model = EXCLUDED.classifier_model,
			classifier_base_url = EXCLUDED.classifier_base_url,
			tool_min_complexity = EXCLUDED.tool_min_complexity,
			is_enabled = EXCLUDED.is_enabled,
			is_deleted = FALSE,
			updated_at = NOW()
	`, c.ConfigID, modelsJSON, c.ClassifierVendor, c.ClassifierModel,
		c.ClassifierBaseURL, toolMin, c.IsEnabled)
	return classify("complexity_config", c.ConfigID, err)
}

// DeleteComplexityConfig soft-deletes a config.
func (s *Store) DeleteComplexityConfig(ctx context.Context, configID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE complexity_configs SET is_deleted = TRUE, updated_at = NOW()
		WHERE config_id = $1 AND NOT is_deleted
	`, configID)
	if err != nil {
		return classify("complexity_config", configID, err)
	}
	if tag.RowsAffected() == 0 {
		return &Error{Kind: KindNotFound, Entity: "complexity_config", Key: configID, Err: pgx.ErrNoRows}
	}
	return nil
}
