package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/af-corp/compass-router/internal/types"
)

var errEmptyChain = errors.New("fallback chain must have at least one model")

// GetFallbackChain fetches a chain by id.
func (s *Store) GetFallbackChain(ctx context.Context, chainID string) (*types.FallbackChain, error) {
	var c types.FallbackChain
	var modelsJSON, statusJSON, errTypesJSON []byte

	err := s.db.QueryRow(ctx, `
		SELECT chain_id, models, trigger_status_codes, trigger_error_types,
		       trigger_timeout_ms, max_retries, retry_delay_ms,
		       preserve_protocol, is_active, created_at, updated_at
		FROM fallback_chains
		WHERE chain_id = $1 AND NOT is_deleted
	`, chainID).Scan(
		&c.ChainID, &modelsJSON, &statusJSON, &errTypesJSON,
		&c.TriggerTimeoutMs, &c.MaxRetries, &c.RetryDelayMs,
		&c.PreserveProtocol, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, classify("fallback_chain", chainID, err)
	}

	if err := json.Unmarshal(modelsJSON, &c.Models); err != nil {
		return nil, classify("fallback_chain", chainID, err)
	}
	if err := json.Unmarshal(statusJSON, &c.TriggerStatusCodes); err != nil {
		return nil, classify("fallback_chain", chainID, err)
	}
	if err := json.Unmarshal(errTypesJSON, &c.TriggerErrorTypes); err != nil {
		return nil, classify("fallback_chain", chainID, err)
	}
	return &c, nil
}

// ListFallbackChains returns all live chains.
func (s *Store) ListFallbackChains(ctx context.Context) ([]types.FallbackChain, error) {
	rows, err := s.db.Query(ctx, `
		SELECT chain_id, models, trigger_status_codes, trigger_error_types,
		       trigger_timeout_ms, max_retries, retry_delay_ms,
		       preserve_protocol, is_active, created_at, updated_at
		FROM fallback_chains
		WHERE NOT is_deleted
		ORDER BY chain_id
	`)
	if err != nil {
		return nil, classify("fallback_chain", "", err)
	}
	defer rows.Close()

	var out []types.FallbackChain
	for rows.Next() {
		var c types.FallbackChain
		var modelsJSON, statusJSON, errTypesJSON []byte
		if err := rows.Scan(
			&c.ChainID, &modelsJSON, &statusJSON, &errTypesJSON,
			&c.TriggerTimeoutMs, &c.MaxRetries, &c.RetryDelayMs,
			&c.PreserveProtocol, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, classify("fallback_chain", "", err)
		}
		if err := json.Unmarshal(modelsJSON, &c.Models); err != nil {
			return nil, classify("fallback_chain", c.ChainID, err)
		}
		if err := json.Unmarshal(statusJSON, &c.TriggerStatusCodes); err != nil {
			return nil, classify("fallback_chain", c.ChainID, err)
		}
		if err := json.Unmarshal(errTypesJSON, &c.TriggerErrorTypes); err != nil {
			return nil, classify("fallback_chain", c.ChainID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertFallbackChain stores a chain. Chains must carry at least one model.
func (s *Store) UpsertFallbackChain(ctx context.Context, c *types.FallbackChain) error {
	if len(c.Models) == 0 {
		return errEmptyChain
	}
	modelsJSON, err := json.Marshal(c.Models)
	if err != nil {
		return classify("fallback_chain", c.ChainID, err)
	}
	statusJSON, err := json.Marshal(c.TriggerStatusCodes)
	if err != nil {
		return classify("fallback_chain", c.ChainID, err)
	}
	errTypesJSON, err := json.Marshal(c.TriggerErrorTypes)
	if err != nil {
		return classify("fallback_chain", c.ChainID, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO fallback_chains (
			chain_id, models, trigger_status_codes, trigger_error_types,
			trigger_timeout_ms, max_retries, retry_delay_ms,
			preserve_protocol, is_active, is_deleted, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,FALSE,NOW(),NOW())
		ON CONFLICT (chain_id) DO UPDATE SET
			models = EXCLUDED.models,
			trigger_status_codes = EXCLUDED.trigger_status_codes,
			trigger_error_types = EXCLUDED.trigger_error_types,
			trigger_timeout_ms = EXCLUDED.trigger_timeout_ms,
			max_retries = EXCLUDED.max_retries,
			retry_delay_ms = EXCLUDED.retry_delay_ms,
			preserve_protocol = EXCLUDED.preserve_protocol,
			is_active = EXCLUDED.is_active,
			is_deleted = FALSE,
			updated_at = NOW()
	`, c.ChainID, modelsJSON, statusJSON, errTypesJSON,
		c.TriggerTimeoutMs, c.MaxRetries, c.RetryDelayMs,
		c.PreserveProtocol, c.IsActive)
	return classify("fallback_chain", c.ChainID, err)
}

// DeleteFallbackChain soft-deletes a chain.
func (s *Store) DeleteFallbackChain(ctx context.Context, chainID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE fallback_chains SET is_deleted = TRUE, updated_at = NOW()
		WHERE chain_id = $1 AND NOT is_deleted
	`, chainID)
	if err != nil {
		return classify("fallback_chain", chainID, err)
	}
	if tag.RowsAffected() == 0 {
		return &Error{Kind: KindNotFound, Entity: "fallback_chain", Key: chainID, Err: pgx.ErrNoRows}
	}
	return nil
}
