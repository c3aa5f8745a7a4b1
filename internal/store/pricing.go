package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/af-corp/compass-router/internal/types"
)

const pricingCacheTTL = 5 * time.Minute
const pricingCachePrefix = "compass:pricing:"

// GetPricing looks up a model's pricing record by model name.
// Soft-deleted records are invisible.
func (s *Store) GetPricing(ctx context.Context, model string) (*types.ModelPricing, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, pricingCachePrefix+model).Bytes()
		if err == nil {
			var p types.ModelPricing
			if err := json.Unmarshal(cached, &p); err == nil {
				return &p, nil
			}
		}
	}

	p, err := s.getPricingDB(ctx, model)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(p); err == nil {
			s.redis.Set(ctx, pricingCachePrefix+model, data, pricingCacheTTL)
		}
	}
	return p, nil
}

func (s *Store) getPricingDB(ctx context.Context, model string) (*types.ModelPricing, error) {
	var p types.ModelPricing
	var featuresJSON []byte

	err := s.db.QueryRow(ctx, `
		SELECT model, vendor, input_price, output_price,
		       cache_read_price, cache_write_price, thinking_price,
		       reasoning_score, coding_score, creativity_score, speed_score,
		       context_length, features, is_enabled, created_at, updated_at
		FROM model_pricing
		WHERE model = $1 AND NOT is_deleted
	`, model).Scan(
		&p.Model, &p.Vendor, &p.InputPrice, &p.OutputPrice,
		&p.CacheReadPrice, &p.CacheWritePrice, &p.ThinkingPrice,
		&p.ReasoningScore, &p.CodingScore, &p.CreativityScore, &p.SpeedScore,
		&p.ContextLength, &featuresJSON, &p.IsEnabled, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, classify("model_pricing", model, err)
	}

	if len(featuresJSON) > 0 {
		if err := json.Unmarshal(featuresJSON, &p.Features); err != nil {
			return nil, classify("model_pricing", model, err)
		}
	}
	return &p, nil
}

// ListPricing returns all live pricing records, enabled or not.
func (s *Store) ListPricing(ctx context.Context) ([]types.ModelPricing, error) {
	rows, err := s.db.Query(ctx, `
		SELECT model, vendor, input_price, output_price,
		       cache_read_price, cache_write_price, thinking_price,
		       reasoning_score, coding_score, creativity_score, speed_score,
		       context_length, features, is_enabled, created_at, updated_at
		FROM model_pricing
		WHERE NOT is_deleted
		ORDER BY vendor, model
	`)
	if err != nil {
		return nil, classify("model_pricing", "", err)
	}
	defer rows.Close()

	var out []types.ModelPricing
	for rows.Next() {
		var p types.ModelPricing
		var featuresJSON []byte
		if err := rows.Scan(
			&p.Model, &p.Vendor, &p.InputPrice, &p.OutputPrice,
			&p.CacheReadPrice, &p.CacheWritePrice, &p.ThinkingPrice,
			&p.ReasoningScore, &p.CodingScore, &p.CreativityScore, &p.SpeedScore,
			&p.ContextLength, &featuresJSON, &p.IsEnabled, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, classify("model_pricing", "", err)
		}
		if len(featuresJSON) > 0 {
			if err := json.Unmarshal(featuresJSON, &p.Features); err != nil {
				return nil, classify("model_pricing", p.Model, err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertPricing inserts or replaces a pricing record and invalidates its
// cache entry. Upserting revives a soft-deleted row.
func (s *Store) UpsertPricing(ctx context.Context, p *types.ModelPricing) error {
	featuresJSON, err := json.Marshal(p.Features)
	if err != nil {
		return classify("model_pricing", p.Model, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO model_pricing (
			model, vendor, input_price, output_price,
			cache_read_price, cache_write_price, thinking_price,
			reasoning_score, coding_score, creativity_score, speed_score,
			context_length, features, is_enabled, is_deleted, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,FALSE,NOW(),NOW())
		ON CONFLICT (model) DO UPDATE SET
			vendor = EXCLUDED.vendor,
			input_price = EXCLUDED.input_price,
			output_price = EXCLUDED.output_price,
			cache_read_price = EXCLUDED.cache_read_price,
			cache_write_price = EXCLUDED.cache_write_price,
			thinking_price = EXCLUDED.thinking_price,
			reasoning_score = EXCLUDED.reasoning_score,
			coding_score = EXCLUDED.coding_score,
			creativity_score = EXCLUDED.creativity_score,
			speed_score = EXCLUDED.speed_score,
			context_length = EXCLUDED.context_length,
			features = EXCLUDED.features,
			is_enabled = EXCLUDED.is_enabled,
			is_deleted = FALSE,
			updated_at = NOW()
	`, p.Model, p.Vendor, p.InputPrice, p.OutputPrice,
		p.CacheReadPrice, p.CacheWritePrice, p.ThinkingPrice,
		p.ReasoningScore, p.CodingScore, p.CreativityScore, p.SpeedScore,
		p.ContextLength, featuresJSON, p.IsEnabled)
	if err != nil {
		return classify("model_pricing", p.Model, err)
	}

	s.invalidatePricing(ctx, p.Model)
	return nil
}

// DeletePricing soft-deletes a pricing record.
func (s *Store) DeletePricing(ctx context.Context, model string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE model_pricing SET is_deleted = TRUE, updated_at = NOW()
		WHERE model = $1 AND NOT is_deleted
	`, model)
	if err != nil {
		return classify("model_pricing", model, err)
	}
	if tag.RowsAffected() == 0 {
		return &Error{Kind: KindNotFound, Entity: "model_pricing", Key: model, Err: pgx.ErrNoRows}
	}
	s.invalidatePricing(ctx, model)
	return nil
}

func (s *Store) invalidatePricing(ctx context.Context, model string) {
	if s.redis != nil {
		s.redis.Del(ctx, pricingCachePrefix+model)
	}
}
