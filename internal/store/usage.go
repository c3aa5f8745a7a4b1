package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/af-corp/compass-router/internal/types"
)

// InsertUsage appends one accounted model call. The request path only ever
// appends here; at-least-once accumulation is acceptable.
func (s *Store) InsertUsage(ctx context.Context, rec *types.UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO usage_records (
			id, bot_id, vendor, model, prompt_tokens, completion_tokens,
			cost_usd, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, rec.ID, rec.BotID, rec.Vendor, rec.Model,
		rec.PromptTokens, rec.CompletionTokens, rec.CostUSD, rec.CreatedAt)
	return classify("usage_record", rec.ID, err)
}

// SumUsageCost totals a bot's spend in [from, to).
func (s *Store) SumUsageCost(ctx context.Context, botID string, from, to time.Time) (float64, error) {
	var total float64
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(cost_usd), 0)
		FROM usage_records
		WHERE bot_id = $1 AND created_at >= $2 AND created_at < $3
	`, botID, from, to).Scan(&total)
	if err != nil {
		return 0, classify("usage_record", botID, err)
	}
	return total, nil
}

// ListUsage returns a bot's most recent records, newest first.
func (s *Store) ListUsage(ctx context.Context, botID string, limit int) ([]types.UsageRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, bot_id, vendor, model, prompt_tokens, completion_tokens,
		       cost_usd, created_at
		FROM usage_records
		WHERE bot_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, botID, limit)
	if err != nil {
		return nil, classify("usage_record", botID, err)
	}
	defer rows.Close()

	var out []types.UsageRecord
	for rows.Next() {
		var r types.UsageRecord
		if err := rows.Scan(
			&r.ID, &r.BotID, &r.Vendor, &r.Model,
			&r.PromptTokens, &r.CompletionTokens, &r.CostUSD, &r.CreatedAt,
		); err != nil {
			return nil, classify("usage_record", botID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
