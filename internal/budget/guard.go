// Package budget tracks per-bot spend against daily and monthly ceilings.
// Budget checks are advisory: an exceeded limit is reported as data on the
// response, never enforced by rejecting the request.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/af-corp/compass-router/internal/config"
	"github.com/af-corp/compass-router/internal/types"
)

// UsageSource is the slice of the store the guard needs when Redis has no
// counter for a window.
type UsageSource interface {
	SumUsageCost(ctx context.Context, botID string, from, to time.Time) (float64, error)
}

// Guard checks and records per-bot spend. Counters live in Redis; a cold or
// unavailable Redis falls back to summing the usage table.
type Guard struct {
	rdb    *redis.Client
	usage  UsageSource
	cfg    func() config.BudgetConfig
	logger *slog.Logger
}

func NewGuard(rdb *redis.Client, usage UsageSource, cfg func() config.BudgetConfig, logger *slog.Logger) *Guard {
	return &Guard{rdb: rdb, usage: usage, cfg: cfg, logger: logger}
}

func dailyKey(botID string, now time.Time) string {
	return fmt.Sprintf("compass:budget:daily:%s:%s", botID, now.UTC().Format("2006-01-02"))
}

func monthlyKey(botID string, now time.Time) string {
	return fmt.Sprintf("compass:budget:monthly:%s:%s", botID, now.UTC().Format("2006-01"))
}

// dayWindow returns the UTC calendar-day bounds containing now.
func dayWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, 1)
}

// monthWindow returns the UTC calendar-month bounds containing now.
func monthWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// Check returns the bot's current spend against the configured ceilings.
// Never returns an error for an exceeded budget, and fails open (zero spend)
// when neither Redis nor the usage table can answer.
func (g *Guard) Check(ctx context.Context, botID string) types.BudgetStatus {
	cfg := g.cfg()
	now := time.Now().UTC()

	status := types.BudgetStatus{
		BotID:        botID,
		DailyLimit:   cfg.DailyLimitUSD,
		MonthlyLimit: cfg.MonthlyLimitUSD,
	}

	dayFrom, dayTo := dayWindow(now)
	monthFrom, monthTo := monthWindow(now)
	status.DailyCost = g.windowSpend(ctx, botID, dailyKey(botID, now), dayFrom, dayTo)
	status.MonthlyCost = g.windowSpend(ctx, botID, monthlyKey(botID, now), monthFrom, monthTo)

	if cfg.DailyLimitUSD != nil {
		status.DailyExceeded = status.DailyCost >= *cfg.DailyLimitUSD
		if !status.DailyExceeded && cfg.AlertThreshold > 0 && status.DailyCost >= cfg.AlertThreshold*(*cfg.DailyLimitUSD) {
			status.ThresholdCrossed = true
		}
	}
	if cfg.MonthlyLimitUSD != nil {
		status.MonthlyExceeded = status.MonthlyCost >= *cfg.MonthlyLimitUSD
		if !status.MonthlyExceeded && cfg.AlertThreshold > 0 && status.MonthlyCost >= cfg.AlertThreshold*(*cfg.MonthlyLimitUSD) {
			status.ThresholdCrossed = true
		}
	}

	if status.Exceeded() {
		g.logger.Warn("budget exceeded", "bot_id", botID,
			"daily_cost", status.DailyCost, "monthly_cost", status.MonthlyCost)
	}
	return status
}

// windowSpend reads the Redis counter for a window, rebuilding it from the
// usage table when the key is cold.
func (g *Guard) windowSpend(ctx context.Context, botID, key string, from, to time.Time) float64 {
	if g.rdb != nil {
		spent, err := g.rdb.Get(ctx, key).Float64()
		if err == nil {
			return spent
		}
		if err != redis.Nil {
			g.logger.Warn("budget counter read failed", "key", key, "error", err)
		}
	}

	if g.usage == nil {
		return 0
	}
	spent, err := g.usage.SumUsageCost(ctx, botID, from, to)
	if err != nil {
		g.logger.Warn("budget fallback query failed", "bot_id", botID, "error", err)
		return 0
	}
	g.seedCounter(ctx, key, spent, to)
	return spent
}

// seedCounter writes a rebuilt window total back to Redis so subsequent
// checks stay cheap. Best effort.
func (g *Guard) seedCounter(ctx context.Context, key string, spent float64, windowEnd time.Time) {
	if g.rdb == nil || spent <= 0 {
		return
	}
	ttl := windowEnd.Sub(time.Now().UTC()) + time.Hour
	if err := g.rdb.Set(ctx, key, spent, ttl).Err(); err != nil {
		g.logger.Warn("budget counter seed failed", "key", key, "error", err)
	}
}

// RecordSpend adds one request's cost to the bot's daily and monthly
// counters. Counters expire an hour past their window end.
func (g *Guard) RecordSpend(ctx context.Context, botID string, costUSD float64) error {
	if g.rdb == nil || costUSD <= 0 {
		return nil
	}
	now := time.Now().UTC()
	_, dayEnd := dayWindow(now)
	_, monthEnd := monthWindow(now)

	pipe := g.rdb.Pipeline()
	dk := dailyKey(botID, now)
	mk := monthlyKey(botID, now)
	pipe.IncrByFloat(ctx, dk, costUSD)
	pipe.Expire(ctx, dk, dayEnd.Sub(now)+time.Hour)
	pipe.IncrByFloat(ctx, mk, costUSD)
	pipe.Expire(ctx, mk, monthEnd.Sub(now)+time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}
