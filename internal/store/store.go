// Package store persists routing configuration and usage accounting in
// PostgreSQL. Config entities are soft-deleted and read-only on the request
// path; raw JSONB columns are validated into typed structs on scan.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Store is the pgx-backed persistence layer. An optional Redis client adds a
// read-through cache on hot pricing lookups.
type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func New(db *pgxpool.Pool, rdb *redis.Client) *Store {
	return &Store{db: db, redis: rdb}
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}
