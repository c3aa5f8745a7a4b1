package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/af-corp/compass-router/internal/store"
	"github.com/af-corp/compass-router/internal/types"
)

// catalog-sync bulk-loads model pricing records from a JSON file, for
// seeding a fresh deployment or applying a vendor price change.

func main() {
	file := flag.String("file", "", "path to pricing JSON file (required, array of pricing records)")
	dryRun := flag.Bool("dry-run", false, "parse and validate without writing")
	dbURL := flag.String("db-url", "", "database URL (overrides env)")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nerror: -file is required")
		os.Exit(1)
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("failed to read pricing file: %v", err)
	}
	var records []types.ModelPricing
	if err := json.Unmarshal(raw, &records); err != nil {
		log.Fatalf("failed to parse pricing file: %v", err)
	}
	for i, p := range records {
		if p.Model == "" || p.Vendor == "" {
			log.Fatalf("record %d: model and vendor are required", i)
		}
		if p.InputPrice < 0 || p.OutputPrice < 0 {
			log.Fatalf("record %d (%s): prices must be non-negative", i, p.Model)
		}
	}

	if *dryRun {
		fmt.Printf("ok: %d pricing records parsed from %s\n", len(records), *file)
		return
	}

	dsn := *dbURL
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		host := envOrDefault("DB_HOST", "localhost")
		port := envOrDefault("DB_PORT", "5432")
		user := envOrDefault("DB_USER", "compass")
		pass := envOrDefault("DB_PASSWORD", "compass-dev")
		name := envOrDefault("DB_NAME", "compass")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	st := store.New(pool, nil)
	for i := range records {
		if err := st.UpsertPricing(ctx, &records[i]); err != nil {
			log.Fatalf("failed to upsert %s: %v", records[i].Model, err)
		}
	}
	fmt.Printf("synced %d pricing records\n", len(records))
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
