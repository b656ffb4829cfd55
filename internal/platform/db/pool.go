package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool opens a pgx pool. When schema is set every pooled connection gets it
// as its search_path, so repositories can use unqualified table names.
func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns
	if schema != "" {
		if !schemaPattern.MatchString(schema) {
			return nil, fmt.Errorf("invalid schema name: %s", schema)
		}
		cfg.ConnConfig.RuntimeParams["search_path"] = schema + ", public"
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
