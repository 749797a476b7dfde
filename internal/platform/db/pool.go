package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool opens a pgx connection pool and verifies it with a ping. The pool
// is constructed once at startup and shared across requests; it is the only
// stateful handle the service carries.
func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

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

// Probe attempts to reach the database within the given timeout. It is used
// at startup to decide between the durable store and the in-memory fallback.
func Probe(ctx context.Context, databaseURL string, maxConns, minConns int32, timeout time.Duration) (*pgxpool.Pool, error) {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return NewPool(probeCtx, databaseURL, maxConns, minConns)
}
