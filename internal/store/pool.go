// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

// Package store provides PostgreSQL connectivity and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Pool is the query surface used by repositories. It is satisfied by
// *pgxpool.Pool and by pgxmock.PgxPoolIface.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Pool = (*pgxpool.Pool)(nil)

// RetryConfig controls how Connect retries an unreachable database.
type RetryConfig struct {
	Attempts uint64
	Backoff  time.Duration
}

// DefaultRetryConfig retries five times starting at half a second.
var DefaultRetryConfig = RetryConfig{Attempts: 5, Backoff: 500 * time.Millisecond}

// pinger opens and verifies a pool; swapped in tests.
type pinger func(ctx context.Context, databaseURL string) (*pgxpool.Pool, error)

func openAndPing(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Connect opens a connection pool to databaseURL, retrying with exponential
// backoff while the database is unreachable. A malformed URL fails at once.
func Connect(ctx context.Context, databaseURL string, cfg RetryConfig) (*pgxpool.Pool, error) {
	return connect(ctx, databaseURL, cfg, openAndPing)
}

func connect(ctx context.Context, databaseURL string, cfg RetryConfig, open pinger) (*pgxpool.Pool, error) {
	if _, err := pgxpool.ParseConfig(databaseURL); err != nil {
		return nil, oops.Code("DB_INVALID_URL").Wrap(err)
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultRetryConfig.Backoff
	}

	backoff := retry.WithMaxRetries(cfg.Attempts, retry.NewExponential(cfg.Backoff))

	var pool *pgxpool.Pool
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := open(ctx, databaseURL)
		if err != nil {
			slog.WarnContext(ctx, "database not reachable", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}
	return pool, nil
}
