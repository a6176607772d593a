// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package main

import (
	"context"
	"io"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/admissions-portal/portal/internal/config"
	"github.com/admissions-portal/portal/internal/observability"
	"github.com/admissions-portal/portal/internal/store"
)

// Deps contains injectable dependencies for the CLI.
// All fields with nil values use their default implementations.
type Deps struct {
	// PoolFactory opens the PostgreSQL pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, databaseURL string, retry store.RetryConfig) (DBPool, error)

	// RedisFactory creates the client for the redis session backend.
	// Default: goredis.NewUniversalClient
	RedisFactory func(cfg config.RedisConfig) goredis.UniversalClient

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// Getenv reads environment variables.
	// Default: os.Getenv
	Getenv func(string) string

	// Stdin supplies passwords.
	// Default: os.Stdin
	Stdin io.Reader

	// LogWriter receives structured logs.
	// Default: os.Stderr
	LogWriter io.Writer

	// Now is the clock used for sessions and tokens.
	// Default: time.Now
	Now func() time.Time
}

// DBPool is the subset of *pgxpool.Pool the CLI uses. pgxmock pools
// satisfy it.
type DBPool interface {
	store.Pool
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.AuthMetrics
}

// withDefaults returns a copy of d with every nil field set.
func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.PoolFactory == nil {
		out.PoolFactory = func(ctx context.Context, databaseURL string, retry store.RetryConfig) (DBPool, error) {
			pool, err := store.Connect(ctx, databaseURL, retry)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if out.RedisFactory == nil {
		out.RedisFactory = func(cfg config.RedisConfig) goredis.UniversalClient {
			return goredis.NewUniversalClient(&goredis.UniversalOptions{
				Addrs:    []string{cfg.Addr},
				Password: cfg.Password,
				DB:       cfg.DB,
			})
		}
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			m, err := store.NewMigrator(databaseURL)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if out.Getenv == nil {
		out.Getenv = os.Getenv
	}
	if out.Stdin == nil {
		out.Stdin = os.Stdin
	}
	if out.LogWriter == nil {
		out.LogWriter = os.Stderr
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return &out
}
