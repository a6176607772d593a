// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

// Package storetest starts disposable PostgreSQL containers for
// integration suites.
package storetest

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/admissions-portal/portal/internal/store"
)

const image = "postgres:16-alpine"

// Postgres is a running container and its connection URL.
type Postgres struct {
	container *postgres.PostgresContainer
	URL       string
}

// StartPostgres runs a fresh database. The postgres image logs readiness
// twice: once for the init server and once for the real one.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	container, err := postgres.Run(ctx, image,
		postgres.WithDatabase("portal_test"),
		postgres.WithUsername("portal"),
		postgres.WithPassword("portal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, oops.Code("TEST_CONTAINER_FAILED").With("image", image).Wrap(err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx) //nolint:errcheck // start error takes precedence
		return nil, oops.Code("TEST_CONTAINER_FAILED").Wrap(err)
	}
	return &Postgres{container: container, URL: url}, nil
}

// Migrate applies every embedded migration.
func (p *Postgres) Migrate() error {
	m, err := store.NewMigrator(p.URL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		_ = m.Close() //nolint:errcheck // migration error takes precedence
		return err
	}
	return m.Close()
}

// Terminate stops and removes the container. Safe on a nil receiver.
func (p *Postgres) Terminate(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.container.Terminate(ctx)
}
