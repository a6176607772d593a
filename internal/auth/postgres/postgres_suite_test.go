// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/admissions-portal/portal/internal/store"
	"github.com/admissions-portal/portal/internal/store/storetest"
)

var (
	pg   *storetest.Postgres
	pool *pgxpool.Pool
)

func TestAuthPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Postgres Suite")
}

var _ = BeforeSuite(func(ctx context.Context) {
	var err error
	pg, err = storetest.StartPostgres(ctx)
	Expect(err).NotTo(HaveOccurred())
	Expect(pg.Migrate()).To(Succeed())

	pool, err = store.Connect(ctx, pg.URL, store.DefaultRetryConfig)
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func(ctx context.Context) {
	if pool != nil {
		pool.Close()
	}
	Expect(pg.Terminate(ctx)).To(Succeed())
})

// truncate empties every auth table between specs.
func truncate(ctx context.Context) {
	_, err := pool.Exec(ctx, `TRUNCATE candidate_sessions, admin_sessions, candidates, admins`)
	Expect(err).NotTo(HaveOccurred())
}
