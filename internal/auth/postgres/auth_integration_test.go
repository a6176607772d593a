// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/admissions-portal/portal/internal/auth"
	"github.com/admissions-portal/portal/internal/auth/authtest"
	"github.com/admissions-portal/portal/internal/auth/postgres"
	"github.com/admissions-portal/portal/internal/seed"
)

const (
	candidateApplication = int32(103158)
	candidatePassword    = "secret"
	adminID              = int32(1)
	adminPassword        = "test"
	adminPrivateKey      = "AGE-SECRET-KEY-1QQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQQ"
)

var _ = Describe("Authentication against PostgreSQL", func() {
	var (
		clock             *authtest.Clock
		candidateStore    *postgres.SessionRepository
		adminStore        *postgres.SessionRepository
		candidates        *auth.Service[*auth.Candidate]
		admins            *auth.Service[*auth.Admin]
		candidateRepo     *postgres.CandidateRepository
		adminRepo         *postgres.AdminRepository
		sealer            *auth.KeySealer
		candidateSessions *auth.SessionManager
	)

	BeforeEach(func(ctx context.Context) {
		truncate(ctx)
		clock = authtest.NewClock(time.Now().UTC().Truncate(time.Microsecond))

		candidateRepo = postgres.NewCandidateRepository(pool)
		adminRepo = postgres.NewAdminRepository(pool)
		candidateStore = postgres.NewCandidateSessionRepository(pool)
		adminStore = postgres.NewAdminSessionRepository(pool)

		hasher := auth.NewArgon2Hasher(authtest.FastArgon2Params)
		sealer = auth.NewKeySealer(authtest.FastArgon2Params)

		loader := &seed.Loader{
			Candidates: candidateRepo,
			Admins:     adminRepo,
			Hasher:     hasher,
			Sealer:     sealer,
		}
		_, err := loader.Load(ctx, &seed.Manifest{
			Version: "1.0.0",
			Candidates: []seed.CandidateSeed{{
				Application: candidateApplication,
				Password:    candidatePassword,
				PublicKey:   "age1candidate",
				PrivateKey:  "AGE-SECRET-KEY-CANDIDATE",
			}},
			Admins: []seed.AdminSeed{{
				ID:         adminID,
				Name:       "Admin",
				Password:   adminPassword,
				PublicKey:  "age1admin",
				PrivateKey: adminPrivateKey,
			}},
		})
		Expect(err).NotTo(HaveOccurred())

		candidateSessions, err = auth.NewSessionManager(auth.KindCandidate, candidateStore, auth.WithSessionClock(clock.Now))
		Expect(err).NotTo(HaveOccurred())
		adminManager, err := auth.NewSessionManager(auth.KindAdmin, adminStore, auth.WithSessionClock(clock.Now))
		Expect(err).NotTo(HaveOccurred())

		candidates, err = auth.NewCandidateService(candidateRepo, candidateSessions, hasher)
		Expect(err).NotTo(HaveOccurred())
		admins, err = auth.NewAdminService(adminRepo, adminManager, hasher, sealer)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("candidate session lifecycle", func() {
		It("logs in, authenticates, logs out and is then rejected", func(ctx context.Context) {
			result, err := candidates.Login(ctx, candidateApplication, candidatePassword, "10.0.0.1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.PrivateKey).To(BeNil())
			Expect(result.Session.IPAddress).To(Equal("10.0.0.1"))

			principal, err := candidates.Authenticate(ctx, result.Session.ID.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(principal.Application).To(Equal(candidateApplication))

			Expect(candidates.Logout(ctx, result.Session.ID)).To(Succeed())

			_, err = candidates.Authenticate(ctx, result.Session.ID.String())
			Expect(err).To(MatchError(auth.ErrUnauthorized))
		})

		It("creates no session for a wrong password", func(ctx context.Context) {
			_, err := candidates.Login(ctx, candidateApplication, "wrong", "10.0.0.1")
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))

			sessions, err := candidateStore.FindByPrincipal(ctx, candidateApplication)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(BeEmpty())
		})

		It("reports an unknown application as not found", func(ctx context.Context) {
			_, err := candidates.Login(ctx, 999999, candidatePassword, "10.0.0.1")
			Expect(err).To(MatchError(auth.ErrPrincipalNotFound))
		})

		It("keeps only the newest session after repeated logins", func(ctx context.Context) {
			var last *auth.LoginResult
			for range 3 {
				clock.Advance(time.Second)
				result, err := candidates.Login(ctx, candidateApplication, candidatePassword, "10.0.0.1")
				Expect(err).NotTo(HaveOccurred())
				last = result
			}

			sessions, err := candidateStore.FindByPrincipal(ctx, candidateApplication)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(1))
			Expect(sessions[0].ID).To(Equal(last.Session.ID))
		})

		It("expires a session lazily and removes its row", func(ctx context.Context) {
			result, err := candidates.Login(ctx, candidateApplication, candidatePassword, "10.0.0.1")
			Expect(err).NotTo(HaveOccurred())

			clock.Advance(auth.DefaultSessionTTL)

			_, err = candidates.Authenticate(ctx, result.Session.ID.String())
			Expect(err).To(MatchError(auth.ErrExpiredSession))

			_, err = candidateStore.FindByID(ctx, result.Session.ID)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("sweeps expired sessions in bulk", func(ctx context.Context) {
			_, err := candidates.Login(ctx, candidateApplication, candidatePassword, "10.0.0.1")
			Expect(err).NotTo(HaveOccurred())
			clock.Advance(auth.DefaultSessionTTL + time.Minute)

			n, supported, err := candidateSessions.DeleteExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(supported).To(BeTrue())
			Expect(n).To(Equal(int64(1)))
		})
	})

	Describe("admin login", func() {
		It("returns the decrypted private key", func(ctx context.Context) {
			result, err := admins.Login(ctx, adminID, adminPassword, "10.0.0.2")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.PrivateKey).NotTo(BeNil())
			Expect(*result.PrivateKey).To(Equal(adminPrivateKey))

			stored, err := adminRepo.FindByID(ctx, adminID)
			Expect(err).NotTo(HaveOccurred())
			opened, err := sealer.Open(stored.EncryptedPrivateKey, adminPassword)
			Expect(err).NotTo(HaveOccurred())
			Expect(opened).To(Equal(*result.PrivateKey))
		})

		It("rejects a wrong password without creating a session", func(ctx context.Context) {
			result, err := admins.Login(ctx, adminID, "nope", "10.0.0.2")
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
			Expect(result).To(BeNil())

			sessions, err := adminStore.FindByPrincipal(ctx, adminID)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(BeEmpty())
		})

		It("does not accept a candidate session", func(ctx context.Context) {
			result, err := candidates.Login(ctx, candidateApplication, candidatePassword, "10.0.0.1")
			Expect(err).NotTo(HaveOccurred())

			_, err = admins.Authenticate(ctx, result.Session.ID.String())
			Expect(err).To(MatchError(auth.ErrUnauthorized))
		})
	})

	Describe("principal removal", func() {
		It("cascades to the principal's sessions", func(ctx context.Context) {
			result, err := candidates.Login(ctx, candidateApplication, candidatePassword, "10.0.0.1")
			Expect(err).NotTo(HaveOccurred())

			_, err = pool.Exec(ctx, `DELETE FROM candidates WHERE application = $1`, candidateApplication)
			Expect(err).NotTo(HaveOccurred())

			_, err = candidateStore.FindByID(ctx, result.Session.ID)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("seeding", func() {
		It("skips principals that already exist", func(ctx context.Context) {
			loader := &seed.Loader{
				Candidates: candidateRepo,
				Hasher:     auth.NewArgon2Hasher(authtest.FastArgon2Params),
				Sealer:     sealer,
			}
			report, err := loader.Load(ctx, &seed.Manifest{
				Version: "1.0.0",
				Candidates: []seed.CandidateSeed{
					{Application: candidateApplication, Password: "other", PrivateKey: "k"},
					{Application: 200001, Password: "fresh", PrivateKey: "k"},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Skipped).To(ConsistOf("candidate:103158"))
			Expect(report.Created).To(ConsistOf("candidate:200001"))

			_, err = candidates.Login(ctx, candidateApplication, candidatePassword, "10.0.0.1")
			Expect(err).NotTo(HaveOccurred(), "existing password is unchanged")
		})
	})
})
