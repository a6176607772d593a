// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package main

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/admissions-portal/portal/internal/auth"
	"github.com/admissions-portal/portal/internal/auth/postgres"
	"github.com/admissions-portal/portal/internal/auth/redis"
	"github.com/admissions-portal/portal/internal/config"
	"github.com/admissions-portal/portal/internal/store"
)

// backend is the wired authentication stack for one CLI invocation.
type backend struct {
	pool  DBPool
	redis goredis.UniversalClient

	candidateRepo *postgres.CandidateRepository
	adminRepo     *postgres.AdminRepository

	candidateSessions *auth.SessionManager
	adminSessions     *auth.SessionManager

	candidates    *auth.Service[*auth.Candidate]
	admins        *auth.Service[*auth.Admin]
	authenticator *auth.Authenticator
}

// connectDatabase opens the configured PostgreSQL pool.
func (a *app) connectDatabase(ctx context.Context) (DBPool, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, oops.Code("CONFIG_INVALID").
			With("field", "database_url").
			Errorf("database URL is required (--database-url or %s)", config.EnvDatabaseURL)
	}
	pool, err := a.deps.PoolFactory(ctx, a.cfg.DatabaseURL, store.RetryConfig{
		Attempts: a.cfg.Database.ConnectAttempts,
		Backoff:  a.cfg.Database.ConnectBackoff,
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return pool, nil
}

// openBackend connects to the stores and builds both authentication
// services. metrics may be nil.
func (a *app) openBackend(ctx context.Context, metrics auth.MetricsRecorder) (b *backend, err error) {
	pool, err := a.connectDatabase(ctx)
	if err != nil {
		return nil, err
	}
	b = &backend{
		pool:          pool,
		candidateRepo: postgres.NewCandidateRepository(pool),
		adminRepo:     postgres.NewAdminRepository(pool),
	}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	candidateStore, adminStore, err := a.sessionStores(b)
	if err != nil {
		return nil, err
	}

	sessionOpts := []auth.SessionManagerOption{
		auth.WithSessionTTL(a.cfg.Session.TTL),
		auth.WithSessionClock(a.deps.Now),
		auth.WithSessionLogger(a.logger),
		auth.WithSessionMetrics(metrics),
	}
	if b.candidateSessions, err = auth.NewSessionManager(auth.KindCandidate, candidateStore, sessionOpts...); err != nil {
		return nil, err
	}
	if b.adminSessions, err = auth.NewSessionManager(auth.KindAdmin, adminStore, sessionOpts...); err != nil {
		return nil, err
	}

	params := a.cfg.Argon2Params()
	hasher := auth.NewArgon2Hasher(params)
	sealer := auth.NewKeySealer(params)
	cryptoPool := auth.NewCryptoPool(a.cfg.Crypto.Workers)

	candidateOpts, err := a.serviceOptions(auth.KindCandidate, cryptoPool, metrics)
	if err != nil {
		return nil, err
	}
	adminOpts, err := a.serviceOptions(auth.KindAdmin, cryptoPool, metrics)
	if err != nil {
		return nil, err
	}

	if b.candidates, err = auth.NewCandidateService(b.candidateRepo, b.candidateSessions, hasher, candidateOpts...); err != nil {
		return nil, err
	}
	if b.admins, err = auth.NewAdminService(b.adminRepo, b.adminSessions, hasher, sealer, adminOpts...); err != nil {
		return nil, err
	}
	b.authenticator = auth.NewAuthenticator(b.candidates, b.admins)
	return b, nil
}

func (a *app) sessionStores(b *backend) (auth.SessionStore, auth.SessionStore, error) {
	switch a.cfg.Session.Backend {
	case config.BackendRedis:
		rc := a.cfg.Session.Redis
		b.redis = a.deps.RedisFactory(rc)
		opts := []redis.Option{redis.WithPrefix(rc.Prefix), redis.WithExpiredRetention(rc.ExpiredRetention)}
		c, err := redis.NewSessionStore(b.redis, auth.KindCandidate, opts...)
		if err != nil {
			return nil, nil, err
		}
		ad, err := redis.NewSessionStore(b.redis, auth.KindAdmin, opts...)
		if err != nil {
			return nil, nil, err
		}
		return c, ad, nil
	default:
		return postgres.NewCandidateSessionRepository(b.pool), postgres.NewAdminSessionRepository(b.pool), nil
	}
}

func (a *app) serviceOptions(kind auth.Kind, pool *auth.CryptoPool, metrics auth.MetricsRecorder) ([]auth.ServiceOption, error) {
	opts := []auth.ServiceOption{
		auth.WithCryptoPool(pool),
		auth.WithKeepRecent(a.cfg.Session.KeepRecent),
		auth.WithLogger(a.logger),
		auth.WithMetrics(metrics),
	}
	if !a.cfg.Token.Enabled {
		return opts, nil
	}
	tc, err := a.cfg.TokenIssuerConfig(kind)
	if err != nil {
		return nil, err
	}
	tc.Now = a.deps.Now
	issuer, err := auth.NewTokenIssuer(tc)
	if err != nil {
		return nil, err
	}
	return append(opts, auth.WithTokenIssuer(issuer)), nil
}

// ready reports whether every store the backend uses is reachable.
func (b *backend) ready(ctx context.Context) error {
	var errs []error
	if err := b.pool.Ping(ctx); err != nil {
		errs = append(errs, oops.Code("DB_UNREACHABLE").Wrap(err))
	}
	if b.redis != nil {
		if err := b.redis.Ping(ctx).Err(); err != nil {
			errs = append(errs, oops.Code("REDIS_UNREACHABLE").Wrap(err))
		}
	}
	return errors.Join(errs...)
}

// sweeper returns a Sweeper over both session managers.
func (b *backend) sweeper(a *app, metrics auth.MetricsRecorder) *auth.Sweeper {
	return auth.NewSweeper(a.cfg.Session.SweepInterval, a.logger, metrics, b.candidateSessions, b.adminSessions)
}

// Close releases the store connections.
func (b *backend) Close() {
	if b.redis != nil {
		_ = b.redis.Close() //nolint:errcheck // shutting down
	}
	if b.pool != nil {
		b.pool.Close()
	}
}
