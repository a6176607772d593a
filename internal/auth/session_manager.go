// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/admissions-portal/portal/pkg/errutil"
)

// SessionManager creates, validates, invalidates and prunes sessions of one
// principal kind. Expiry is enforced lazily: an expired session is deleted
// when it is next presented.
type SessionManager struct {
	kind    Kind
	store   SessionStore
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics MetricsRecorder
}

// SessionManagerOption configures a SessionManager.
type SessionManagerOption func(*SessionManager)

// WithSessionTTL sets the session lifetime. Non-positive values are ignored.
func WithSessionTTL(ttl time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithSessionClock sets the time source.
func WithSessionClock(now func() time.Time) SessionManagerOption {
	return func(m *SessionManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSessionLogger sets the logger for best-effort failures.
func WithSessionLogger(logger *slog.Logger) SessionManagerOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSessionMetrics sets the metrics recorder.
func WithSessionMetrics(metrics MetricsRecorder) SessionManagerOption {
	return func(m *SessionManager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// NewSessionManager creates a SessionManager over store.
func NewSessionManager(kind Kind, store SessionStore, opts ...SessionManagerOption) (*SessionManager, error) {
	if !kind.Valid() {
		return nil, oops.Code("SESSION_MANAGER_INVALID_KIND").With("kind", string(kind)).Errorf("unknown principal kind")
	}
	if store == nil {
		return nil, oops.Code("SESSION_MANAGER_NIL_STORE").Errorf("session store is required")
	}
	m := &SessionManager{
		kind:    kind,
		store:   store,
		ttl:     DefaultSessionTTL,
		now:     time.Now,
		logger:  slog.Default(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Kind returns the principal kind the manager serves.
func (m *SessionManager) Kind() Kind {
	return m.kind
}

// Create starts a new session for principalID.
func (m *SessionManager) Create(ctx context.Context, principalID int32, ipAddress string) (*Session, error) {
	session, err := NewSession(m.kind, principalID, ipAddress, m.now(), m.ttl)
	if err != nil {
		return nil, newError(KindStoreError, err)
	}
	if err := m.store.Insert(ctx, session); err != nil {
		return nil, newError(KindStoreError, oops.Code("SESSION_CREATE_FAILED").
			With("kind", string(m.kind)).
			With("principal_id", principalID).
			Wrap(err))
	}
	return session, nil
}

// IsValid reports whether session has not yet expired.
func (m *SessionManager) IsValid(session *Session) bool {
	return session.IsValidAt(m.now())
}

// AuthenticateByID returns the session identified by id if it is still
// valid. A missing session yields an error matching ErrSessionNotFound. An
// expired session is deleted best-effort and reported as ErrExpiredSession
// whether or not the delete succeeds.
func (m *SessionManager) AuthenticateByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := m.store.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("kind", string(m.kind)).
			With("session_id", id.String()).
			Wrap(ErrSessionNotFound)
	}
	if err != nil {
		return nil, newError(KindStoreError, oops.Code("SESSION_LOOKUP_FAILED").
			With("kind", string(m.kind)).
			With("session_id", id.String()).
			Wrap(err))
	}

	if !m.IsValid(session) {
		if delErr := m.store.Delete(ctx, id); delErr != nil {
			errutil.LogWarnContext(ctx, m.logger, "best-effort expired session delete failed", delErr,
				"operation", "delete_expired_session",
				"session_id", id.String())
		}
		m.metrics.SessionExpired(m.kind)
		return nil, newError(KindExpiredSession, oops.Code("SESSION_EXPIRED").
			With("session_id", id.String()).
			With("expires_at", session.ExpiresAt).
			Errorf("session expired"))
	}
	return session, nil
}

// Invalidate deletes the session. Invalidating an absent session succeeds.
func (m *SessionManager) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return newError(KindStoreError, oops.Code("SESSION_INVALIDATE_FAILED").
			With("kind", string(m.kind)).
			With("session_id", id.String()).
			Wrap(err))
	}
	return nil
}

// Prune deletes all but the keepN most recent sessions of principalID and
// returns how many were deleted. Recency is CreatedAt descending with ties
// broken by ID descending. Prune is not atomic with respect to concurrent
// logins; a concurrently created session may survive until the next prune.
func (m *SessionManager) Prune(ctx context.Context, principalID int32, keepN int) (int, error) {
	if keepN < 0 {
		keepN = 0
	}

	sessions, err := m.store.FindByPrincipal(ctx, principalID)
	if err != nil {
		return 0, newError(KindStoreError, oops.Code("SESSION_PRUNE_FAILED").
			With("operation", "list sessions").
			With("principal_id", principalID).
			Wrap(err))
	}
	if len(sessions) <= keepN {
		return 0, nil
	}

	ordered := make([]*Session, len(sessions))
	copy(ordered, sessions)
	SortNewestFirst(ordered)

	deleted := 0
	for _, s := range ordered[keepN:] {
		if err := m.store.Delete(ctx, s.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return deleted, newError(KindStoreError, oops.Code("SESSION_PRUNE_FAILED").
				With("operation", "delete session").
				With("principal_id", principalID).
				With("session_id", s.ID.String()).
				Wrap(err))
		}
		deleted++
	}
	return deleted, nil
}

// DeleteExpired removes sessions that expired before now when the store
// supports bulk deletion. It reports false when the store does not.
func (m *SessionManager) DeleteExpired(ctx context.Context) (int64, bool, error) {
	deleter, ok := m.store.(ExpiredSessionDeleter)
	if !ok {
		return 0, false, nil
	}
	n, err := deleter.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, true, newError(KindStoreError, oops.Code("SESSION_SWEEP_FAILED").
			With("kind", string(m.kind)).
			Wrap(err))
	}
	return n, true, nil
}
