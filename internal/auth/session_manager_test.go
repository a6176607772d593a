// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/admissions-portal/portal/internal/auth"
	"github.com/admissions-portal/portal/internal/auth/authtest"
	"github.com/admissions-portal/portal/internal/auth/mocks"
	"github.com/admissions-portal/portal/pkg/errutil"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// recordingMetrics captures metric events.
type recordingMetrics struct {
	mu      sync.Mutex
	logins  []string
	authn   []string
	pruned  int
	expired int
	swept   map[auth.Kind]int64
}

func (r *recordingMetrics) LoginAttempt(_ auth.Kind, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, result)
}

func (r *recordingMetrics) Authentication(_ auth.Kind, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authn = append(r.authn, result)
}

func (r *recordingMetrics) SessionsPruned(_ auth.Kind, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruned += n
}

func (r *recordingMetrics) SessionExpired(auth.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired++
}

func (r *recordingMetrics) SessionsSwept(kind auth.Kind, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.swept == nil {
		r.swept = make(map[auth.Kind]int64)
	}
	r.swept[kind] += n
}

func newManager(t *testing.T, kind auth.Kind, store auth.SessionStore, clock *authtest.Clock, opts ...auth.SessionManagerOption) *auth.SessionManager {
	t.Helper()
	opts = append([]auth.SessionManagerOption{auth.WithSessionClock(clock.Now)}, opts...)
	m, err := auth.NewSessionManager(kind, store, opts...)
	require.NoError(t, err)
	return m
}

func TestNewSessionManager_Validation(t *testing.T) {
	_, err := auth.NewSessionManager(auth.Kind("guardian"), authtest.NewSessionStore())
	errutil.AssertErrorCode(t, err, "SESSION_MANAGER_INVALID_KIND")

	_, err = auth.NewSessionManager(auth.KindAdmin, nil)
	errutil.AssertErrorCode(t, err, "SESSION_MANAGER_NIL_STORE")
}

func TestSessionManager_CreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	clock := authtest.NewClock(testStart)
	store := authtest.NewSessionStore()
	m := newManager(t, auth.KindCandidate, store, clock)

	s, err := m.Create(ctx, 103158, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, testStart.Add(auth.DefaultSessionTTL), s.ExpiresAt)
	assert.True(t, store.Has(s.ID))

	got, err := m.AuthenticateByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, int32(103158), got.PrincipalID)
}

func TestSessionManager_CustomTTL(t *testing.T) {
	clock := authtest.NewClock(testStart)
	m := newManager(t, auth.KindAdmin, authtest.NewSessionStore(), clock, auth.WithSessionTTL(time.Minute))

	s, err := m.Create(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, testStart.Add(time.Minute), s.ExpiresAt)
}

func TestSessionManager_AuthenticateUnknown(t *testing.T) {
	clock := authtest.NewClock(testStart)
	m := newManager(t, auth.KindCandidate, authtest.NewSessionStore(), clock)

	_, err := m.AuthenticateByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	_, hasKind := auth.KindOf(err)
	assert.False(t, hasKind)
}

func TestSessionManager_ExpiryIsLazy(t *testing.T) {
	ctx := context.Background()
	clock := authtest.NewClock(testStart)
	store := authtest.NewSessionStore()
	metrics := &recordingMetrics{}
	m := newManager(t, auth.KindCandidate, store, clock, auth.WithSessionMetrics(metrics))

	s, err := m.Create(ctx, 103158, "10.0.0.1")
	require.NoError(t, err)

	clock.Advance(auth.DefaultSessionTTL)
	_, err = m.AuthenticateByID(ctx, s.ID)
	require.NoError(t, err, "valid at the expiry instant")

	clock.Advance(time.Second)
	assert.True(t, store.Has(s.ID), "expired sessions stay stored until presented")

	_, err = m.AuthenticateByID(ctx, s.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrExpiredSession)
	errutil.AssertErrorCode(t, err, "SESSION_EXPIRED")
	assert.False(t, store.Has(s.ID), "presenting an expired session deletes it")
	assert.Equal(t, 1, metrics.expired)

	_, err = m.AuthenticateByID(ctx, s.ID)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestSessionManager_ExpiredDeleteFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	clock := authtest.NewClock(testStart)
	store := authtest.NewSessionStore()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := newManager(t, auth.KindAdmin, store, clock, auth.WithSessionLogger(logger))

	s, err := m.Create(ctx, 1, "")
	require.NoError(t, err)
	clock.Advance(25 * time.Hour)
	store.DeleteErr = errors.New("connection reset")

	_, err = m.AuthenticateByID(ctx, s.ID)
	assert.ErrorIs(t, err, auth.ErrExpiredSession)

	entry := decodeLogEntry(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Contains(t, entry["msg"], "best-effort")
	assert.Equal(t, "delete_expired_session", entry["operation"])
	assert.Contains(t, entry["error"], "connection reset")
}

func TestSessionManager_AuthenticateStoreError(t *testing.T) {
	store := mocks.NewMockSessionStore(t)
	id := uuid.New()
	store.On("FindByID", mock.Anything, id).Return(nil, errors.New("connection refused"))

	m, err := auth.NewSessionManager(auth.KindCandidate, store)
	require.NoError(t, err)

	_, err = m.AuthenticateByID(context.Background(), id)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrStoreError)
	assert.NotErrorIs(t, err, auth.ErrSessionNotFound)
	errutil.AssertErrorCode(t, err, "SESSION_LOOKUP_FAILED")
}

func TestSessionManager_CreateStoreError(t *testing.T) {
	store := mocks.NewMockSessionStore(t)
	store.On("Insert", mock.Anything, mock.AnythingOfType("*auth.Session")).Return(errors.New("disk full"))

	m, err := auth.NewSessionManager(auth.KindCandidate, store)
	require.NoError(t, err)

	s, err := m.Create(context.Background(), 103158, "")
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, auth.ErrStoreError)
	errutil.AssertErrorCode(t, err, "SESSION_CREATE_FAILED")
}

func TestSessionManager_Invalidate(t *testing.T) {
	ctx := context.Background()
	clock := authtest.NewClock(testStart)
	store := authtest.NewSessionStore()
	m := newManager(t, auth.KindCandidate, store, clock)

	s, err := m.Create(ctx, 103158, "")
	require.NoError(t, err)

	require.NoError(t, m.Invalidate(ctx, s.ID))
	assert.False(t, store.Has(s.ID))
	require.NoError(t, m.Invalidate(ctx, s.ID), "invalidating twice succeeds")

	store.DeleteErr = errors.New("timeout")
	err = m.Invalidate(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrStoreError)
}

func TestSessionManager_Prune(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		count       int
		keep        int
		wantDeleted int
	}{
		{"keeps most recent", 4, 1, 3},
		{"keep more than exist", 2, 5, 0},
		{"keep zero removes all", 3, 0, 3},
		{"negative keep clamps to zero", 2, -1, 2},
		{"nothing to prune", 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := authtest.NewClock(testStart)
			store := authtest.NewSessionStore()
			m := newManager(t, auth.KindCandidate, store, clock)

			var newest *auth.Session
			for range tt.count {
				s, err := m.Create(ctx, 103158, "")
				require.NoError(t, err)
				newest = s
				clock.Advance(time.Minute)
			}
			other, err := m.Create(ctx, 200000, "")
			require.NoError(t, err)

			deleted, err := m.Prune(ctx, 103158, tt.keep)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeleted, deleted)
			assert.True(t, store.Has(other.ID), "other principals are untouched")
			if tt.keep >= 1 && tt.count > 0 {
				assert.True(t, store.Has(newest.ID))
			}
		})
	}
}

func TestSessionManager_PruneTieBreaksOnID(t *testing.T) {
	ctx := context.Background()
	clock := authtest.NewClock(testStart)
	store := authtest.NewSessionStore()
	m := newManager(t, auth.KindCandidate, store, clock)

	a, err := m.Create(ctx, 103158, "")
	require.NoError(t, err)
	b, err := m.Create(ctx, 103158, "")
	require.NoError(t, err)

	_, err = m.Prune(ctx, 103158, 1)
	require.NoError(t, err)

	keep, drop := a, b
	if b.ID.String() > a.ID.String() {
		keep, drop = b, a
	}
	assert.True(t, store.Has(keep.ID))
	assert.False(t, store.Has(drop.ID))
}

func TestSessionManager_PruneErrors(t *testing.T) {
	ctx := context.Background()
	clock := authtest.NewClock(testStart)

	t.Run("list failure", func(t *testing.T) {
		store := authtest.NewSessionStore()
		store.FindByPrincipalErr = errors.New("timeout")
		m := newManager(t, auth.KindCandidate, store, clock)

		_, err := m.Prune(ctx, 1, 1)
		assert.ErrorIs(t, err, auth.ErrStoreError)
		errutil.AssertErrorCode(t, err, "SESSION_PRUNE_FAILED")
	})

	t.Run("delete failure reports progress", func(t *testing.T) {
		store := mocks.NewMockSessionStore(t)
		older := &auth.Session{ID: uuid.New(), PrincipalID: 1, CreatedAt: testStart}
		newer := &auth.Session{ID: uuid.New(), PrincipalID: 1, CreatedAt: testStart.Add(time.Minute)}
		store.On("FindByPrincipal", mock.Anything, int32(1)).Return([]*auth.Session{older, newer}, nil)
		store.On("Delete", mock.Anything, older.ID).Return(errors.New("timeout"))
		m := newManager(t, auth.KindCandidate, store, clock)

		deleted, err := m.Prune(ctx, 1, 1)
		assert.Equal(t, 0, deleted)
		assert.ErrorIs(t, err, auth.ErrStoreError)
	})
}

func TestSessionManager_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	clock := authtest.NewClock(testStart)

	t.Run("supported", func(t *testing.T) {
		store := mocks.NewMockSessionStore(t)
		store.On("DeleteExpired", mock.Anything, testStart).Return(int64(3), nil)
		m := newManager(t, auth.KindAdmin, store, clock)

		n, supported, err := m.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.True(t, supported)
		assert.Equal(t, int64(3), n)
	})

	t.Run("unsupported", func(t *testing.T) {
		m := newManager(t, auth.KindAdmin, sessionStoreOnly{authtest.NewSessionStore()}, clock)

		n, supported, err := m.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.False(t, supported)
		assert.Zero(t, n)
	})
}

// sessionStoreOnly hides the bulk-expiry capability of the wrapped store.
type sessionStoreOnly struct {
	auth.SessionStore
}
