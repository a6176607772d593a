// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admissions-portal/portal/internal/auth"
	"github.com/admissions-portal/portal/pkg/errutil"
)

func newTestStore(t *testing.T, kind auth.Kind, opts ...Option) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewSessionStore(client, kind, opts...)
	require.NoError(t, err)
	return store, mr
}

func newSession(t *testing.T, kind auth.Kind, principalID int32, createdAt time.Time, ttl time.Duration) *auth.Session {
	t.Helper()
	s, err := auth.NewSession(kind, principalID, "10.0.0.1", createdAt, ttl)
	require.NoError(t, err)
	return s
}

func TestNewSessionStore(t *testing.T) {
	_, err := NewSessionStore(nil, auth.KindCandidate)
	errutil.AssertErrorCode(t, err, "REDIS_STORE_INVALID")

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	_, err = NewSessionStore(client, auth.Kind("guardian"))
	errutil.AssertErrorCode(t, err, "REDIS_STORE_INVALID")
}

func TestSessionStore_InsertAndFindByID(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, auth.KindCandidate)
	now := time.Now().UTC().Truncate(time.Millisecond)
	s := newSession(t, auth.KindCandidate, 103158, now, time.Hour)

	require.NoError(t, store.Insert(ctx, s))

	got, err := store.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, auth.KindCandidate, got.Kind)
	assert.Equal(t, int32(103158), got.PrincipalID)
	assert.Equal(t, "10.0.0.1", got.IPAddress)
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))

	key := "portal:{candidate}:session:" + s.ID.String()
	assert.True(t, mr.Exists(key))
	ttl := mr.TTL(key)
	assert.Greater(t, ttl, time.Hour+DefaultExpiredRetention-time.Minute)
}

func TestSessionStore_InsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, auth.KindCandidate)
	s := newSession(t, auth.KindCandidate, 103158, time.Now(), time.Hour)

	require.NoError(t, store.Insert(ctx, s))
	err := store.Insert(ctx, s)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "SESSION_DUPLICATE_ID")
}

func TestSessionStore_FindByIDMissing(t *testing.T) {
	store, _ := newTestStore(t, auth.KindAdmin)

	_, err := store.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	errutil.AssertErrorCode(t, err, "SESSION_NOT_FOUND")
}

func TestSessionStore_ExpiredSessionReadableDuringRetention(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, auth.KindAdmin, WithExpiredRetention(time.Hour))
	s := newSession(t, auth.KindAdmin, 1, time.Now(), time.Minute)
	require.NoError(t, store.Insert(ctx, s))

	mr.FastForward(30 * time.Minute)
	got, err := store.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.IsValidAt(time.Now().Add(30*time.Minute)))

	mr.FastForward(time.Hour)
	_, err = store.FindByID(ctx, s.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionStore_FindByPrincipal(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, auth.KindCandidate)
	base := time.Now().UTC()

	oldest := newSession(t, auth.KindCandidate, 103158, base.Add(-2*time.Hour), 24*time.Hour)
	middle := newSession(t, auth.KindCandidate, 103158, base.Add(-time.Hour), 24*time.Hour)
	newest := newSession(t, auth.KindCandidate, 103158, base, 24*time.Hour)
	other := newSession(t, auth.KindCandidate, 200000, base, 24*time.Hour)
	for _, s := range []*auth.Session{middle, other, oldest, newest} {
		require.NoError(t, store.Insert(ctx, s))
	}

	got, err := store.FindByPrincipal(ctx, 103158)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, newest.ID, got[0].ID)
	assert.Equal(t, middle.ID, got[1].ID)
	assert.Equal(t, oldest.ID, got[2].ID)

	none, err := store.FindByPrincipal(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSessionStore_FindByPrincipalDropsEvictedEntries(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, auth.KindCandidate)
	kept := newSession(t, auth.KindCandidate, 103158, time.Now(), time.Hour)
	evicted := newSession(t, auth.KindCandidate, 103158, time.Now().Add(-time.Minute), time.Hour)
	require.NoError(t, store.Insert(ctx, kept))
	require.NoError(t, store.Insert(ctx, evicted))

	mr.Del("portal:{candidate}:session:" + evicted.ID.String())

	got, err := store.FindByPrincipal(ctx, 103158)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, kept.ID, got[0].ID)

	members, err := mr.ZMembers("portal:{candidate}:principal:103158")
	require.NoError(t, err)
	assert.Equal(t, []string{kept.ID.String()}, members)
}

func TestSessionStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, auth.KindAdmin, WithPrefix("test"))
	s := newSession(t, auth.KindAdmin, 1, time.Now(), time.Hour)
	require.NoError(t, store.Insert(ctx, s))

	require.NoError(t, store.Delete(ctx, s.ID))
	assert.False(t, mr.Exists("test:{admin}:session:"+s.ID.String()))

	got, err := store.FindByPrincipal(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Second delete is a no-op.
	require.NoError(t, store.Delete(ctx, s.ID))
}

func TestSessionStore_KindsAreIsolated(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	candidates, err := NewSessionStore(client, auth.KindCandidate)
	require.NoError(t, err)
	admins, err := NewSessionStore(client, auth.KindAdmin)
	require.NoError(t, err)

	s := newSession(t, auth.KindCandidate, 1, time.Now(), time.Hour)
	require.NoError(t, candidates.Insert(ctx, s))

	_, err = admins.FindByID(ctx, s.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionStore_RedisUnavailable(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, auth.KindCandidate)
	mr.Close()

	_, err := store.FindByID(ctx, uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRedisUnavailable)
	assert.NotErrorIs(t, err, auth.ErrNotFound)
	errutil.AssertErrorCode(t, err, "REDIS_UNAVAILABLE")

	err = store.Insert(ctx, newSession(t, auth.KindCandidate, 1, time.Now(), time.Hour))
	assert.ErrorIs(t, err, ErrRedisUnavailable)
}

// failScripts fails every script command before it reaches Redis.
type failScripts struct{}

func (failScripts) DialHook(next goredis.DialHook) goredis.DialHook { return next }

func (failScripts) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		switch cmd.Name() {
		case "eval", "evalsha":
			err := errors.New("connection reset")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failScripts) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return next
}

func TestSessionStore_InsertFailureLeavesNoKeys(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	client.AddHook(failScripts{})
	store, err := NewSessionStore(client, auth.KindCandidate)
	require.NoError(t, err)

	s := newSession(t, auth.KindCandidate, 103158, time.Now(), time.Hour)
	err = store.Insert(ctx, s)
	assert.ErrorIs(t, err, ErrRedisUnavailable)
	errutil.AssertErrorCode(t, err, "REDIS_UNAVAILABLE")
	assert.Empty(t, mr.Keys())

	_, err = store.FindByID(ctx, s.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionStore_InsertIndexErrorWritesNoSession(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, auth.KindCandidate)
	index := "portal:{candidate}:principal:103158"
	require.NoError(t, mr.Set(index, "not a sorted set"))

	s := newSession(t, auth.KindCandidate, 103158, time.Now(), time.Hour)
	err := store.Insert(ctx, s)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "REDIS_UNAVAILABLE")

	assert.False(t, mr.Exists("portal:{candidate}:session:"+s.ID.String()))
	assert.Equal(t, []string{index}, mr.Keys())
}

func TestSessionStore_InsertSetsExpiryOnEveryKey(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, auth.KindAdmin, WithExpiredRetention(time.Hour))
	s := newSession(t, auth.KindAdmin, 1, time.Now(), time.Hour)

	require.NoError(t, store.Insert(ctx, s))
	for _, key := range mr.Keys() {
		assert.Positive(t, mr.TTL(key), key)
	}
	assert.Len(t, mr.Keys(), 2)
}
