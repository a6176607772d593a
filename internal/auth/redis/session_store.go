// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

// Package redis implements auth.SessionStore on Redis.
//
// Each session is a hash whose key expires some retention period after the
// session itself does, so an expired session can still be recognized and
// reported as expired rather than unknown. A sorted set per principal indexes
// session ids by creation time.
package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/admissions-portal/portal/internal/auth"
)

// ErrRedisUnavailable wraps every failure talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// DefaultExpiredRetention is how long an expired session stays readable.
const DefaultExpiredRetention = 24 * time.Hour

// sessionRecord is the hash layout of a stored session. Times are unix
// nanoseconds.
type sessionRecord struct {
	PrincipalID int32  `redis:"principal_id"`
	IPAddress   string `redis:"ip_address"`
	CreatedAt   int64  `redis:"created_at"`
	ExpiresAt   int64  `redis:"expires_at"`
	UpdatedAt   int64  `redis:"updated_at"`
}

// SessionStore implements auth.SessionStore for one principal kind.
type SessionStore struct {
	client    goredis.UniversalClient
	kind      auth.Kind
	prefix    string
	retention time.Duration
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithPrefix sets the key prefix. The default is "portal".
func WithPrefix(prefix string) Option {
	return func(s *SessionStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithExpiredRetention sets how long expired sessions remain readable.
func WithExpiredRetention(d time.Duration) Option {
	return func(s *SessionStore) {
		if d >= 0 {
			s.retention = d
		}
	}
}

// NewSessionStore creates a SessionStore for kind.
func NewSessionStore(client goredis.UniversalClient, kind auth.Kind, opts ...Option) (*SessionStore, error) {
	if client == nil {
		return nil, oops.Code("REDIS_STORE_INVALID").Errorf("redis client is required")
	}
	if !kind.Valid() {
		return nil, oops.Code("REDIS_STORE_INVALID").With("kind", string(kind)).Errorf("unknown principal kind")
	}
	s := &SessionStore{
		client:    client,
		kind:      kind,
		prefix:    "portal",
		retention: DefaultExpiredRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// All keys of a kind share a hash tag so multi-key transactions stay in one
// cluster slot.
func (s *SessionStore) sessionKey(id uuid.UUID) string {
	return s.prefix + ":{" + string(s.kind) + "}:session:" + id.String()
}

func (s *SessionStore) principalKey(principalID int32) string {
	return s.prefix + ":{" + string(s.kind) + "}:principal:" + strconv.FormatInt(int64(principalID), 10)
}

// insertSessionScript creates the session hash and its index entry in one
// step. The index is written first: it is the only write that can fail
// (WRONGTYPE), and Redis does not roll back earlier writes of a script.
//
// KEYS[1] session hash, KEYS[2] principal index.
// ARGV: principal_id, ip_address, created_at, expires_at, updated_at,
// key expiry (unix ms), index score, session id.
const insertSessionScript = `
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('ZADD', KEYS[2], ARGV[7], ARGV[8])
redis.call('PEXPIREAT', KEYS[2], ARGV[6])
redis.call('HSET', KEYS[1],
  'principal_id', ARGV[1],
  'ip_address', ARGV[2],
  'created_at', ARGV[3],
  'expires_at', ARGV[4],
  'updated_at', ARGV[5])
redis.call('PEXPIREAT', KEYS[1], ARGV[6])
return 1
`

var insertSessionLua = goredis.NewScript(insertSessionScript)

// Insert stores a new session and indexes it under its principal.
func (s *SessionStore) Insert(ctx context.Context, session *auth.Session) error {
	keys := []string{s.sessionKey(session.ID), s.principalKey(session.PrincipalID)}
	created, err := insertSessionLua.Run(ctx, s.client, keys,
		session.PrincipalID,
		session.IPAddress,
		session.CreatedAt.UnixNano(),
		session.ExpiresAt.UnixNano(),
		session.UpdatedAt.UnixNano(),
		session.ExpiresAt.Add(s.retention).UnixMilli(),
		session.CreatedAt.UnixMilli(),
		session.ID.String(),
	).Int()
	if err != nil {
		return s.unavailable(err, "insert session", session.ID)
	}
	if created == 0 {
		return oops.Code("SESSION_DUPLICATE_ID").
			With("session_id", session.ID.String()).
			Errorf("session id already exists")
	}
	return nil
}

// FindByID retrieves a session by its ID.
func (s *SessionStore) FindByID(ctx context.Context, id uuid.UUID) (*auth.Session, error) {
	cmd := s.client.HGetAll(ctx, s.sessionKey(id))
	if err := cmd.Err(); err != nil {
		return nil, s.unavailable(err, "get session", id)
	}
	if len(cmd.Val()) == 0 {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("session_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return s.decode(id, cmd)
}

// FindByPrincipal returns the principal's sessions, newest first. Index
// entries whose session has been evicted are dropped best-effort.
func (s *SessionStore) FindByPrincipal(ctx context.Context, principalID int32) ([]*auth.Session, error) {
	index := s.principalKey(principalID)

	members, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, s.unavailablePrincipal(err, principalID)
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(members))
	cmds := make([]*goredis.MapStringStringCmd, 0, len(members))
	var stale []any
	_, err = s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, m := range members {
			id, parseErr := uuid.Parse(m)
			if parseErr != nil {
				stale = append(stale, m)
				continue
			}
			ids = append(ids, id)
			cmds = append(cmds, pipe.HGetAll(ctx, s.sessionKey(id)))
		}
		return nil
	})
	if err != nil {
		return nil, s.unavailablePrincipal(err, principalID)
	}

	sessions := make([]*auth.Session, 0, len(cmds))
	for i, cmd := range cmds {
		if len(cmd.Val()) == 0 {
			stale = append(stale, ids[i].String())
			continue
		}
		session, err := s.decode(ids[i], cmd)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if len(stale) > 0 {
		_ = s.client.ZRem(ctx, index, stale...).Err() //nolint:errcheck // index cleanup is best effort
	}

	auth.SortNewestFirst(sessions)
	return sessions, nil
}

// Delete removes a session and its index entry. Deleting an absent session
// is not an error.
func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	key := s.sessionKey(id)

	raw, err := s.client.HGet(ctx, key, "principal_id").Result()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return s.unavailable(err, "delete session", id)
	}
	principalID, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return oops.Code("SESSION_CORRUPT").With("session_id", id.String()).Wrap(err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.ZRem(ctx, s.principalKey(int32(principalID)), id.String())
		return nil
	})
	if err != nil {
		return s.unavailable(err, "delete session", id)
	}
	return nil
}

func (s *SessionStore) decode(id uuid.UUID, cmd *goredis.MapStringStringCmd) (*auth.Session, error) {
	var rec sessionRecord
	if err := cmd.Scan(&rec); err != nil {
		return nil, oops.Code("SESSION_CORRUPT").With("session_id", id.String()).Wrap(err)
	}
	if rec.PrincipalID <= 0 || rec.ExpiresAt == 0 {
		return nil, oops.Code("SESSION_CORRUPT").With("session_id", id.String()).Errorf("incomplete session record")
	}
	return &auth.Session{
		ID:          id,
		Kind:        s.kind,
		PrincipalID: rec.PrincipalID,
		IPAddress:   rec.IPAddress,
		CreatedAt:   time.Unix(0, rec.CreatedAt).UTC(),
		ExpiresAt:   time.Unix(0, rec.ExpiresAt).UTC(),
		UpdatedAt:   time.Unix(0, rec.UpdatedAt).UTC(),
	}, nil
}

func (s *SessionStore) unavailable(err error, operation string, id uuid.UUID) error {
	return oops.Code("REDIS_UNAVAILABLE").
		With("operation", operation).
		With("kind", string(s.kind)).
		With("session_id", id.String()).
		Wrap(errors.Join(ErrRedisUnavailable, err))
}

func (s *SessionStore) unavailablePrincipal(err error, principalID int32) error {
	return oops.Code("REDIS_UNAVAILABLE").
		With("operation", "get sessions by principal").
		With("kind", string(s.kind)).
		With("principal_id", principalID).
		Wrap(errors.Join(ErrRedisUnavailable, err))
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
