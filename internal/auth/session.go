// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package auth

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Session defaults.
const (
	DefaultSessionTTL = 24 * time.Hour // session lifetime from creation
	DefaultKeepRecent = 1              // sessions retained per principal after login
)

// Session is a server-side login record. Sessions are immutable once created.
type Session struct {
	ID          uuid.UUID
	Kind        Kind
	PrincipalID int32
	IPAddress   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UpdatedAt   time.Time
}

// NewSession creates a validated Session with a random v4 identifier,
// created at now and expiring after ttl.
func NewSession(kind Kind, principalID int32, ipAddress string, now time.Time, ttl time.Duration) (*Session, error) {
	if !kind.Valid() {
		return nil, oops.Code("SESSION_INVALID_KIND").With("kind", string(kind)).Errorf("unknown principal kind")
	}
	if principalID <= 0 {
		return nil, oops.Code("SESSION_INVALID_PRINCIPAL").With("principal_id", principalID).Errorf("principal id must be positive")
	}
	if ttl <= 0 {
		return nil, oops.Code("SESSION_INVALID_TTL").With("ttl", ttl.String()).Errorf("ttl must be positive")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, oops.Code("SESSION_ID_GENERATE_FAILED").Wrap(err)
	}

	return &Session{
		ID:          id,
		Kind:        kind,
		PrincipalID: principalID,
		IPAddress:   ipAddress,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
		UpdatedAt:   now,
	}, nil
}

// IsValidAt reports whether the session is still usable at t.
// A session is valid up to and including its expiry instant.
func (s *Session) IsValidAt(t time.Time) bool {
	return !t.After(s.ExpiresAt)
}

// SortNewestFirst orders sessions by CreatedAt descending, breaking ties by
// ID descending.
func SortNewestFirst(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	})
}

// SessionStore persists sessions of a single principal kind.
type SessionStore interface {
	// Insert stores a new session.
	Insert(ctx context.Context, session *Session) error

	// FindByID returns the session or an error wrapping ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)

	// FindByPrincipal returns every session of the principal, newest first
	// (CreatedAt descending, then ID descending).
	FindByPrincipal(ctx context.Context, principalID int32) ([]*Session, error)

	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExpiredSessionDeleter is implemented by stores that can bulk-remove
// sessions whose expiry is before a cutoff.
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
