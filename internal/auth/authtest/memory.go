// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

// Package authtest provides in-memory stores and fixtures for exercising the
// auth services without a database.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/admissions-portal/portal/internal/auth"
)

// CredentialStore is an in-memory auth.CredentialStore.
type CredentialStore[P auth.Principal] struct {
	mu         sync.RWMutex
	principals map[int32]P
	// Err, when set, is returned by every lookup.
	Err error
}

// NewCredentialStore creates a store holding principals.
func NewCredentialStore[P auth.Principal](principals ...P) *CredentialStore[P] {
	s := &CredentialStore[P]{principals: make(map[int32]P, len(principals))}
	for _, p := range principals {
		s.principals[p.PrincipalID()] = p
	}
	return s
}

// Put adds or replaces a principal.
func (s *CredentialStore[P]) Put(p P) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[p.PrincipalID()] = p
}

// FindByID implements auth.CredentialStore.
func (s *CredentialStore[P]) FindByID(_ context.Context, id int32) (P, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero P
	if s.Err != nil {
		return zero, s.Err
	}
	p, ok := s.principals[id]
	if !ok {
		return zero, oops.Code("PRINCIPAL_NOT_FOUND").With("principal_id", id).Wrap(auth.ErrNotFound)
	}
	return p, nil
}

// SessionStore is an in-memory auth.SessionStore that also supports bulk
// expiry. The exported error fields inject failures into single operations.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*auth.Session

	InsertErr          error
	FindErr            error
	FindByPrincipalErr error
	DeleteErr          error
	DeleteExpiredErr   error
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID]*auth.Session)}
}

// Insert implements auth.SessionStore.
func (s *SessionStore) Insert(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return s.InsertErr
	}
	if _, exists := s.sessions[session.ID]; exists {
		return oops.Code("SESSION_DUPLICATE_ID").Wrap(auth.ErrAlreadyExists)
	}
	stored := *session
	s.sessions[session.ID] = &stored
	return nil
}

// FindByID implements auth.SessionStore.
func (s *SessionStore) FindByID(_ context.Context, id uuid.UUID) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	found := *session
	return &found, nil
}

// FindByPrincipal implements auth.SessionStore.
func (s *SessionStore) FindByPrincipal(_ context.Context, principalID int32) ([]*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindByPrincipalErr != nil {
		return nil, s.FindByPrincipalErr
	}
	var out []*auth.Session
	for _, session := range s.sessions {
		if session.PrincipalID == principalID {
			found := *session
			out = append(out, &found)
		}
	}
	auth.SortNewestFirst(out)
	return out, nil
}

// Delete implements auth.SessionStore.
func (s *SessionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.sessions, id)
	return nil
}

// DeleteExpired implements auth.ExpiredSessionDeleter.
func (s *SessionStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteExpiredErr != nil {
		return 0, s.DeleteExpiredErr
	}
	var n int64
	for id, session := range s.sessions {
		if session.ExpiresAt.Before(before) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Has reports whether a session with id is stored.
func (s *SessionStore) Has(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

// Put stores session as-is, bypassing failure injection.
func (s *SessionStore) Put(session *auth.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	s.sessions[session.ID] = &stored
}

// Compile-time interface checks.
var (
	_ auth.CredentialStore[*auth.Candidate] = (*CredentialStore[*auth.Candidate])(nil)
	_ auth.SessionStore                     = (*SessionStore)(nil)
	_ auth.ExpiredSessionDeleter            = (*SessionStore)(nil)
)
