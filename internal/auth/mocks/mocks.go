// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

// Package mocks provides testify mocks of the auth interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/admissions-portal/portal/internal/auth"
)

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher whose expectations are
// asserted when the test ends.
func NewMockPasswordHasher(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash provides a mock function.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

// Verify provides a mock function.
func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// MockCredentialStore is a mock of auth.CredentialStore.
type MockCredentialStore[P auth.Principal] struct {
	mock.Mock
}

// NewMockCredentialStore creates a MockCredentialStore whose expectations
// are asserted when the test ends.
func NewMockCredentialStore[P auth.Principal](t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockCredentialStore[P] {
	m := &MockCredentialStore[P]{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// FindByID provides a mock function.
func (m *MockCredentialStore[P]) FindByID(ctx context.Context, id int32) (P, error) {
	args := m.Called(ctx, id)
	var principal P
	if v := args.Get(0); v != nil {
		principal = v.(P)
	}
	return principal, args.Error(1)
}

// MockSessionStore is a mock of auth.SessionStore that also implements
// auth.ExpiredSessionDeleter.
type MockSessionStore struct {
	mock.Mock
}

// NewMockSessionStore creates a MockSessionStore whose expectations are
// asserted when the test ends.
func NewMockSessionStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockSessionStore {
	m := &MockSessionStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Insert provides a mock function.
func (m *MockSessionStore) Insert(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

// FindByID provides a mock function.
func (m *MockSessionStore) FindByID(ctx context.Context, id uuid.UUID) (*auth.Session, error) {
	args := m.Called(ctx, id)
	var s *auth.Session
	if v := args.Get(0); v != nil {
		s = v.(*auth.Session)
	}
	return s, args.Error(1)
}

// FindByPrincipal provides a mock function.
func (m *MockSessionStore) FindByPrincipal(ctx context.Context, principalID int32) ([]*auth.Session, error) {
	args := m.Called(ctx, principalID)
	var sessions []*auth.Session
	if v := args.Get(0); v != nil {
		sessions = v.([]*auth.Session)
	}
	return sessions, args.Error(1)
}

// Delete provides a mock function.
func (m *MockSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// DeleteExpired provides a mock function.
func (m *MockSessionStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// Compile-time interface checks.
var (
	_ auth.PasswordHasher                   = (*MockPasswordHasher)(nil)
	_ auth.CredentialStore[*auth.Candidate] = (*MockCredentialStore[*auth.Candidate])(nil)
	_ auth.SessionStore                     = (*MockSessionStore)(nil)
	_ auth.ExpiredSessionDeleter            = (*MockSessionStore)(nil)
)
