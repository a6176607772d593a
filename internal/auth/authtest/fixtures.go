// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package authtest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/admissions-portal/portal/internal/auth"
)

// FastArgon2Params keep hashing cheap in tests. Never use them in production.
var FastArgon2Params = auth.Argon2Params{
	Memory:  8 * 1024,
	Time:    1,
	Threads: 1,
	SaltLen: 16,
	KeyLen:  32,
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewCandidate builds a candidate whose password hash and sealed key are
// derived from password.
func NewCandidate(t testing.TB, application int32, password, privateKey string) *auth.Candidate {
	t.Helper()
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	return &auth.Candidate{
		Application: application,
		Credentials: credentials(t, password, privateKey),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewAdmin builds an admin whose password hash and sealed key are derived
// from password.
func NewAdmin(t testing.TB, id int32, name, password, privateKey string) *auth.Admin {
	t.Helper()
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	return &auth.Admin{
		ID:          id,
		Name:        name,
		Credentials: credentials(t, password, privateKey),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func credentials(t testing.TB, password, privateKey string) auth.Credentials {
	t.Helper()
	hash, err := auth.NewArgon2Hasher(FastArgon2Params).Hash(password)
	require.NoError(t, err)
	sealed, err := auth.NewKeySealer(FastArgon2Params).Seal(privateKey, password)
	require.NoError(t, err)
	return auth.Credentials{
		PasswordHash:        hash,
		PublicKey:           "pub-" + privateKey,
		EncryptedPrivateKey: sealed,
	}
}
