// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/samber/oops"
)

// Kind identifies a principal kind. Each kind has its own credential store,
// session store and token audience.
type Kind string

// Principal kinds.
const (
	KindCandidate Kind = "candidate"
	KindAdmin     Kind = "admin"
)

// Kinds lists every principal kind in a stable order.
var Kinds = []Kind{KindCandidate, KindAdmin}

// Valid reports whether k is a known principal kind.
func (k Kind) Valid() bool {
	return k == KindCandidate || k == KindAdmin
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", oops.Code("AUTH_INVALID_KIND").With("kind", s).Errorf("unknown principal kind %q", s)
	}
	return k, nil
}

// Credentials are the secrets stored alongside every principal.
// EncryptedPrivateKey is sealed with the principal's password (see KeySealer).
type Credentials struct {
	PasswordHash        string
	PublicKey           string
	EncryptedPrivateKey string
}

// Principal is an entity that can authenticate.
type Principal interface {
	PrincipalID() int32
	PrincipalKind() Kind
	PrincipalCredentials() Credentials
}

// Candidate is an applicant, identified by their application number.
type Candidate struct {
	Application int32
	Credentials
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PrincipalID returns the application number.
func (c *Candidate) PrincipalID() int32 { return c.Application }

// PrincipalKind returns KindCandidate.
func (c *Candidate) PrincipalKind() Kind { return KindCandidate }

// PrincipalCredentials returns the stored credentials.
func (c *Candidate) PrincipalCredentials() Credentials { return c.Credentials }

// Admin is a staff account.
type Admin struct {
	ID   int32
	Name string
	Credentials
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PrincipalID returns the admin id.
func (a *Admin) PrincipalID() int32 { return a.ID }

// PrincipalKind returns KindAdmin.
func (a *Admin) PrincipalKind() Kind { return KindAdmin }

// PrincipalCredentials returns the stored credentials.
func (a *Admin) PrincipalCredentials() Credentials { return a.Credentials }

// CredentialStore looks up principals of one kind by id.
// FindByID returns an error wrapping ErrNotFound when no principal exists.
type CredentialStore[P Principal] interface {
	FindByID(ctx context.Context, id int32) (P, error)
}

// ParsePrincipalID parses a decimal principal id. Ids are strictly positive.
func ParsePrincipalID(s string) (int32, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, oops.Code("AUTH_INVALID_PRINCIPAL_ID").With("id", s).Wrap(err)
	}
	if id <= 0 {
		return 0, oops.Code("AUTH_INVALID_PRINCIPAL_ID").With("id", s).Errorf("principal id must be positive")
	}
	return int32(id), nil
}
