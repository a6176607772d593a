// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Authenticator routes requests to the service of the requested principal
// kind. It is the entry point used by transports and the CLI.
type Authenticator struct {
	candidates *Service[*Candidate]
	admins     *Service[*Admin]
}

// NewAuthenticator creates an Authenticator. Either service may be nil, in
// which case requests for that kind are unauthorized.
func NewAuthenticator(candidates *Service[*Candidate], admins *Service[*Admin]) *Authenticator {
	return &Authenticator{candidates: candidates, admins: admins}
}

// Login authenticates a principal of kind by id and password.
func (a *Authenticator) Login(ctx context.Context, kind Kind, id int32, password, ipAddress string) (*LoginResult, error) {
	switch {
	case kind == KindCandidate && a.candidates != nil:
		return a.candidates.Login(ctx, id, password, ipAddress)
	case kind == KindAdmin && a.admins != nil:
		return a.admins.Login(ctx, id, password, ipAddress)
	}
	return nil, unsupportedKind(kind)
}

// Authenticate resolves a session id or token to a principal of kind.
func (a *Authenticator) Authenticate(ctx context.Context, kind Kind, identifier string) (Principal, error) {
	switch {
	case kind == KindCandidate && a.candidates != nil:
		c, err := a.candidates.Authenticate(ctx, identifier)
		if err != nil {
			return nil, err
		}
		return c, nil
	case kind == KindAdmin && a.admins != nil:
		adm, err := a.admins.Authenticate(ctx, identifier)
		if err != nil {
			return nil, err
		}
		return adm, nil
	}
	return nil, unsupportedKind(kind)
}

// Logout invalidates a session of kind.
func (a *Authenticator) Logout(ctx context.Context, kind Kind, sessionID uuid.UUID) error {
	switch {
	case kind == KindCandidate && a.candidates != nil:
		return a.candidates.Logout(ctx, sessionID)
	case kind == KindAdmin && a.admins != nil:
		return a.admins.Logout(ctx, sessionID)
	}
	return unsupportedKind(kind)
}

func unsupportedKind(kind Kind) error {
	return newError(KindUnauthorized, oops.Code("AUTH_KIND_UNAVAILABLE").
		With("kind", string(kind)).
		Errorf("no authentication service for principal kind"))
}
