// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/admissions-portal/portal/internal/auth"
	"github.com/admissions-portal/portal/internal/store"
)

// CandidateRepository stores candidate credentials.
type CandidateRepository struct {
	pool store.Pool
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(pool store.Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// FindByID retrieves a candidate by application number.
func (r *CandidateRepository) FindByID(ctx context.Context, application int32) (*auth.Candidate, error) {
	var c auth.Candidate
	err := r.pool.QueryRow(ctx, `
		SELECT application, password_hash, public_key, encrypted_private_key, created_at, updated_at
		FROM candidates
		WHERE application = $1
	`, application).Scan(
		&c.Application,
		&c.PasswordHash,
		&c.PublicKey,
		&c.EncryptedPrivateKey,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CANDIDATE_NOT_FOUND").
			With("application", application).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CANDIDATE_GET_FAILED").
			With("operation", "get candidate by application").
			With("application", application).
			Wrap(err)
	}
	return &c, nil
}

// Create stores a new candidate.
func (r *CandidateRepository) Create(ctx context.Context, c *auth.Candidate) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO candidates (application, password_hash, public_key, encrypted_private_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		c.Application,
		c.PasswordHash,
		c.PublicKey,
		c.EncryptedPrivateKey,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("PRINCIPAL_EXISTS").
			With("application", c.Application).
			Wrap(auth.ErrAlreadyExists)
	}
	if err != nil {
		return oops.Code("CANDIDATE_CREATE_FAILED").
			With("operation", "insert candidate").
			With("application", c.Application).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.CredentialStore[*auth.Candidate] = (*CandidateRepository)(nil)
