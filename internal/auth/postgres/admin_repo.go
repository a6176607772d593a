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

// AdminRepository stores admin credentials.
type AdminRepository struct {
	pool store.Pool
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(pool store.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// FindByID retrieves an admin by id.
func (r *AdminRepository) FindByID(ctx context.Context, id int32) (*auth.Admin, error) {
	var a auth.Admin
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, password_hash, public_key, encrypted_private_key, created_at, updated_at
		FROM admins
		WHERE id = $1
	`, id).Scan(
		&a.ID,
		&a.Name,
		&a.PasswordHash,
		&a.PublicKey,
		&a.EncryptedPrivateKey,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ADMIN_NOT_FOUND").
			With("admin_id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ADMIN_GET_FAILED").
			With("operation", "get admin by id").
			With("admin_id", id).
			Wrap(err)
	}
	return &a, nil
}

// Create stores a new admin.
func (r *AdminRepository) Create(ctx context.Context, a *auth.Admin) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO admins (id, name, password_hash, public_key, encrypted_private_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		a.ID,
		a.Name,
		a.PasswordHash,
		a.PublicKey,
		a.EncryptedPrivateKey,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("PRINCIPAL_EXISTS").
			With("admin_id", a.ID).
			Wrap(auth.ErrAlreadyExists)
	}
	if err != nil {
		return oops.Code("ADMIN_CREATE_FAILED").
			With("operation", "insert admin").
			With("admin_id", a.ID).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.CredentialStore[*auth.Admin] = (*AdminRepository)(nil)
