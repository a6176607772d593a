// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/admissions-portal/portal/internal/auth"
	"github.com/admissions-portal/portal/internal/store"
)

// sessionQueries holds the statements for one session table. Table and
// column names are fixed per kind, never caller supplied.
type sessionQueries struct {
	insert          string
	findByID        string
	findByPrincipal string
	delete          string
	deleteExpired   string
}

var candidateSessionQueries = sessionQueries{
	insert: `
		INSERT INTO candidate_sessions (id, candidate_id, ip_address, created_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
	findByID: `
		SELECT id, candidate_id, ip_address, created_at, expires_at, updated_at
		FROM candidate_sessions
		WHERE id = $1`,
	findByPrincipal: `
		SELECT id, candidate_id, ip_address, created_at, expires_at, updated_at
		FROM candidate_sessions
		WHERE candidate_id = $1
		ORDER BY created_at DESC, id DESC`,
	delete:        `DELETE FROM candidate_sessions WHERE id = $1`,
	deleteExpired: `DELETE FROM candidate_sessions WHERE expires_at < $1`,
}

var adminSessionQueries = sessionQueries{
	insert: `
		INSERT INTO admin_sessions (id, admin_id, ip_address, created_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
	findByID: `
		SELECT id, admin_id, ip_address, created_at, expires_at, updated_at
		FROM admin_sessions
		WHERE id = $1`,
	findByPrincipal: `
		SELECT id, admin_id, ip_address, created_at, expires_at, updated_at
		FROM admin_sessions
		WHERE admin_id = $1
		ORDER BY created_at DESC, id DESC`,
	delete:        `DELETE FROM admin_sessions WHERE id = $1`,
	deleteExpired: `DELETE FROM admin_sessions WHERE expires_at < $1`,
}

// SessionRepository implements auth.SessionStore for one principal kind.
type SessionRepository struct {
	pool store.Pool
	kind auth.Kind
	q    sessionQueries
}

// NewCandidateSessionRepository creates a repository over candidate_sessions.
func NewCandidateSessionRepository(pool store.Pool) *SessionRepository {
	return &SessionRepository{pool: pool, kind: auth.KindCandidate, q: candidateSessionQueries}
}

// NewAdminSessionRepository creates a repository over admin_sessions.
func NewAdminSessionRepository(pool store.Pool) *SessionRepository {
	return &SessionRepository{pool: pool, kind: auth.KindAdmin, q: adminSessionQueries}
}

// NewSessionRepository creates the repository for kind.
func NewSessionRepository(pool store.Pool, kind auth.Kind) (*SessionRepository, error) {
	switch kind {
	case auth.KindCandidate:
		return NewCandidateSessionRepository(pool), nil
	case auth.KindAdmin:
		return NewAdminSessionRepository(pool), nil
	}
	return nil, oops.Code("SESSION_REPO_INVALID_KIND").With("kind", string(kind)).Errorf("unknown principal kind")
}

// Insert stores a new session.
func (r *SessionRepository) Insert(ctx context.Context, s *auth.Session) error {
	_, err := r.pool.Exec(ctx, r.q.insert,
		s.ID,
		s.PrincipalID,
		s.IPAddress,
		s.CreatedAt,
		s.ExpiresAt,
		s.UpdatedAt,
	)
	if err == nil {
		return nil
	}
	code := "SESSION_INSERT_FAILED"
	switch {
	case isUniqueViolation(err):
		code = "SESSION_DUPLICATE_ID"
	case isForeignKeyViolation(err):
		code = "SESSION_UNKNOWN_PRINCIPAL"
	}
	return oops.Code(code).
		With("operation", "insert session").
		With("kind", string(r.kind)).
		With("principal_id", s.PrincipalID).
		Wrap(err)
}

// FindByID retrieves a session by its ID.
func (r *SessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*auth.Session, error) {
	s, err := r.scanSession(r.pool.QueryRow(ctx, r.q.findByID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("session_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_ID_FAILED").
			With("operation", "get session by id").
			With("session_id", id.String()).
			Wrap(err)
	}
	return s, nil
}

// FindByPrincipal returns the principal's sessions, newest first.
func (r *SessionRepository) FindByPrincipal(ctx context.Context, principalID int32) ([]*auth.Session, error) {
	rows, err := r.pool.Query(ctx, r.q.findByPrincipal, principalID)
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_PRINCIPAL_FAILED").
			With("operation", "get sessions by principal").
			With("principal_id", principalID).
			Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.Session
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").
				With("operation", "scan session row").
				Wrap(err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_ROWS_ERROR").
			With("operation", "iterate session rows").
			Wrap(err)
	}
	return sessions, nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, r.q.delete, id); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			With("session_id", id.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before the cutoff and returns
// how many were deleted.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, r.q.deleteExpired, before)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			With("kind", string(r.kind)).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

func (r *SessionRepository) scanSession(row pgx.Row) (*auth.Session, error) {
	s := &auth.Session{Kind: r.kind}
	if err := row.Scan(
		&s.ID,
		&s.PrincipalID,
		&s.IPAddress,
		&s.CreatedAt,
		&s.ExpiresAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return s, nil
}

// Compile-time interface checks.
var (
	_ auth.SessionStore          = (*SessionRepository)(nil)
	_ auth.ExpiredSessionDeleter = (*SessionRepository)(nil)
)
