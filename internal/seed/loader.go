// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package seed

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/admissions-portal/portal/internal/auth"
)

// CandidateCreator persists new candidates. Create returns an error wrapping
// auth.ErrAlreadyExists when the application number is taken.
type CandidateCreator interface {
	Create(ctx context.Context, c *auth.Candidate) error
}

// AdminCreator persists new admins.
type AdminCreator interface {
	Create(ctx context.Context, a *auth.Admin) error
}

// Report lists what a Load created and skipped, as "kind:id" strings.
type Report struct {
	Created []string
	Skipped []string
}

// Loader writes manifest principals with hashed passwords and sealed keys.
type Loader struct {
	Candidates CandidateCreator
	Admins     AdminCreator
	Hasher     auth.PasswordHasher
	Sealer     *auth.KeySealer
	// Workers bounds concurrent argon2 derivations. Zero means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
	Now     func() time.Time
}

// LoadFile parses the manifest at path and loads it.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Report, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, oops.Code("SEED_READ_FAILED").With("path", path).Wrap(err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return l.Load(ctx, m)
}

// Load creates every principal in m. Principals that already exist are
// skipped and reported; any other failure stops the load.
func (l *Loader) Load(ctx context.Context, m *Manifest) (*Report, error) {
	if l.Hasher == nil || l.Sealer == nil {
		return nil, oops.Code("SEED_LOADER_INVALID").Errorf("hasher and sealer are required")
	}
	if len(m.Candidates) > 0 && l.Candidates == nil {
		return nil, oops.Code("SEED_LOADER_INVALID").Errorf("manifest has candidates but no candidate store")
	}
	if len(m.Admins) > 0 && l.Admins == nil {
		return nil, oops.Code("SEED_LOADER_INVALID").Errorf("manifest has admins but no admin store")
	}

	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	candidateCreds := make([]auth.Credentials, len(m.Candidates))
	adminCreds := make([]auth.Credentials, len(m.Admins))

	g, gctx := errgroup.WithContext(ctx)
	workers := l.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for i, c := range m.Candidates {
		g.Go(func() error {
			creds, err := l.credentials(gctx, c.Password, c.PublicKey, c.PrivateKey)
			if err != nil {
				return oops.With("kind", "candidate").With("principal_id", c.Application).Wrap(err)
			}
			candidateCreds[i] = creds
			return nil
		})
	}
	for i, a := range m.Admins {
		g.Go(func() error {
			creds, err := l.credentials(gctx, a.Password, a.PublicKey, a.PrivateKey)
			if err != nil {
				return oops.With("kind", "admin").With("principal_id", a.ID).Wrap(err)
			}
			adminCreds[i] = creds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{}
	ts := now().UTC()
	for i, c := range m.Candidates {
		label := "candidate:" + strconv.FormatInt(int64(c.Application), 10)
		err := l.Candidates.Create(ctx, &auth.Candidate{
			Application: c.Application,
			Credentials: candidateCreds[i],
			CreatedAt:   ts,
			UpdatedAt:   ts,
		})
		if err := record(report, label, err); err != nil {
			return report, err
		}
	}
	for i, a := range m.Admins {
		label := "admin:" + strconv.FormatInt(int64(a.ID), 10)
		err := l.Admins.Create(ctx, &auth.Admin{
			ID:          a.ID,
			Name:        a.Name,
			Credentials: adminCreds[i],
			CreatedAt:   ts,
			UpdatedAt:   ts,
		})
		if err := record(report, label, err); err != nil {
			return report, err
		}
	}

	logger.InfoContext(ctx, "seed loaded",
		"created", len(report.Created),
		"skipped", len(report.Skipped))
	for _, s := range report.Skipped {
		logger.InfoContext(ctx, "seed principal exists, skipped", "principal", s)
	}
	return report, nil
}

func record(report *Report, label string, err error) error {
	switch {
	case err == nil:
		report.Created = append(report.Created, label)
		return nil
	case errors.Is(err, auth.ErrAlreadyExists):
		report.Skipped = append(report.Skipped, label)
		return nil
	default:
		return oops.Code("SEED_CREATE_FAILED").With("principal", label).Wrap(err)
	}
}

func (l *Loader) credentials(ctx context.Context, password, publicKey, privateKey string) (auth.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return auth.Credentials{}, err
	}
	hash, err := l.Hasher.Hash(password)
	if err != nil {
		return auth.Credentials{}, err
	}
	sealed, err := l.Sealer.Seal(privateKey, password)
	if err != nil {
		return auth.Credentials{}, err
	}
	return auth.Credentials{
		PasswordHash:        hash,
		PublicKey:           publicKey,
		EncryptedPrivateKey: sealed,
	}, nil
}
