// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package store

import (
	"embed"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5:// driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	migrationsDir = "migrations"
	upSuffix      = ".up.sql"
)

// migrateIface is the part of *migrate.Migrate the Migrator drives.
type migrateIface interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migrator applies the embedded schema migrations.
type Migrator struct {
	m migrateIface
}

// NewMigrator opens the embedded migrations against databaseURL.
// postgres:// and postgresql:// URLs are accepted.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").Wrap(err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(databaseURL))
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}
	return &Migrator{m: m}, nil
}

// migrateURL switches postgres schemes to the pgx5 driver name.
func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// changed treats migrate.ErrNoChange as success and tags anything else.
func changed(code string, err error) error {
	if err == nil || errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return oops.Code(code).Wrap(err)
}

// Up applies all pending migrations.
func (m *Migrator) Up() error { return changed("MIGRATION_UP_FAILED", m.m.Up()) }

// Down rolls back every migration, dropping all portal tables and data.
func (m *Migrator) Down() error { return changed("MIGRATION_DOWN_FAILED", m.m.Down()) }

// Steps applies n migrations; negative n rolls back.
func (m *Migrator) Steps(n int) error {
	return oops.With("steps", n).Wrap(changed("MIGRATION_STEPS_FAILED", m.m.Steps(n)))
}

// Version returns the applied version and whether the last migration
// stopped partway. An empty database is version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Force records version as applied without running it and clears the
// dirty flag. -1 removes the version entirely.
func (m *Migrator) Force(version int) error {
	if version < -1 {
		return oops.Code("INVALID_VERSION").Errorf("version must be -1 or greater, got %d", version)
	}
	if err := m.m.Force(version); err != nil {
		return oops.Code("MIGRATION_FORCE_FAILED").With("version", version).Wrap(err)
	}
	return nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr == nil && dbErr == nil {
		return nil
	}
	component := "both"
	if dbErr == nil {
		component = "source"
	} else if srcErr == nil {
		component = "database"
	}
	return oops.Code("MIGRATION_CLOSE_FAILED").With("component", component).Wrap(errors.Join(srcErr, dbErr))
}

// Status describes applied and pending migrations.
type Status struct {
	Version uint
	Dirty   bool
	Applied []uint
	Pending []uint
}

// Status splits the embedded migrations around the current version.
func (m *Migrator) Status() (*Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return nil, err
	}
	catalog, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	st := &Status{Version: version, Dirty: dirty}
	for _, mig := range catalog {
		if mig.version <= version {
			st.Applied = append(st.Applied, mig.version)
		} else {
			st.Pending = append(st.Pending, mig.version)
		}
	}
	return st, nil
}

// MigrationName returns the NNNNNN_name stem of the up migration for
// version, or "" when there is none.
func MigrationName(version uint) (string, error) {
	catalog, err := loadCatalog()
	if err != nil {
		return "", err
	}
	for _, mig := range catalog {
		if mig.version == version {
			return mig.name, nil
		}
	}
	return "", nil
}

type migration struct {
	version uint
	name    string
}

// loadCatalog lists the embedded up migrations by ascending version.
func loadCatalog() ([]migration, error) {
	entries, err := migrationsFS.ReadDir(migrationsDir)
	if err != nil {
		return nil, oops.Code("MIGRATION_LIST_FAILED").Wrap(err)
	}

	var catalog []migration
	for _, entry := range entries {
		stem, ok := strings.CutSuffix(entry.Name(), upSuffix)
		if !ok {
			continue
		}
		prefix, _, _ := strings.Cut(stem, "_")
		v, err := strconv.ParseUint(prefix, 10, 0)
		if err != nil {
			return nil, oops.Code("MIGRATION_LIST_FAILED").With("filename", entry.Name()).Wrap(err)
		}
		catalog = append(catalog, migration{version: uint(v), name: stem})
	}
	slices.SortFunc(catalog, func(a, b migration) int { return int(a.version) - int(b.version) })
	return catalog, nil
}
