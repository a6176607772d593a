// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/admissions-portal/portal/internal/config"
	"github.com/admissions-portal/portal/internal/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back or inspect the portal schema migrations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withMigrator(func(m Migrator) error { return runMigrateUp(cmd, m) })
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withMigrator(func(m Migrator) error { return runMigrateUp(cmd, m) })
		},
	})

	var confirm bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all portal data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return oops.Code("MIGRATION_NOT_CONFIRMED").Errorf("refusing to drop all data without --yes")
			}
			return a.withMigrator(func(m Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&confirm, "yes", false, "confirm dropping all portal tables")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withMigrator(func(m Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if dirty {
					cmd.Printf("%d (dirty)\n", v)
					return nil
				}
				cmd.Println(v)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withMigrator(func(m Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				cmd.Print(formatMigrationStatus(st))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long: `Records VERSION as the applied migration and clears the dirty flag.
Use it only after repairing a migration that failed partway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return a.withMigrator(func(m Migrator) error {
				if err := m.Force(v); err != nil {
					return err
				}
				cmd.Printf("Forced migration version %d\n", v)
				return nil
			})
		},
	})

	return cmd
}

func runMigrateUp(cmd *cobra.Command, m Migrator) error {
	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	v, _, err := m.Version()
	if err != nil {
		return err
	}
	cmd.Printf("Migrations complete (version %d)\n", v)
	return nil
}

// withMigrator opens a migrator for the configured database, runs fn and
// closes it.
func (a *app) withMigrator(fn func(Migrator) error) (err error) {
	if a.cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "database_url").
			Errorf("database URL is required (--database-url or %s)", config.EnvDatabaseURL)
	}
	m, err := a.deps.MigratorFactory(a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(m)
}

// parseForceVersion parses the VERSION argument of migrate force.
func parseForceVersion(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	// -1 clears the version.
	if v < -1 {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be -1 or greater")
	}
	return v, nil
}

func formatMigrationStatus(st *store.Status) string {
	var b strings.Builder
	state := "clean"
	if st.Dirty {
		state = "dirty"
	}
	fmt.Fprintf(&b, "Version: %d (%s)\n", st.Version, state)
	for _, v := range st.Applied {
		name, _ := store.MigrationName(v) //nolint:errcheck // name is cosmetic
		fmt.Fprintf(&b, "  applied  %s\n", nameOr(name, v))
	}
	for _, v := range st.Pending {
		name, _ := store.MigrationName(v) //nolint:errcheck // name is cosmetic
		fmt.Fprintf(&b, "  pending  %s\n", nameOr(name, v))
	}
	return b.String()
}

func nameOr(name string, v uint) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%06d", v)
}
