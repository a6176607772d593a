// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/admissions-portal/portal/internal/seed"
	"github.com/admissions-portal/portal/internal/xdg"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialize configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := a.resolveConfigPath()
			if err != nil {
				return err
			}
			cmd.Println(path)
			return nil
		},
	})

	var showSecrets bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.cfg.EncodeYAML(!showSecrets)
			if err != nil {
				return err
			}
			cmd.Print(string(out))
			return nil
		},
	}
	show.Flags().BoolVar(&showSecrets, "show-secrets", false, "print passwords and secrets in clear")
	cmd.AddCommand(show)

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Long: `Writes the effective configuration (defaults, flags and environment) to
the config file so it can be edited. Secrets are written in clear and the
file is created with 0600 permissions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := a.resolveConfigPath()
			if err != nil {
				return err
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return oops.Code("CONFIG_EXISTS").With("path", path).Errorf("config file already exists (use --force to overwrite)")
				} else if !errors.Is(err, fs.ErrNotExist) {
					return oops.Code("CONFIG_STAT_FAILED").With("path", path).Wrap(err)
				}
			}
			out, err := a.cfg.EncodeYAML(false)
			if err != nil {
				return err
			}
			if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
				return err
			}
			if err := os.WriteFile(path, out, 0o600); err != nil {
				return oops.Code("CONFIG_WRITE_FAILED").With("path", path).Wrap(err)
			}
			cmd.Println("Wrote", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of seed manifests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := seed.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(schema))
			return nil
		},
	})

	return cmd
}

// resolveConfigPath returns --config if given, else the XDG default.
func (a *app) resolveConfigPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return xdg.ConfigFile()
}
