// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/admissions-portal/portal/internal/config"
	"github.com/admissions-portal/portal/internal/logging"
)

// app carries state shared by subcommands. The root command's
// PersistentPreRunE loads cfg and logger before any subcommand runs.
type app struct {
	deps       *Deps
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCmd creates the root command for the portal CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	a := &app{deps: deps.withDefaults()}

	cmd := &cobra.Command{
		Use:   "portal",
		Short: "Admissions portal authentication",
		Long: `Portal authenticates admissions candidates and administrators with
passwords, server-side sessions and optional signed tokens.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file path (default $XDG_CONFIG_HOME/portal/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newSeedCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newSweepCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newWhoamiCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newHashPasswordCmd(a))
	cmd.AddCommand(newConfigCmd(a))

	return cmd
}

// load reads configuration and installs the default logger.
func (a *app) load(cmd *cobra.Command) error {
	loader := config.Loader{Getenv: a.deps.Getenv}
	cfg, err := loader.Load(cmd.Flags(), a.configPath)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger, err := logging.SetDefault(logging.Options{
		Service: "portal",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   level,
		Writer:  a.deps.LogWriter,
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}
