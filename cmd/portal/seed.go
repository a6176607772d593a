// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package main

import (
	"context"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/admissions-portal/portal/internal/auth"
	"github.com/admissions-portal/portal/internal/auth/postgres"
	"github.com/admissions-portal/portal/internal/seed"
)

// Default timeout for the seed command.
const defaultSeedTimeout = 2 * time.Minute

type seedOptions struct {
	file         string
	timeout      time.Duration
	validateOnly bool
}

func newSeedCmd(a *app) *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load candidates and admins from a seed manifest",
		Long: `Creates the principals listed in a YAML seed manifest, hashing their
passwords and sealing their private keys. Principals that already exist are
skipped, so the command is safe to run repeatedly.

With --validate-only the manifest is checked against its schema and nothing
is written; no database connection is needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "seed manifest path")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultSeedTimeout, "timeout for the whole load")
	cmd.Flags().BoolVar(&opts.validateOnly, "validate-only", false, "validate the manifest without loading it")
	_ = cmd.MarkFlagRequired("file") //nolint:errcheck // flag is defined above

	return cmd
}

func runSeed(cmd *cobra.Command, a *app, opts *seedOptions) error {
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return oops.Code("SEED_READ_FAILED").With("path", opts.file).Wrap(err)
	}
	manifest, err := seed.Parse(data)
	if err != nil {
		return oops.With("path", opts.file).Wrap(err)
	}

	if opts.validateOnly {
		cmd.Printf("%s: valid (%d candidates, %d admins)\n", opts.file, len(manifest.Candidates), len(manifest.Admins))
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	pool, err := a.connectDatabase(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	params := a.cfg.Argon2Params()
	loader := &seed.Loader{
		Candidates: postgres.NewCandidateRepository(pool),
		Admins:     postgres.NewAdminRepository(pool),
		Hasher:     auth.NewArgon2Hasher(params),
		Sealer:     auth.NewKeySealer(params),
		Workers:    a.cfg.Crypto.Workers,
		Logger:     a.logger,
		Now:        a.deps.Now,
	}
	report, err := loader.Load(ctx, manifest)
	if err != nil {
		return err
	}

	for _, p := range report.Created {
		cmd.Println("created", p)
	}
	for _, p := range report.Skipped {
		cmd.Println("exists ", p)
	}
	cmd.Printf("Seed complete: %d created, %d skipped\n", len(report.Created), len(report.Skipped))
	return nil
}
