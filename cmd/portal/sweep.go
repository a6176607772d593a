// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/admissions-portal/portal/internal/auth"
)

func newSweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions once",
		Long: `Runs a single expired-session sweep over every kind and prints the number
of sessions removed. Kinds whose store expires sessions on its own, such as
Redis, or whose sweep failed are reported as not swept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.openBackend(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer b.Close()

			counts, err := b.sweeper(a, nil).SweepOnce(cmd.Context())
			for _, kind := range auth.Kinds {
				n, ok := counts[kind]
				if !ok {
					cmd.Printf("%s: not swept\n", kind)
					continue
				}
				cmd.Printf("%s: %d expired sessions deleted\n", kind, n)
			}
			return err
		},
	}
}
