// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/admissions-portal/portal/internal/auth"
)

func newHashPasswordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from standard input",
		Long: `Reads a password from the first line of standard input and prints its
argon2id PHC string using the configured costs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readSecret(a.deps.Stdin)
			if err != nil {
				return err
			}
			hash, err := auth.NewArgon2Hasher(a.cfg.Argon2Params()).Hash(password)
			if err != nil {
				return err
			}
			cmd.Println(hash)
			return nil
		},
	}
}
