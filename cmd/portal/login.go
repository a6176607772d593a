// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/admissions-portal/portal/internal/auth"
)

const defaultLoginIP = "127.0.0.1"

type loginOptions struct {
	kind string
	id   string
	ip   string
}

func newLoginCmd(a *app) *cobra.Command {
	opts := &loginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log a principal in and print the new session",
		Long: `Reads the password from the first line of standard input, verifies it and
prints the new session id. The token and, for admins, the decrypted private
key are printed when available.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := auth.ParseKind(opts.kind)
			if err != nil {
				return err
			}
			id, err := auth.ParsePrincipalID(opts.id)
			if err != nil {
				return err
			}
			password, err := readSecret(a.deps.Stdin)
			if err != nil {
				return err
			}

			b, err := a.openBackend(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer b.Close()

			res, err := b.authenticator.Login(cmd.Context(), kind, id, password, opts.ip)
			if err != nil {
				return err
			}
			cmd.Println("session:", res.Session.ID)
			cmd.Println("expires:", res.Session.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
			if res.Token != "" {
				cmd.Println("token:", res.Token)
			}
			if res.PrivateKey != nil {
				cmd.Println("private_key:", *res.PrivateKey)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.kind, "kind", string(auth.KindCandidate), "principal kind (candidate or admin)")
	cmd.Flags().StringVar(&opts.id, "id", "", "principal id")
	cmd.Flags().StringVar(&opts.ip, "ip", defaultLoginIP, "client address recorded on the session")
	_ = cmd.MarkFlagRequired("id") //nolint:errcheck // flag is defined above

	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	var kindName string

	cmd := &cobra.Command{
		Use:   "whoami SESSION_ID|TOKEN",
		Short: "Resolve a session id or token to its principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := auth.ParseKind(kindName)
			if err != nil {
				return err
			}
			b, err := a.openBackend(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer b.Close()

			p, err := b.authenticator.Authenticate(cmd.Context(), kind, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			cmd.Printf("%s %d\n", p.PrincipalKind(), p.PrincipalID())
			if pub := p.PrincipalCredentials().PublicKey; pub != "" {
				cmd.Println("public_key:", pub)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kindName, "kind", string(auth.KindCandidate), "principal kind (candidate or admin)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	var kindName string

	cmd := &cobra.Command{
		Use:   "logout SESSION_ID",
		Short: "Invalidate a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := auth.ParseKind(kindName)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(strings.TrimSpace(args[0]))
			if err != nil {
				return oops.Code("INVALID_SESSION_ID").With("session_id", args[0]).Wrap(err)
			}
			b, err := a.openBackend(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.authenticator.Logout(cmd.Context(), kind, id); err != nil {
				return err
			}
			cmd.Println("Logged out")
			return nil
		},
	}

	cmd.Flags().StringVar(&kindName, "kind", string(auth.KindCandidate), "principal kind (candidate or admin)")
	return cmd
}

// readSecret returns the first line of r without its line terminator.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", oops.Code("STDIN_READ_FAILED").Wrap(err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", oops.Code("PASSWORD_REQUIRED").Errorf("password must be given on standard input")
	}
	return line, nil
}
