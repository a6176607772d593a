// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

// Package main is the entry point for the portal CLI.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/admissions-portal/portal/internal/authstatus"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	os.Exit(execute(cmd))
}

// execute runs cmd and returns the process exit code. Authentication
// rejections print the client-safe message; everything else prints the
// full error for the operator.
func execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return authstatus.ExitOK
	}
	switch authstatus.HTTPStatus(err) {
	case http.StatusUnauthorized, http.StatusNotFound:
		cmd.PrintErrln("Error:", authstatus.Message(err))
	default:
		cmd.PrintErrln("Error:", err)
	}
	return authstatus.ExitCode(err)
}
