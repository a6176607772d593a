// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

// Package authstatus maps authentication errors to transport status codes.
// The auth package carries no transport concepts; boundaries call HTTPStatus
// or ExitCode when they need one.
package authstatus

import (
	"net/http"

	"github.com/admissions-portal/portal/internal/auth"
)

// HTTPStatus returns the HTTP status for an authentication result.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	kind, ok := auth.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case auth.KindInvalidCredentials,
		auth.KindUnauthorized,
		auth.KindExpiredSession,
		auth.KindTokenInvalid,
		auth.KindTokenExpired:
		return http.StatusUnauthorized
	case auth.KindPrincipalNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Process exit codes used by the CLI.
const (
	ExitOK           = 0
	ExitInternal     = 1
	ExitUnauthorized = 3
	ExitNotFound     = 4
)

// ExitCode returns the CLI exit code for an authentication result.
func ExitCode(err error) int {
	switch HTTPStatus(err) {
	case http.StatusOK:
		return ExitOK
	case http.StatusUnauthorized:
		return ExitUnauthorized
	case http.StatusNotFound:
		return ExitNotFound
	default:
		return ExitInternal
	}
}

// Message returns a client-safe description of err. Causes are never
// included; they belong in logs.
func Message(err error) string {
	if err == nil {
		return ""
	}
	kind, ok := auth.KindOf(err)
	if !ok {
		return "internal error"
	}
	switch kind {
	case auth.KindInvalidCredentials:
		return "invalid credentials"
	case auth.KindUnauthorized:
		return "unauthorized"
	case auth.KindExpiredSession:
		return "session expired"
	case auth.KindPrincipalNotFound:
		return "account not found"
	case auth.KindTokenInvalid:
		return "invalid token"
	case auth.KindTokenExpired:
		return "token expired"
	default:
		return "internal error"
	}
}
