// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

// Package auth authenticates the portal's principals: candidates, identified
// by application number, and admins.
//
// # Domain Types
//
// Sessions should be created with NewSession, which validates the principal
// and lifetime and draws a random v4 identifier. Principals are loaded from a
// CredentialStore and are never modified by authentication.
//
// # Services
//
//   - SessionManager - create, validate, invalidate and prune sessions
//   - TokenIssuer - stateless signed tokens, unrevocable until expiry
//   - Service - login, authenticate and logout for one principal kind
//   - Authenticator - dispatches to the Service of the requested kind
//   - Sweeper - optional periodic removal of expired sessions
//
// # Errors
//
// Service operations fail with *Error, whose Kind is one of a closed set.
// Use errors.Is with the Err* sentinels or KindOf to classify a failure.
// Causes are oops errors carrying a code and structured context for logs.
package auth
