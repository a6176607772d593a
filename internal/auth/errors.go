// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package auth

import "errors"

// ErrNotFound is returned by stores when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned by stores when creating an entity whose key
// is taken.
var ErrAlreadyExists = errors.New("already exists")

// ErrSessionNotFound is returned by SessionManager.AuthenticateByID when no
// session exists for the identifier. Services surface it as ErrUnauthorized.
var ErrSessionNotFound = errors.New("session not found")

// ErrorKind classifies failures surfaced by the authentication services.
// The set is closed; callers switch on it to choose a response.
type ErrorKind uint8

// Error kinds. The zero value is not a valid kind.
const (
	KindInvalidCredentials ErrorKind = iota + 1
	KindUnauthorized
	KindExpiredSession
	KindPrincipalNotFound
	KindDecryptionFailure
	KindTokenInvalid
	KindTokenExpired
	KindStoreError
)

var kindNames = map[ErrorKind]string{
	KindInvalidCredentials: "invalid_credentials",
	KindUnauthorized:       "unauthorized",
	KindExpiredSession:     "expired_session",
	KindPrincipalNotFound:  "principal_not_found",
	KindDecryptionFailure:  "decryption_failure",
	KindTokenInvalid:       "token_invalid",
	KindTokenExpired:       "token_expired",
	KindStoreError:         "store_error",
}

// String returns the snake_case name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is the error type returned by Service and Authenticator operations.
// Err carries the underlying cause, usually an oops error with a code and
// structured context for logging.
type Error struct {
	Kind ErrorKind
	Err  error
}

// Sentinels for use with errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrExpiredSession     = &Error{Kind: KindExpiredSession}
	ErrPrincipalNotFound  = &Error{Kind: KindPrincipalNotFound}
	ErrDecryptionFailure  = &Error{Kind: KindDecryptionFailure}
	ErrTokenInvalid       = &Error{Kind: KindTokenInvalid}
	ErrTokenExpired       = &Error{Kind: KindTokenExpired}
	ErrStoreError         = &Error{Kind: KindStoreError}
)

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// wrapKind returns err unchanged when it already carries a kind, otherwise
// it classifies err as fallback.
func wrapKind(fallback ErrorKind, err error) error {
	if _, ok := KindOf(err); ok {
		return err
	}
	return newError(fallback, err)
}
