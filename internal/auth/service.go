// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/admissions-portal/portal/pkg/errutil"
)

var tracer = otel.Tracer("portal/auth")

// LoginResult is returned by a successful login.
type LoginResult struct {
	Session *Session
	// Token is set when the service has a TokenIssuer.
	Token string
	// PrivateKey is the decrypted private key, set for kinds with a key hook.
	PrivateKey *string
}

// PostLoginHook runs after a session has been created for principal. It
// returns the decrypted private key, if the kind has one to release.
type PostLoginHook[P Principal] func(ctx context.Context, principal P, password string) (*string, error)

type serviceOptions struct {
	pool       *CryptoPool
	tokens     *TokenIssuer
	keepRecent int
	logger     *slog.Logger
	metrics    MetricsRecorder
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

// WithCryptoPool sets the pool used for password verification and key
// decryption. Services created without one get a private pool.
func WithCryptoPool(pool *CryptoPool) ServiceOption {
	return func(o *serviceOptions) { o.pool = pool }
}

// WithTokenIssuer enables the token path of Login and Authenticate.
func WithTokenIssuer(tokens *TokenIssuer) ServiceOption {
	return func(o *serviceOptions) { o.tokens = tokens }
}

// WithKeepRecent sets how many sessions survive the prune after login. It
// must be at least 1 so the session just created is kept.
func WithKeepRecent(n int) ServiceOption {
	return func(o *serviceOptions) { o.keepRecent = n }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}

// Service authenticates principals of kind P with passwords, sessions and
// optionally tokens.
type Service[P Principal] struct {
	kind      Kind
	creds     CredentialStore[P]
	sessions  *SessionManager
	hasher    PasswordHasher
	postLogin PostLoginHook[P]
	serviceOptions
}

// NewService creates a Service. postLogin may be nil.
func NewService[P Principal](
	creds CredentialStore[P],
	sessions *SessionManager,
	hasher PasswordHasher,
	postLogin PostLoginHook[P],
	opts ...ServiceOption,
) (*Service[P], error) {
	if creds == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("credential store is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("session manager is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}

	o := serviceOptions{
		keepRecent: DefaultKeepRecent,
		logger:     slog.Default(),
		metrics:    noopMetrics{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.keepRecent < 1 {
		return nil, oops.Code("AUTH_SERVICE_INVALID").
			With("keep_recent", o.keepRecent).
			Errorf("keep recent must be at least 1")
	}
	if o.pool == nil {
		o.pool = NewCryptoPool(0)
	}
	if o.tokens != nil && o.tokens.Kind() != sessions.Kind() {
		return nil, oops.Code("AUTH_SERVICE_INVALID").
			With("session_kind", string(sessions.Kind())).
			With("token_kind", string(o.tokens.Kind())).
			Errorf("token issuer kind does not match session manager")
	}

	return &Service[P]{
		kind:           sessions.Kind(),
		creds:          creds,
		sessions:       sessions,
		hasher:         hasher,
		postLogin:      postLogin,
		serviceOptions: o,
	}, nil
}

// Kind returns the principal kind served.
func (s *Service[P]) Kind() Kind {
	return s.kind
}

// Login verifies the principal's password, starts a session, prunes older
// sessions and runs the kind's post-login hook.
//
// A post-login failure is returned even though the session already exists;
// the session is not rolled back.
func (s *Service[P]) Login(ctx context.Context, id int32, password, ipAddress string) (result *LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.login", trace.WithAttributes(
		attribute.String("auth.kind", string(s.kind)),
		attribute.Int("auth.principal_id", int(id)),
	))
	defer func() {
		s.metrics.LoginAttempt(s.kind, resultLabel(err))
		endSpan(span, err)
	}()

	principal, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if err = s.verifyPassword(ctx, principal, password); err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(ctx, id, ipAddress)
	if err != nil {
		return nil, err
	}
	result = &LoginResult{Session: session}

	pruned, pruneErr := s.sessions.Prune(ctx, id, s.keepRecent)
	if pruneErr != nil {
		errutil.LogWarnContext(ctx, s.logger, "best-effort session prune failed", pruneErr,
			"operation", "prune_sessions",
			"kind", string(s.kind),
			"principal_id", id)
	}
	if pruned > 0 {
		s.metrics.SessionsPruned(s.kind, pruned)
	}

	if s.tokens != nil {
		token, tokenErr := s.tokens.Issue(id)
		if tokenErr != nil {
			errutil.LogWarnContext(ctx, s.logger, "token issue failed, continuing with session only", tokenErr,
				"operation", "issue_token",
				"kind", string(s.kind),
				"principal_id", id)
		} else {
			result.Token = token
		}
	}

	if s.postLogin != nil {
		key, hookErr := s.postLogin(ctx, principal, password)
		if hookErr != nil {
			err = wrapKind(KindDecryptionFailure, oops.
				With("kind", string(s.kind)).
				With("principal_id", id).
				With("session_id", session.ID.String()).
				Wrap(hookErr))
			return nil, err
		}
		result.PrivateKey = key
	}

	s.logger.InfoContext(ctx, "login succeeded",
		"kind", string(s.kind),
		"principal_id", id,
		"session_id", session.ID.String(),
		"sessions_pruned", pruned)
	return result, nil
}

// Authenticate resolves an identifier to a principal. A UUID is treated as a
// session id; a compact JWS is treated as a token when the service issues
// tokens. Anything else is unauthorized.
func (s *Service[P]) Authenticate(ctx context.Context, identifier string) (principal P, err error) {
	ctx, span := tracer.Start(ctx, "auth.authenticate", trace.WithAttributes(
		attribute.String("auth.kind", string(s.kind)),
	))
	defer func() {
		s.metrics.Authentication(s.kind, resultLabel(err))
		endSpan(span, err)
	}()

	if id, parseErr := uuid.Parse(identifier); parseErr == nil {
		span.SetAttributes(attribute.String("auth.path", "session"))
		principal, _, err = s.authenticateSession(ctx, id)
		return principal, err
	}

	if s.tokens != nil && looksLikeToken(identifier) {
		span.SetAttributes(attribute.String("auth.path", "token"))
		principalID, decodeErr := s.tokens.Decode(identifier)
		if decodeErr != nil {
			return principal, decodeErr
		}
		principal, err = s.lookup(ctx, principalID)
		return principal, err
	}

	err = newError(KindUnauthorized, oops.Code("AUTH_UNRECOGNIZED_IDENTIFIER").
		With("kind", string(s.kind)).
		Errorf("identifier is neither a session id nor an accepted token"))
	return principal, err
}

// AuthenticateSession resolves a session id to its principal and session.
func (s *Service[P]) AuthenticateSession(ctx context.Context, id uuid.UUID) (principal P, session *Session, err error) {
	ctx, span := tracer.Start(ctx, "auth.authenticate_session", trace.WithAttributes(
		attribute.String("auth.kind", string(s.kind)),
		attribute.String("auth.session_id", id.String()),
	))
	defer func() {
		s.metrics.Authentication(s.kind, resultLabel(err))
		endSpan(span, err)
	}()
	return s.authenticateSession(ctx, id)
}

// Logout invalidates the session. Logging out of an unknown session succeeds.
func (s *Service[P]) Logout(ctx context.Context, sessionID uuid.UUID) (err error) {
	ctx, span := tracer.Start(ctx, "auth.logout", trace.WithAttributes(
		attribute.String("auth.kind", string(s.kind)),
		attribute.String("auth.session_id", sessionID.String()),
	))
	defer func() { endSpan(span, err) }()

	if err = s.sessions.Invalidate(ctx, sessionID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "logout", "kind", string(s.kind), "session_id", sessionID.String())
	return nil
}

func (s *Service[P]) authenticateSession(ctx context.Context, id uuid.UUID) (principal P, session *Session, err error) {
	session, err = s.sessions.AuthenticateByID(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return principal, nil, newError(KindUnauthorized, err)
	}
	if err != nil {
		return principal, nil, wrapKind(KindStoreError, err)
	}

	principal, err = s.lookup(ctx, session.PrincipalID)
	if err != nil {
		return principal, nil, err
	}
	return principal, session, nil
}

func (s *Service[P]) lookup(ctx context.Context, id int32) (P, error) {
	principal, err := s.creds.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		var zero P
		return zero, newError(KindPrincipalNotFound, oops.Code("PRINCIPAL_NOT_FOUND").
			With("kind", string(s.kind)).
			With("principal_id", id).
			Wrap(err))
	}
	if err != nil {
		var zero P
		return zero, newError(KindStoreError, oops.Code("PRINCIPAL_LOOKUP_FAILED").
			With("kind", string(s.kind)).
			With("principal_id", id).
			Wrap(err))
	}
	return principal, nil
}

func (s *Service[P]) verifyPassword(ctx context.Context, principal P, password string) error {
	var valid bool
	var verifyErr error
	err := s.pool.Do(ctx, func() error {
		valid, verifyErr = s.hasher.Verify(password, principal.PrincipalCredentials().PasswordHash)
		return nil
	})
	if err != nil {
		return newError(KindStoreError, oops.
			With("kind", string(s.kind)).
			With("principal_id", principal.PrincipalID()).
			Wrap(err))
	}
	if verifyErr != nil {
		errutil.LogWarnContext(ctx, s.logger, "stored password hash rejected", verifyErr,
			"kind", string(s.kind),
			"principal_id", principal.PrincipalID())
		return newError(KindInvalidCredentials, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(verifyErr))
	}
	if !valid {
		return newError(KindInvalidCredentials, oops.Code("AUTH_INVALID_CREDENTIALS").
			With("kind", string(s.kind)).
			With("principal_id", principal.PrincipalID()).
			Errorf("invalid credentials"))
	}
	if u, ok := s.hasher.(UpgradeChecker); ok && u.NeedsUpgrade(principal.PrincipalCredentials().PasswordHash) {
		s.logger.InfoContext(ctx, "stored password hash uses a legacy algorithm",
			"kind", string(s.kind),
			"principal_id", principal.PrincipalID())
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SealedKeyHook returns a post-login hook that decrypts the principal's
// private key with the login password on pool.
func SealedKeyHook[P Principal](sealer *KeySealer, pool *CryptoPool) PostLoginHook[P] {
	return func(ctx context.Context, principal P, password string) (*string, error) {
		var key string
		var openErr error
		if err := pool.Do(ctx, func() error {
			key, openErr = sealer.Open(principal.PrincipalCredentials().EncryptedPrivateKey, password)
			return nil
		}); err != nil {
			return nil, newError(KindDecryptionFailure, err)
		}
		if openErr != nil {
			return nil, openErr
		}
		return &key, nil
	}
}

// NewCandidateService creates the candidate authentication service.
// Candidates do not receive their private key at login.
func NewCandidateService(
	creds CredentialStore[*Candidate],
	sessions *SessionManager,
	hasher PasswordHasher,
	opts ...ServiceOption,
) (*Service[*Candidate], error) {
	if sessions != nil && sessions.Kind() != KindCandidate {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("candidate service needs a candidate session manager")
	}
	return NewService(creds, sessions, hasher, nil, opts...)
}

// NewAdminService creates the admin authentication service. A successful
// admin login also returns the admin's decrypted private key.
func NewAdminService(
	creds CredentialStore[*Admin],
	sessions *SessionManager,
	hasher PasswordHasher,
	sealer *KeySealer,
	opts ...ServiceOption,
) (*Service[*Admin], error) {
	if sessions != nil && sessions.Kind() != KindAdmin {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("admin service needs an admin session manager")
	}
	if sealer == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("key sealer is required")
	}
	o := serviceOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	pool := o.pool
	if pool == nil {
		pool = NewCryptoPool(0)
		opts = append(opts, WithCryptoPool(pool))
	}
	return NewService(creds, sessions, hasher, SealedKeyHook[*Admin](sealer, pool), opts...)
}
