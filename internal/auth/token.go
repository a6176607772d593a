// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package auth

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

// Supported signing methods.
const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// DefaultTokenTTL is the validity window of issued tokens.
const DefaultTokenTTL = 24 * time.Hour

// TokenConfig configures a TokenIssuer. It is read once at construction.
type TokenConfig struct {
	Kind   Kind
	Method SigningMethod
	// Secret is the HMAC key for MethodHS256.
	Secret []byte
	// PrivateKey and PublicKey are raw or PEM ed25519 keys for MethodEd25519.
	// A verify-only issuer may omit PrivateKey.
	PrivateKey []byte
	PublicKey  []byte
	TTL        time.Duration
	Issuer     string
	Leeway     time.Duration
	Now        func() time.Time
}

// TokenClaims are the claims carried by issued tokens. The audience is the
// principal kind, so tokens of one kind are rejected by the other's issuer.
type TokenClaims struct {
	PrincipalID int32 `json:"pid"`
	Kind        Kind  `json:"knd"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and verifies stateless signed tokens for one
// principal kind. Tokens cannot be revoked before they expire.
type TokenIssuer struct {
	kind      Kind
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	ttl       time.Duration
	issuer    string
	leeway    time.Duration
	now       func() time.Time
}

// NewTokenIssuer validates cfg and creates a TokenIssuer.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if !cfg.Kind.Valid() {
		return nil, oops.Code("TOKEN_INVALID_CONFIG").With("kind", string(cfg.Kind)).Errorf("unknown principal kind")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.TTL < 0 {
		return nil, oops.Code("TOKEN_INVALID_CONFIG").Errorf("ttl must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, oops.Code("TOKEN_INVALID_CONFIG").With("leeway", cfg.Leeway.String()).Errorf("leeway out of range")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	t := &TokenIssuer{
		kind:   cfg.Kind,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		leeway: cfg.Leeway,
		now:    cfg.Now,
	}

	switch cfg.Method {
	case MethodHS256, "":
		if len(cfg.Secret) < 32 {
			return nil, oops.Code("TOKEN_INVALID_CONFIG").Errorf("hs256 secret must be at least 32 bytes")
		}
		t.method = jwt.SigningMethodHS256
		t.signKey = cfg.Secret
		t.verifyKey = cfg.Secret
	case MethodEd25519:
		t.method = jwt.SigningMethodEdDSA
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, oops.Code("TOKEN_INVALID_CONFIG").Wrap(err)
		}
		t.verifyKey = pub
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, oops.Code("TOKEN_INVALID_CONFIG").Wrap(err)
			}
			t.signKey = priv
		}
	default:
		return nil, oops.Code("TOKEN_INVALID_CONFIG").With("method", string(cfg.Method)).Errorf("unsupported signing method")
	}

	return t, nil
}

// Kind returns the principal kind the issuer serves.
func (t *TokenIssuer) Kind() Kind {
	return t.kind
}

// Issue signs a token for principalID valid for the configured TTL.
func (t *TokenIssuer) Issue(principalID int32) (string, error) {
	if t.signKey == nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").Errorf("issuer has no signing key")
	}

	now := t.now()
	claims := TokenClaims{
		PrincipalID: principalID,
		Kind:        t.kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{string(t.kind)},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.signKey)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("principal_id", principalID).Wrap(err)
	}
	return signed, nil
}

// Decode verifies a token and returns the principal id it names.
// Expired tokens fail with ErrTokenExpired; every other failure with
// ErrTokenInvalid. Decode never consults a store.
func (t *TokenIssuer) Decode(token string) (int32, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{t.method.Alg()}),
		jwt.WithAudience(string(t.kind)),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	}
	if t.leeway > 0 {
		options = append(options, jwt.WithLeeway(t.leeway))
	}
	if t.issuer != "" {
		options = append(options, jwt.WithIssuer(t.issuer))
	}

	var claims TokenClaims
	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, newError(KindTokenExpired, oops.Code("TOKEN_EXPIRED").Wrap(err))
		}
		return 0, newError(KindTokenInvalid, oops.Code("TOKEN_INVALID").Wrap(err))
	}
	if !parsed.Valid || claims.PrincipalID <= 0 || claims.Kind != t.kind {
		return 0, newError(KindTokenInvalid, oops.Code("TOKEN_INVALID").
			With("kind", string(claims.Kind)).
			Errorf("token claims rejected"))
	}
	return claims.PrincipalID, nil
}

// looksLikeToken reports whether s has the three-segment compact JWS shape.
func looksLikeToken(s string) bool {
	return strings.Count(s, ".") == 2 && !strings.ContainsAny(s, " \t\r\n")
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, oops.Errorf("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, oops.Errorf("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, oops.Errorf("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, oops.Errorf("invalid ed25519 public key type")
	}
	return edKey, nil
}
