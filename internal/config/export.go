// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

package config

import (
	"net/url"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const redacted = "REDACTED"

// Map returns the configuration keyed the way the config file is. When
// redact is set, passwords and secrets are replaced and the database URL
// loses its password.
func (c *Config) Map(redact bool) map[string]any {
	secret := func(s string) string {
		if redact && s != "" {
			return redacted
		}
		return s
	}
	dbURL := c.DatabaseURL
	if redact {
		dbURL = redactURL(dbURL)
	}

	return map[string]any{
		"database_url": dbURL,
		"log_format":   c.LogFormat,
		"log_level":    c.LogLevel,
		"metrics_addr": c.MetricsAddr,
		"database": map[string]any{
			"connect_attempts": c.Database.ConnectAttempts,
			"connect_backoff":  c.Database.ConnectBackoff.String(),
		},
		"session": map[string]any{
			"backend":        c.Session.Backend,
			"ttl":            c.Session.TTL.String(),
			"keep_recent":    c.Session.KeepRecent,
			"sweep_interval": c.Session.SweepInterval.String(),
			"redis": map[string]any{
				"addr":              c.Session.Redis.Addr,
				"password":          secret(c.Session.Redis.Password),
				"db":                c.Session.Redis.DB,
				"prefix":            c.Session.Redis.Prefix,
				"expired_retention": c.Session.Redis.ExpiredRetention.String(),
			},
		},
		"token": map[string]any{
			"enabled":          c.Token.Enabled,
			"method":           c.Token.Method,
			"secret":           secret(c.Token.Secret),
			"private_key_file": c.Token.PrivateKeyFile,
			"public_key_file":  c.Token.PublicKeyFile,
			"ttl":              c.Token.TTL.String(),
			"issuer":           c.Token.Issuer,
			"leeway":           c.Token.Leeway.String(),
		},
		"crypto": map[string]any{
			"workers": c.Crypto.Workers,
			"argon2": map[string]any{
				"memory":  c.Crypto.Argon2.Memory,
				"time":    c.Crypto.Argon2.Time,
				"threads": c.Crypto.Argon2.Threads,
			},
		},
	}
}

// EncodeYAML encodes the configuration as a config file Load can read
// back.
func (c *Config) EncodeYAML(redact bool) ([]byte, error) {
	out, err := yaml.Marshal(c.Map(redact))
	if err != nil {
		return nil, oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	return out, nil
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	return u.Redacted()
}
