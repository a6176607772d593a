// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Admissions Portal Contributors

// Package config loads portal configuration with koanf.
//
// Sources, lowest precedence first: flag defaults, the YAML config file,
// flags set on the command line, then DATABASE_URL and PORTAL_TOKEN_SECRET
// from the environment for values still empty.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/admissions-portal/portal/internal/auth"
	"github.com/admissions-portal/portal/internal/xdg"
)

// Environment variables consulted when the config leaves a value empty.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvTokenSecret = "PORTAL_TOKEN_SECRET"
)

// Session backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the full portal configuration.
type Config struct {
	DatabaseURL string         `koanf:"database_url"`
	LogFormat   string         `koanf:"log_format"`
	LogLevel    string         `koanf:"log_level"`
	MetricsAddr string         `koanf:"metrics_addr"`
	Database    DatabaseConfig `koanf:"database"`
	Session     SessionConfig  `koanf:"session"`
	Token       TokenConfig    `koanf:"token"`
	Crypto      CryptoConfig   `koanf:"crypto"`
}

// DatabaseConfig controls the connection bootstrap.
type DatabaseConfig struct {
	ConnectAttempts uint64        `koanf:"connect_attempts"`
	ConnectBackoff  time.Duration `koanf:"connect_backoff"`
}

// SessionConfig controls session lifetime and storage.
type SessionConfig struct {
	Backend       string        `koanf:"backend"`
	TTL           time.Duration `koanf:"ttl"`
	KeepRecent    int           `koanf:"keep_recent"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	Redis         RedisConfig   `koanf:"redis"`
}

// RedisConfig configures the Redis session backend.
type RedisConfig struct {
	Addr             string        `koanf:"addr"`
	Password         string        `koanf:"password"`
	DB               int           `koanf:"db"`
	Prefix           string        `koanf:"prefix"`
	ExpiredRetention time.Duration `koanf:"expired_retention"`
}

// TokenConfig configures stateless tokens.
type TokenConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Method         string        `koanf:"method"`
	Secret         string        `koanf:"secret"`
	PrivateKeyFile string        `koanf:"private_key_file"`
	PublicKeyFile  string        `koanf:"public_key_file"`
	TTL            time.Duration `koanf:"ttl"`
	Issuer         string        `koanf:"issuer"`
	Leeway         time.Duration `koanf:"leeway"`
}

// CryptoConfig sizes the crypto pool and argon2 costs.
type CryptoConfig struct {
	Workers int          `koanf:"workers"`
	Argon2  Argon2Config `koanf:"argon2"`
}

// Argon2Config holds argon2 cost parameters for new hashes and sealed keys.
type Argon2Config struct {
	Memory  uint32 `koanf:"memory"`
	Time    uint32 `koanf:"time"`
	Threads uint8  `koanf:"threads"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"database-url":            "database_url",
	"log-format":              "log_format",
	"log-level":               "log_level",
	"metrics-addr":            "metrics_addr",
	"db-connect-attempts":     "database.connect_attempts",
	"db-connect-backoff":      "database.connect_backoff",
	"session-backend":         "session.backend",
	"session-ttl":             "session.ttl",
	"session-keep-recent":     "session.keep_recent",
	"session-sweep-interval":  "session.sweep_interval",
	"redis-addr":              "session.redis.addr",
	"redis-password":          "session.redis.password",
	"redis-db":                "session.redis.db",
	"redis-prefix":            "session.redis.prefix",
	"redis-expired-retention": "session.redis.expired_retention",
	"token-enabled":           "token.enabled",
	"token-method":            "token.method",
	"token-private-key-file":  "token.private_key_file",
	"token-public-key-file":   "token.public_key_file",
	"token-ttl":               "token.ttl",
	"token-issuer":            "token.issuer",
	"token-leeway":            "token.leeway",
	"crypto-workers":          "crypto.workers",
	"argon2-memory":           "crypto.argon2.memory",
	"argon2-time":             "crypto.argon2.time",
	"argon2-threads":          "crypto.argon2.threads",
}

// RegisterFlags adds every configuration flag, with its default, to flags.
// The token secret has no flag; it comes from the file or the environment.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("database-url", "", "PostgreSQL connection URL (default $"+EnvDatabaseURL+")")
	flags.String("log-format", "json", "log format (json or text)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")

	flags.Uint64("db-connect-attempts", 5, "database connection attempts before giving up")
	flags.Duration("db-connect-backoff", 500*time.Millisecond, "initial backoff between connection attempts")

	flags.String("session-backend", BackendPostgres, "session store (postgres or redis)")
	flags.Duration("session-ttl", auth.DefaultSessionTTL, "session lifetime")
	flags.Int("session-keep-recent", auth.DefaultKeepRecent, "sessions kept per principal after login")
	flags.Duration("session-sweep-interval", auth.DefaultSweepInterval, "interval between expired session sweeps")

	flags.String("redis-addr", "127.0.0.1:6379", "Redis address for the redis session backend")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database number")
	flags.String("redis-prefix", "portal", "Redis key prefix")
	flags.Duration("redis-expired-retention", 24*time.Hour, "how long expired sessions stay readable in Redis")

	flags.Bool("token-enabled", false, "issue and accept signed tokens")
	flags.String("token-method", string(auth.MethodHS256), "token signing method (hs256 or ed25519)")
	flags.String("token-private-key-file", "", "ed25519 private key (PEM) for signing")
	flags.String("token-public-key-file", "", "ed25519 public key (PEM) for verification")
	flags.Duration("token-ttl", auth.DefaultTokenTTL, "token lifetime")
	flags.String("token-issuer", "portal", "token issuer claim")
	flags.Duration("token-leeway", 0, "clock skew tolerated when verifying tokens")

	flags.Int("crypto-workers", 0, "concurrent argon2 computations (0 = GOMAXPROCS)")
	flags.Uint32("argon2-memory", auth.DefaultArgon2Params.Memory, "argon2 memory cost in KiB")
	flags.Uint32("argon2-time", auth.DefaultArgon2Params.Time, "argon2 iterations")
	flags.Uint8("argon2-threads", auth.DefaultArgon2Params.Threads, "argon2 parallelism")
}

// Loader reads configuration.
type Loader struct {
	// Getenv reads environment variables. Defaults to os.Getenv.
	Getenv func(string) string
	// DefaultPath returns the config file used when none is given.
	// Defaults to xdg.ConfigFile; the file is optional.
	DefaultPath func() (string, error)
}

// Load reads configuration using the default Loader.
func Load(flags *pflag.FlagSet, path string) (*Config, error) {
	return Loader{}.Load(flags, path)
}

// Load reads the config file at path (or the default file, if it exists),
// overlays flags and environment fallbacks, then validates.
func (l Loader) Load(flags *pflag.FlagSet, path string) (*Config, error) {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	defaultPath := l.DefaultPath
	if defaultPath == nil {
		defaultPath = xdg.ConfigFile
	}

	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		p, err := defaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
			}
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").With("path", path).Wrap(err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = getenv(EnvDatabaseURL)
	}
	if cfg.Token.Secret == "" {
		cfg.Token.Secret = getenv(EnvTokenSecret)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown enum values, non-positive durations and missing
// token keys.
func (c *Config) Validate() error {
	invalid := func(field string, value any, msg string) error {
		return oops.Code("CONFIG_INVALID").With("field", field).With("value", value).Errorf("%s: %s", field, msg)
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		return invalid("log_format", c.LogFormat, "must be json or text")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid("log_level", c.LogLevel, "must be debug, info, warn or error")
	}

	if c.Database.ConnectAttempts == 0 {
		return invalid("database.connect_attempts", c.Database.ConnectAttempts, "must be positive")
	}
	if c.Database.ConnectBackoff <= 0 {
		return invalid("database.connect_backoff", c.Database.ConnectBackoff, "must be positive")
	}

	switch c.Session.Backend {
	case BackendPostgres:
	case BackendRedis:
		if c.Session.Redis.Addr == "" {
			return invalid("session.redis.addr", "", "required for the redis backend")
		}
		if c.Session.Redis.ExpiredRetention < 0 {
			return invalid("session.redis.expired_retention", c.Session.Redis.ExpiredRetention, "must not be negative")
		}
	default:
		return invalid("session.backend", c.Session.Backend, "must be postgres or redis")
	}
	if c.Session.TTL <= 0 {
		return invalid("session.ttl", c.Session.TTL, "must be positive")
	}
	if c.Session.KeepRecent < 1 {
		return invalid("session.keep_recent", c.Session.KeepRecent, "must be at least 1")
	}
	if c.Session.SweepInterval <= 0 {
		return invalid("session.sweep_interval", c.Session.SweepInterval, "must be positive")
	}

	if c.Crypto.Workers < 0 {
		return invalid("crypto.workers", c.Crypto.Workers, "must not be negative")
	}

	if !c.Token.Enabled {
		return nil
	}
	if c.Token.TTL <= 0 {
		return invalid("token.ttl", c.Token.TTL, "must be positive")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return invalid("token.leeway", c.Token.Leeway, "must be between 0 and 2m")
	}
	switch auth.SigningMethod(c.Token.Method) {
	case auth.MethodHS256:
		if len(c.Token.Secret) < 32 {
			return invalid("token.secret", "<redacted>", "hs256 needs a secret of at least 32 bytes (set "+EnvTokenSecret+")")
		}
	case auth.MethodEd25519:
		if c.Token.PublicKeyFile == "" {
			return invalid("token.public_key_file", "", "required for ed25519")
		}
	default:
		return invalid("token.method", c.Token.Method, "must be hs256 or ed25519")
	}
	return nil
}

// Argon2Params returns the configured argon2 costs.
func (c *Config) Argon2Params() auth.Argon2Params {
	return auth.Argon2Params{
		Memory:  c.Crypto.Argon2.Memory,
		Time:    c.Crypto.Argon2.Time,
		Threads: c.Crypto.Argon2.Threads,
		SaltLen: auth.DefaultArgon2Params.SaltLen,
		KeyLen:  auth.DefaultArgon2Params.KeyLen,
	}
}

// TokenIssuerConfig builds the token configuration for kind, reading key
// files from disk. It fails if tokens are disabled.
func (c *Config) TokenIssuerConfig(kind auth.Kind) (auth.TokenConfig, error) {
	if !c.Token.Enabled {
		return auth.TokenConfig{}, oops.Code("CONFIG_TOKENS_DISABLED").Errorf("tokens are not enabled")
	}
	tc := auth.TokenConfig{
		Kind:   kind,
		Method: auth.SigningMethod(c.Token.Method),
		Secret: []byte(c.Token.Secret),
		TTL:    c.Token.TTL,
		Issuer: c.Token.Issuer,
		Leeway: c.Token.Leeway,
	}
	if tc.Method != auth.MethodEd25519 {
		return tc, nil
	}

	pub, err := os.ReadFile(c.Token.PublicKeyFile)
	if err != nil {
		return auth.TokenConfig{}, oops.Code("CONFIG_KEY_READ_FAILED").With("path", c.Token.PublicKeyFile).Wrap(err)
	}
	tc.PublicKey = pub
	if c.Token.PrivateKeyFile != "" {
		priv, err := os.ReadFile(c.Token.PrivateKeyFile)
		if err != nil {
			return auth.TokenConfig{}, oops.Code("CONFIG_KEY_READ_FAILED").With("path", c.Token.PrivateKeyFile).Wrap(err)
		}
		tc.PrivateKey = priv
	}
	return tc, nil
}
