// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A local .env file is
loaded first (via 'joho/godotenv') when present; real environment variables
always win over the file.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Hasher) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MinSessionSecretLength is the shortest accepted SESSION_SECRET.
const MinSessionSecretLength = 32

// # Configuration Schema

// Config holds all runtime configuration for the passgate server.
type Config struct {

	// Server settings. SERVER_HOST and SERVER_PORT are accepted as aliases.
	ServerHost  string `env:"HOST"         envDefault:"0.0.0.0"`
	ServerPort  string `env:"PORT"         envDefault:"6033"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// TrustedProxies lists the peers (IPs or CIDRs) whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty means the socket peer is the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// AuthEnabled mounts the authentication routes. Protected routes still
	// deny anonymous callers when it is off.
	AuthEnabled bool `env:"AUTH_ENABLED" envDefault:"true"`

	// Relational Database (PostgreSQL)
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"20"`

	// Key-Value Store (Redis) for sessions and rate-limit windows
	RedisURL      string `env:"REDIS_URL"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`

	// Secrets. Never logged.
	SessionSecret  string `env:"SESSION_SECRET,required"`
	PasswordPepper string `env:"PASSWORD_PEPPER,required"`

	// Session cookie
	SessionTTL          time.Duration `env:"SESSION_TTL"           envDefault:"168h"`
	SessionCookieName   string        `env:"SESSION_COOKIE_NAME"   envDefault:"passgate_sid"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`

	// Auth rate limiting
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"10m"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX"    envDefault:"6"`

	// Password reset
	ResetTokenTTL         time.Duration `env:"RESET_TOKEN_TTL"          envDefault:"1h"`
	ResetRevokesSessions  bool          `env:"RESET_REVOKES_SESSIONS"   envDefault:"false"`
	ResetHideUnknownEmail bool          `env:"RESET_HIDE_UNKNOWN_EMAIL" envDefault:"false"`

	// Outbound mail (SMTP). An empty host selects the logging sender.
	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	SMTPFrom     string        `env:"SMTP_FROM"`
	MailTimeout  time.Duration `env:"MAIL_TIMEOUT"  envDefault:"10s"`

	// PublicBaseURL is used to build links sent by email.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:6033"`

	// HashWorkers bounds concurrent key derivations. Zero means NumCPU.
	HashWorkers int `env:"HASH_WORKERS" envDefault:"0"`

	// Observability
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// Cross-Origin Resource Sharing (comma separated)
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
}

// envAliases maps a canonical variable to the legacy name read when it is unset.
var envAliases = map[string]string{
	"HOST": "SERVER_HOST",
	"PORT": "SERVER_PORT",
}

// # Configuration Loading

// Load reads an optional .env file, then parses environment variables into a [Config].
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is [Load] with explicit dotenv file paths. Missing files are ignored.
func LoadFiles(dotenvFiles ...string) (*Config, error) {

	// godotenv.Load never overrides variables that are already set.
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to read %s: %w", file, err)
		}
	}

	// Initialize an empty config struct
	cfg := &Config{}

	environ := env.ToMap(os.Environ())
	for name, alias := range envAliases {
		if _, ok := environ[name]; !ok {
			if value, ok := environ[alias]; ok {
				environ[name] = value
			}
		}
	}

	// This will fail if any field marked with 'required' is missing.
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.IsProduction() {
		cfg.SessionCookieSecure = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects combinations that would make the auth core misbehave.
func (c *Config) Validate() error {
	var errs []error

	if len(c.SessionSecret) < MinSessionSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d characters", MinSessionSecretLength))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("SESSION_TTL must not be negative"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.RateLimitMax < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must be at least 1"))
	}
	if c.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("RESET_TOKEN_TTL must be positive"))
	}
	if c.MailTimeout <= 0 {
		errs = append(errs, errors.New("MAIL_TIMEOUT must be positive"))
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		errs = append(errs, errors.New("SMTP_FROM is required when SMTP_HOST is set"))
	}
	if c.HashWorkers < 0 {
		errs = append(errs, errors.New("HASH_WORKERS must not be negative"))
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// RequireBackends reports an error when the persistent backends are not configured.
// The in-memory mode of `serve` skips this check.
func (c *Config) RequireBackends() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return errors.New("config: REDIS_URL is required")
	}
	return nil
}

// Addr returns the host:port pair the HTTP server binds to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.ServerHost, c.ServerPort)
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES. A bare address is treated as
// a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: invalid entry %q", entry)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: invalid entry %q", entry)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// AllowedOrigins returns the exact origins accepted by CORS. Empty disables CORS.
func (c *Config) AllowedOrigins() []string {
	return c.CORSOrigins
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
