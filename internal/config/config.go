// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// Portfolio backend
	BackendURL string        `env:"FOLIO_BACKEND_URL,required"`
	APITimeout time.Duration `env:"FOLIO_API_TIMEOUT" envDefault:"15s"`

	// Google OAuth
	GoogleClientID     string `env:"FOLIO_GOOGLE_CLIENT_ID,required"`
	GoogleClientSecret string `env:"FOLIO_GOOGLE_CLIENT_SECRET"`
	OAuthRedirectURL   string `env:"FOLIO_OAUTH_REDIRECT_URL"` // Defaults to http://<addr>/auth/google/callback

	DBPath        string `env:"FOLIO_DB_PATH" envDefault:"./data/folio-admin.db"`
	SessionSecret string `env:"FOLIO_SESSION_SECRET,required"`
	ServerHost    string `env:"FOLIO_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"FOLIO_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"FOLIO_ENV" envDefault:"development"`
	LogLevel      string `env:"FOLIO_LOG_LEVEL" envDefault:"info"`

	// Pending uploads
	StagingDir  string        `env:"FOLIO_STAGING_DIR" envDefault:"./data/staging"`
	StagingTTL  time.Duration `env:"FOLIO_STAGING_TTL" envDefault:"6h"`
	MaxUploadMB int           `env:"FOLIO_MAX_UPLOAD_MB" envDefault:"10"`

	// Cache configuration
	RedisURL         string        `env:"FOLIO_REDIS_URL"`                           // Optional Redis URL for the identity cache
	CachePrefix      string        `env:"FOLIO_CACHE_PREFIX" envDefault:"folio:"`    // Redis key prefix
	IdentityCacheTTL time.Duration `env:"FOLIO_IDENTITY_CACHE_TTL" envDefault:"30s"` // 0 disables identity caching

	// UsersListAuth sends the session token with the users list request.
	// The backend historically served the list without authentication.
	UsersListAuth bool `env:"FOLIO_USERS_LIST_AUTH" envDefault:"false"`

	RegisterRedirectDelay time.Duration `env:"FOLIO_REGISTER_REDIRECT_DELAY" envDefault:"1500ms"`
	EventRetention        time.Duration `env:"FOLIO_EVENT_RETENTION" envDefault:"720h"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// RedirectURL returns the OAuth callback URL registered with Google.
func (c Config) RedirectURL() string {
	if c.OAuthRedirectURL != "" {
		return c.OAuthRedirectURL
	}
	return fmt.Sprintf("http://%s/auth/google/callback", c.ServerAddr())
}

// MaxUploadBytes returns the per-file upload limit in bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	u, err := url.Parse(cfg.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("FOLIO_BACKEND_URL must be an absolute http(s) URL, got %q", cfg.BackendURL)
	}

	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("FOLIO_MAX_UPLOAD_MB must be positive, got %d", cfg.MaxUploadMB)
	}
	if cfg.IdentityCacheTTL < 0 {
		return nil, fmt.Errorf("FOLIO_IDENTITY_CACHE_TTL must not be negative")
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("FOLIO_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("FOLIO_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("FOLIO_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if cfg.GoogleClientSecret == "" {
		slog.Warn("FOLIO_GOOGLE_CLIENT_SECRET is empty; the Google code exchange will fail for confidential clients")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
