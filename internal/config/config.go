// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

// Package config provides layered configuration loading for Storegate.
package config

import (
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	CSRF      CSRFConfig      `koanf:"csrf"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Screener  ScreenerConfig  `koanf:"screener"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address (default: 0.0.0.0).
	Host string `koanf:"host"`

	// Port is the listen port (default: 8443).
	Port int `koanf:"port"`

	// Timeout is the per-request read/write timeout.
	Timeout time.Duration `koanf:"timeout"`

	// Environment is "development" or "production".
	// Production enforces secure cookies and a configured JWT secret.
	Environment string `koanf:"environment"`
}

// SecurityConfig holds authentication and session settings.
type SecurityConfig struct {
	// JWTSecret signs session tokens. Required; minimum 32 characters.
	// There is deliberately no default - a missing secret fails startup
	// closed rather than falling back to a guessable value.
	JWTSecret string `koanf:"jwt_secret"`

	// JWTPreviousSecret, when set, is also accepted during verification.
	// This allows secret rotation without invalidating tokens issued
	// moments before the rotation.
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// SessionTimeout is the lifetime of issued session tokens (default: 24h).
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// CookieName is the session cookie name (default: storegate_session).
	CookieName string `koanf:"cookie_name"`

	// CookieSecure sets the Secure flag on the session cookie (default: true).
	CookieSecure bool `koanf:"cookie_secure"`

	// CookieDomain is the optional Domain attribute for the session cookie.
	CookieDomain string `koanf:"cookie_domain"`

	// CORSOrigins are the storefront origins allowed to call the API.
	CORSOrigins []string `koanf:"cors_origins"`

	// TrustedProxies are reverse-proxy addresses whose forwarding headers
	// are honored for client IP extraction.
	TrustedProxies []string `koanf:"trusted_proxies"`

	// AdminEmail and AdminPassword bootstrap an admin account in the
	// in-memory user store when both are set. Development convenience only.
	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`

	// Lockout configures failed-login account lockout.
	Lockout LockoutConfig `koanf:"lockout"`
}

// LockoutConfig holds failed-login lockout settings.
type LockoutConfig struct {
	Enabled         bool          `koanf:"enabled"`
	MaxAttempts     int           `koanf:"max_attempts"`
	Duration        time.Duration `koanf:"duration"`
	MaxDuration     time.Duration `koanf:"max_duration"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// CSRFConfig holds anti-forgery token settings.
type CSRFConfig struct {
	// TokenTTL is how long issued tokens stay valid (default: 2h).
	TokenTTL time.Duration `koanf:"token_ttl"`

	// TokenLength is the byte length of generated tokens (default: 32).
	TokenLength int `koanf:"token_length"`

	// HeaderName is the request header carrying the token (default: X-CSRF-Token).
	HeaderName string `koanf:"header_name"`

	// QueryParam is the fallback query parameter name (default: csrf_token).
	QueryParam string `koanf:"query_param"`

	// SingleUse deletes a token on first successful validation.
	// Default false: the observed storefront behavior allows reuse until
	// expiry. Enable for stricter replay protection.
	SingleUse bool `koanf:"single_use"`

	// Store selects the token store backend: "memory" or "badger".
	Store string `koanf:"store"`

	// StorePath is the BadgerDB directory when Store is "badger".
	StorePath string `koanf:"store_path"`

	// SweepInterval is how often expired tokens are removed (default: 5m).
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// TrustedOrigins are additional origins accepted by the Origin/Referer
	// check, beyond the request's own host.
	TrustedOrigins []string `koanf:"trusted_origins"`
}

// RateLimitConfig holds fixed-window rate limiting settings.
type RateLimitConfig struct {
	// Requests per Window for general API traffic (default: 100/min).
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`

	// LoginRequests per LoginWindow for the login endpoint (default: 5/min).
	LoginRequests int           `koanf:"login_requests"`
	LoginWindow   time.Duration `koanf:"login_window"`

	// Disabled turns off rate limiting entirely (CI/test convenience).
	Disabled bool `koanf:"disabled"`

	// SweepInterval is how often stale counters are removed (default: 5m).
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// ScreenerConfig holds input threat screening settings.
type ScreenerConfig struct {
	// Enabled controls query-parameter screening in the request gate.
	Enabled bool `koanf:"enabled"`

	// Paths are the path prefixes the request gate screens. Requests
	// outside these prefixes skip the gate entirely.
	Paths []string `koanf:"paths"`

	// BlockedUserAgents are substrings of known attack-tool user agents.
	BlockedUserAgents []string `koanf:"blocked_user_agents"`

	// MaxPathID is the upper bound for numeric path identifiers (default: 1e9).
	MaxPathID int64 `koanf:"max_path_id"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Default returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8443,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			JWTSecret:         "", // no default, startup fails without one
			JWTPreviousSecret: "",
			SessionTimeout:    24 * time.Hour,
			CookieName:        "storegate_session",
			CookieSecure:      true,
			CORSOrigins:       []string{},
			TrustedProxies:    []string{},
			Lockout: LockoutConfig{
				Enabled:         true,
				MaxAttempts:     5,
				Duration:        15 * time.Minute,
				MaxDuration:     24 * time.Hour,
				CleanupInterval: 5 * time.Minute,
			},
		},
		CSRF: CSRFConfig{
			TokenTTL:      2 * time.Hour,
			TokenLength:   32,
			HeaderName:    "X-CSRF-Token",
			QueryParam:    "csrf_token",
			SingleUse:     false,
			Store:         "memory",
			StorePath:     "/data/csrf",
			SweepInterval: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Requests:      100,
			Window:        time.Minute,
			LoginRequests: 5,
			LoginWindow:   time.Minute,
			Disabled:      false,
			SweepInterval: 5 * time.Minute,
		},
		Screener: ScreenerConfig{
			Enabled: true,
			Paths:   []string{"/api/v1/auth", "/api/v1/admin"},
			BlockedUserAgents: []string{
				"sqlmap", "nikto", "nessus", "masscan", "metasploit",
				"nmap", "dirbuster", "wpscan", "hydra",
			},
			MaxPathID: 1_000_000_000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
