// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package config

import (
	"errors"
	"strings"
	"testing"
)

const validSecret = "a-signing-secret-of-at-least-32-chars!"

func validConfig() *Config {
	cfg := Default()
	cfg.Security.JWTSecret = validSecret
	return cfg
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() error = %v for a default config with a secret", err)
	}
}

func TestValidate_FailsClosedOnSecrets(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		cfg := Default()
		if err := cfg.Validate(); !errors.Is(err, ErrMissingJWTSecret) {
			t.Errorf("Validate() error = %v, want ErrMissingJWTSecret", err)
		}
	})

	t.Run("short secret", func(t *testing.T) {
		cfg := Default()
		cfg.Security.JWTSecret = "short"
		if err := cfg.Validate(); !errors.Is(err, ErrWeakJWTSecret) {
			t.Errorf("Validate() error = %v, want ErrWeakJWTSecret", err)
		}
	})

	t.Run("short previous secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.Security.JWTPreviousSecret = "short"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() accepted a weak previous secret")
		}
	})

	t.Run("valid rotation pair", func(t *testing.T) {
		cfg := validConfig()
		cfg.Security.JWTPreviousSecret = "the-prior-signing-secret-also-32-chars"
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad environment", func(c *Config) { c.Server.Environment = "staging" }, "server.environment"},
		{"zero session timeout", func(c *Config) { c.Security.SessionTimeout = 0 }, "session_timeout"},
		{"empty cookie name", func(c *Config) { c.Security.CookieName = "" }, "cookie_name"},
		{"insecure cookie in production", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.CookieSecure = false
		}, "cookie_secure"},
		{"unknown csrf store", func(c *Config) { c.CSRF.Store = "redis" }, "csrf.store"},
		{"badger without path", func(c *Config) {
			c.CSRF.Store = "badger"
			c.CSRF.StorePath = ""
		}, "csrf.store_path"},
		{"zero token ttl", func(c *Config) { c.CSRF.TokenTTL = 0 }, "token_ttl"},
		{"short csrf token", func(c *Config) { c.CSRF.TokenLength = 8 }, "token_length"},
		{"zero rate limit", func(c *Config) { c.RateLimit.Requests = 0 }, "rate_limit"},
		{"zero login window", func(c *Config) { c.RateLimit.LoginWindow = 0 }, "window"},
		{"zero max path id", func(c *Config) { c.Screener.MaxPathID = 0 }, "max_path_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidate_DisabledRateLimitSkipsChecks(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.Disabled = true
	cfg.RateLimit.Requests = 0
	cfg.RateLimit.LoginWindow = 0

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil when rate limiting disabled", err)
	}
}
