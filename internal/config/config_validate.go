// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package config

import (
	"errors"
	"fmt"
)

// MinJWTSecretLength is the minimum accepted signing secret length.
// 32 bytes gives the HMAC-SHA256 key its full strength.
const MinJWTSecretLength = 32

// Validation errors.
var (
	// ErrMissingJWTSecret is returned when no signing secret is configured.
	// Startup fails closed: the alternative is issuing tokens signed with
	// a guessable default.
	ErrMissingJWTSecret = errors.New("security.jwt_secret is required; refusing to start without a signing secret")

	// ErrWeakJWTSecret is returned when the signing secret is too short.
	ErrWeakJWTSecret = fmt.Errorf("security.jwt_secret must be at least %d characters", MinJWTSecretLength)
)

// Validate checks the configuration for errors and inconsistencies.
// It is called by Load after all layers are merged.
func (c *Config) Validate() error {
	if c.Security.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if len(c.Security.JWTSecret) < MinJWTSecretLength {
		return ErrWeakJWTSecret
	}
	if c.Security.JWTPreviousSecret != "" && len(c.Security.JWTPreviousSecret) < MinJWTSecretLength {
		return fmt.Errorf("security.jwt_previous_secret must be at least %d characters", MinJWTSecretLength)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Environment != "development" && c.Server.Environment != "production" {
		return fmt.Errorf("server.environment must be development or production, got %q", c.Server.Environment)
	}

	if c.Security.SessionTimeout <= 0 {
		return errors.New("security.session_timeout must be positive")
	}
	if c.Security.CookieName == "" {
		return errors.New("security.cookie_name must not be empty")
	}
	if c.Server.Environment == "production" && !c.Security.CookieSecure {
		return errors.New("security.cookie_secure must be true in production")
	}

	switch c.CSRF.Store {
	case "memory":
	case "badger":
		if c.CSRF.StorePath == "" {
			return errors.New("csrf.store_path is required when csrf.store is badger")
		}
	default:
		return fmt.Errorf("csrf.store must be memory or badger, got %q", c.CSRF.Store)
	}
	if c.CSRF.TokenTTL <= 0 {
		return errors.New("csrf.token_ttl must be positive")
	}
	if c.CSRF.TokenLength < 16 {
		return errors.New("csrf.token_length must be at least 16 bytes")
	}

	if !c.RateLimit.Disabled {
		if c.RateLimit.Requests < 1 || c.RateLimit.LoginRequests < 1 {
			return errors.New("rate_limit.requests and rate_limit.login_requests must be at least 1")
		}
		if c.RateLimit.Window <= 0 || c.RateLimit.LoginWindow <= 0 {
			return errors.New("rate_limit windows must be positive")
		}
	}

	if c.Screener.MaxPathID < 1 {
		return errors.New("screener.max_path_id must be positive")
	}

	return nil
}
