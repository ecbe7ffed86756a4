// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/storegate-dev/storegate/internal/config"
)

// tokenSchemeVersion tags issued tokens so the claim layout can evolve.
// Verification rejects tokens carrying a different version.
const tokenSchemeVersion = 1

// Token verification errors. Callers translate all of these to a generic
// "not authenticated" outcome; the distinction exists for logging and tests.
var (
	// ErrTokenMalformed indicates the token is not a parseable JWT.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenSignature indicates the signature does not match any
	// configured secret, or the declared algorithm is not HS256.
	ErrTokenSignature = errors.New("token signature invalid")

	// ErrTokenExpired indicates a well-formed, correctly signed token
	// whose expiry has elapsed.
	ErrTokenExpired = errors.New("token expired")
)

// SessionClaims is the authenticated fact set carried inside a signed
// session token. Immutable once issued: the flags are trusted only because
// the signature over this exact payload verified against a server secret.
type SessionClaims struct {
	UserID        string `json:"uid"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
	IsAdmin       bool   `json:"is_admin"`
	Version       int    `json:"ver"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies session tokens using HMAC-SHA256.
//
// A codec holds the current signing secret and, optionally, the previous
// one. New tokens are always signed with the current secret; verification
// accepts either, so rotating the secret does not invalidate tokens issued
// moments earlier.
type TokenCodec struct {
	secret         []byte
	previousSecret []byte
	timeout        time.Duration
}

// NewTokenCodec creates a token codec from the security configuration.
// Fails closed when the signing secret is absent: issuing tokens with a
// defaulted secret would make every session forgeable.
func NewTokenCodec(cfg *config.SecurityConfig) (*TokenCodec, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required but was empty")
	}
	if len(cfg.JWTSecret) < config.MinJWTSecretLength {
		return nil, fmt.Errorf("JWT secret must be at least %d characters", config.MinJWTSecretLength)
	}

	c := &TokenCodec{
		secret:  []byte(cfg.JWTSecret),
		timeout: cfg.SessionTimeout,
	}
	if cfg.JWTPreviousSecret != "" {
		c.previousSecret = []byte(cfg.JWTPreviousSecret)
	}

	return c, nil
}

// Sign serializes the claim set and produces a signed token string.
// The expiry is derived from the configured session timeout; IssuedAt and
// NotBefore are stamped with the current time. The Version field is set to
// the current scheme version regardless of input.
func (c *TokenCodec) Sign(claims *SessionClaims) (string, error) {
	now := time.Now()
	claims.Version = tokenSchemeVersion
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(c.timeout)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify checks a token's signature, algorithm, expiry, and scheme version,
// and returns the embedded claims.
//
// The keyfunc rejects any token whose declared signing method is not HMAC,
// closing the algorithm-confusion hole where an attacker re-signs claims
// with "none" or an asymmetric scheme.
//
// Returns ErrTokenMalformed, ErrTokenSignature, or ErrTokenExpired; the
// caller maps all three to "unauthenticated", never to a server error.
func (c *TokenCodec) Verify(tokenString string) (*SessionClaims, error) {
	claims, err := c.verifyWithSecret(tokenString, c.secret)
	if err == nil {
		return claims, nil
	}

	// Rotation grace: a signature failure against the current secret may
	// be a token issued under the previous one. Only signature failures
	// get a second chance - malformed and expired are final.
	if errors.Is(err, ErrTokenSignature) && c.previousSecret != nil {
		return c.verifyWithSecret(tokenString, c.previousSecret)
	}

	return nil, err
}

// verifyWithSecret parses and validates the token against a single secret.
func (c *TokenCodec) verifyWithSecret(tokenString string, secret []byte) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenSignature
		}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenSignature
	}

	if claims.Version != tokenSchemeVersion {
		return nil, ErrTokenSignature
	}

	return claims, nil
}
