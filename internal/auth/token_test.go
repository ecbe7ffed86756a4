// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/storegate-dev/storegate/internal/config"
)

const testJWTSecret = "test-secret-key-that-is-long-enough-for-hs256"

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:      testJWTSecret,
		SessionTimeout: time.Hour,
	}
}

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()

	codec, err := NewTokenCodec(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	return codec
}

func testClaims() *SessionClaims {
	return &SessionClaims{
		UserID:        "5c7a2418-08ad-4f8e-9b10-3a6f1c2d4e5f",
		Email:         "alice@example.com",
		Name:          "Alice Example",
		EmailVerified: true,
		IsAdmin:       false,
	}
}

func TestNewTokenCodec_FailsClosed(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"empty secret", ""},
		{"short secret", "too-short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testSecurityConfig()
			cfg.JWTSecret = tt.secret
			if _, err := NewTokenCodec(cfg); err == nil {
				t.Error("NewTokenCodec() expected error, got nil")
			}
		})
	}
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.Sign(testClaims())
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	got, err := codec.Verify(signed)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if got.UserID != "5c7a2418-08ad-4f8e-9b10-3a6f1c2d4e5f" {
		t.Errorf("UserID = %q, want original", got.UserID)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Email = %q, want alice@example.com", got.Email)
	}
	if !got.EmailVerified {
		t.Error("EmailVerified = false, want true")
	}
	if got.IsAdmin {
		t.Error("IsAdmin = true, want false")
	}
	if got.ExpiresAt == nil || time.Until(got.ExpiresAt.Time) <= 0 {
		t.Error("expected expiry in the future")
	}
}

func TestTokenCodec_Expired(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.SessionTimeout = -time.Minute
	codec, err := NewTokenCodec(cfg)
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}

	signed, err := codec.Sign(testClaims())
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if _, err := codec.Verify(signed); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestTokenCodec_Malformed(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"two segments", "aaaa.bbbb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codec.Verify(tt.token); !errors.Is(err, ErrTokenMalformed) {
				t.Errorf("Verify(%q) error = %v, want ErrTokenMalformed", tt.token, err)
			}
		})
	}
}

func TestTokenCodec_TamperedPayload(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.Sign(testClaims())
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	// Flip the admin flag inside the payload segment and keep the
	// original signature. Verification must reject it.
	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	tampered := strings.Replace(string(payload), `"is_admin":false`, `"is_admin":true`, 1)
	if tampered == string(payload) {
		t.Fatal("payload substitution had no effect")
	}
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(tampered))

	if _, err := codec.Verify(strings.Join(parts, ".")); !errors.Is(err, ErrTokenSignature) {
		t.Errorf("Verify() error = %v, want ErrTokenSignature", err)
	}
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	codec := newTestCodec(t)

	otherCfg := testSecurityConfig()
	otherCfg.JWTSecret = "a-completely-different-secret-of-adequate-size"
	other, err := NewTokenCodec(otherCfg)
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}

	signed, err := other.Sign(testClaims())
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if _, err := codec.Verify(signed); !errors.Is(err, ErrTokenSignature) {
		t.Errorf("Verify() error = %v, want ErrTokenSignature", err)
	}
}

func TestTokenCodec_AlgorithmConfusion(t *testing.T) {
	codec := newTestCodec(t)

	t.Run("alg none", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, testClaims())
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("failed to build none token: %v", err)
		}

		if _, err := codec.Verify(signed); err == nil {
			t.Error("Verify() accepted an unsigned token")
		}
	})

	t.Run("forged header alg", func(t *testing.T) {
		// Hand-build a token declaring HS512-family is fine, but a
		// non-HMAC declaration must fail in the keyfunc even with a
		// plausible signature segment attached.
		header, _ := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT"})
		payload, _ := json.Marshal(testClaims())
		forged := base64.RawURLEncoding.EncodeToString(header) + "." +
			base64.RawURLEncoding.EncodeToString(payload) + "." +
			base64.RawURLEncoding.EncodeToString([]byte("signature"))

		if _, err := codec.Verify(forged); err == nil {
			t.Error("Verify() accepted an RS256-declared token")
		}
	})
}

func TestTokenCodec_SecretRotation(t *testing.T) {
	oldCfg := testSecurityConfig()
	oldCodec, err := NewTokenCodec(oldCfg)
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}

	signed, err := oldCodec.Sign(testClaims())
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	newCfg := testSecurityConfig()
	newCfg.JWTSecret = "rotated-secret-with-sufficient-length-here!"
	newCfg.JWTPreviousSecret = testJWTSecret
	newCodec, err := NewTokenCodec(newCfg)
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}

	t.Run("old token accepted during grace", func(t *testing.T) {
		claims, err := newCodec.Verify(signed)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if claims.Email != "alice@example.com" {
			t.Errorf("Email = %q, want alice@example.com", claims.Email)
		}
	})

	t.Run("old token rejected without previous secret", func(t *testing.T) {
		strictCfg := testSecurityConfig()
		strictCfg.JWTSecret = newCfg.JWTSecret
		strict, err := NewTokenCodec(strictCfg)
		if err != nil {
			t.Fatalf("NewTokenCodec() error = %v", err)
		}
		if _, err := strict.Verify(signed); !errors.Is(err, ErrTokenSignature) {
			t.Errorf("Verify() error = %v, want ErrTokenSignature", err)
		}
	})
}
