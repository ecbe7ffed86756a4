// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/storegate-dev/storegate/internal/config"
	"github.com/storegate-dev/storegate/internal/logging"
)

// LoginOutcome classifies the result of a credential check.
type LoginOutcome int

const (
	// OutcomeSuccess means the credentials matched an active, verified
	// account and a session was issued.
	OutcomeSuccess LoginOutcome = iota

	// OutcomeInvalidCredentials covers both unknown email and wrong
	// password. The two are deliberately indistinguishable to callers
	// so the login endpoint cannot be used to enumerate accounts.
	OutcomeInvalidCredentials

	// OutcomeEmailNotVerified means the credentials matched but the
	// account has not completed email verification.
	OutcomeEmailNotVerified

	// OutcomeAccountDisabled means the credentials matched but the
	// account has been deactivated.
	OutcomeAccountDisabled
)

// LoginResult carries the outcome of a login attempt. Token and User are
// set only on OutcomeSuccess.
type LoginResult struct {
	Outcome LoginOutcome
	Token   string
	User    *Profile
}

// dummyBcryptHash is a valid cost-12 hash of an unguessable throwaway
// value. Login verifies against it when the email is unknown so the
// unknown-email and wrong-password paths take comparable time.
const dummyBcryptHash = "$2a$12$K3JNi5xUQ3o0DYkKLmn82eC0p9XqYzF7vGHbTcW1sRjA5dMuEwO9S"

// SessionManager implements cookie-backed login, logout, and request
// authentication on top of a UserStore and a TokenCodec.
//
// Sessions are stateless: the signed token is the session. Logout clears
// the client cookie; a captured token stays valid until expiry, which is
// why the session timeout is kept short.
type SessionManager struct {
	users  UserStore
	hasher *PasswordHasher
	codec  *TokenCodec
	cfg    *config.SecurityConfig
}

// NewSessionManager creates a session manager. The codec must already be
// constructed, which guarantees a signing secret is present.
func NewSessionManager(users UserStore, hasher *PasswordHasher, codec *TokenCodec, cfg *config.SecurityConfig) *SessionManager {
	return &SessionManager{
		users:  users,
		hasher: hasher,
		codec:  codec,
		cfg:    cfg,
	}
}

// Login checks credentials and, on success, issues a signed session token.
//
// Password verification runs before the verified and active checks, so a
// wrong password on an unverified account still reports invalid
// credentials rather than leaking account state.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn a bcrypt comparison anyway, see dummyBcryptHash.
			m.hasher.Verify(password, dummyBcryptHash)
			return &LoginResult{Outcome: OutcomeInvalidCredentials}, nil
		}
		return nil, err
	}

	if !m.hasher.Verify(password, user.PasswordHash) {
		return &LoginResult{Outcome: OutcomeInvalidCredentials}, nil
	}

	if !user.Active {
		return &LoginResult{Outcome: OutcomeAccountDisabled}, nil
	}

	if !user.EmailVerified {
		return &LoginResult{Outcome: OutcomeEmailNotVerified}, nil
	}

	token, err := m.codec.Sign(&SessionClaims{
		UserID:        user.ID,
		Email:         user.Email,
		Name:          user.Name,
		EmailVerified: user.EmailVerified,
		IsAdmin:       user.IsAdmin,
	})
	if err != nil {
		return nil, err
	}

	if err := m.users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		logging.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to record login time")
	}

	profile := user.Profile()
	return &LoginResult{
		Outcome: OutcomeSuccess,
		Token:   token,
		User:    &profile,
	}, nil
}

// SetSessionCookie attaches the session token to the response as an
// HTTP-only cookie. Secure and SameSite=Strict keep the cookie off plain
// HTTP and out of cross-site requests.
func (m *SessionManager) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   m.cfg.CookieDomain,
		MaxAge:   int(m.cfg.SessionTimeout.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie expires the session cookie. Safe to call whether or
// not a session exists, which makes logout idempotent.
func (m *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Authenticate extracts and verifies the session cookie from a request.
// Returns nil for any failure: missing cookie, malformed token, bad
// signature, or expiry. Callers treat nil as "not logged in".
func (m *SessionManager) Authenticate(r *http.Request) *SessionClaims {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	claims, err := m.codec.Verify(cookie.Value)
	if err != nil {
		recordTokenVerification(err)
		logging.Debug().Err(err).Msg("Session token rejected")
		return nil
	}

	recordTokenVerification(nil)
	return claims
}

// LoadProfile resolves the current account for verified session claims.
// The store is consulted so a deactivated account loses access before its
// token expires.
func (m *SessionManager) LoadProfile(ctx context.Context, claims *SessionClaims) (*Profile, error) {
	user, err := m.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrUserNotFound
	}
	profile := user.Profile()
	return &profile, nil
}

// IsAuthenticated reports whether claims represent a logged-in session.
func IsAuthenticated(claims *SessionClaims) bool {
	return claims != nil && claims.UserID != ""
}

// IsEmailVerified reports whether the session's account verified its email.
func IsEmailVerified(claims *SessionClaims) bool {
	return IsAuthenticated(claims) && claims.EmailVerified
}

// IsAdmin reports whether the session belongs to an administrator.
func IsAdmin(claims *SessionClaims) bool {
	return IsAuthenticated(claims) && claims.IsAdmin
}
