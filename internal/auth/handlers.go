// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/storegate-dev/storegate/internal/logging"
	"github.com/storegate-dev/storegate/internal/validation"
)

// maxLoginBodyBytes bounds the login request body.
const maxLoginBodyBytes = 1 << 20

// LoginRequest is the login endpoint payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// Handlers exposes the authentication endpoints over HTTP.
type Handlers struct {
	sessions *SessionManager
	csrf     *CSRFProtector
	lockout  *LockoutManager
}

// NewHandlers creates the auth endpoint handlers.
func NewHandlers(sessions *SessionManager, csrf *CSRFProtector, lockout *LockoutManager) *Handlers {
	return &Handlers{
		sessions: sessions,
		csrf:     csrf,
		lockout:  lockout,
	}
}

// writeJSON serializes v and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

// clientIP extracts the client address from the request, trusting RealIP
// middleware to have rewritten RemoteAddr already.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Login handles POST /api/v1/auth/login.
//
// Failed credentials always produce the same generic message whether the
// email exists or not. Unverified and disabled accounts are reported
// distinctly, but only after the password matched.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		writeJSON(w, http.StatusBadRequest, verr.ToAPIError())
		return
	}

	ip := clientIP(r)
	emailSubject := "email:" + normalizeEmail(req.Email)
	ipSubject := "ip:" + ip

	for _, subject := range []string{emailSubject, ipSubject} {
		if locked, until := h.lockout.IsLocked(subject); locked {
			recordLockoutRejection()
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(time.Until(until).Seconds())+1))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Too many failed attempts. Please try again later.",
			})
			return
		}
	}

	result, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		logging.Error().Err(err).Msg("Login failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	recordLoginAttempt(result.Outcome)

	switch result.Outcome {
	case OutcomeSuccess:
		h.lockout.RecordSuccess(emailSubject)
		h.lockout.RecordSuccess(ipSubject)
		h.sessions.SetSessionCookie(w, result.Token)
		logging.Info().Str("user_id", result.User.ID).Str("ip", ip).Msg("Login succeeded")
		writeJSON(w, http.StatusOK, map[string]any{"user": result.User})

	case OutcomeInvalidCredentials:
		h.lockout.RecordFailure(emailSubject)
		h.lockout.RecordFailure(ipSubject)
		logging.Warn().Str("ip", ip).Msg("Login rejected: invalid credentials")
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "Invalid email or password",
		})

	case OutcomeEmailNotVerified:
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":            "Please verify your email address before logging in",
			"emailNotVerified": true,
		})

	case OutcomeAccountDisabled:
		logging.Warn().Str("ip", ip).Msg("Login rejected: account disabled")
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error": "This account has been disabled",
		})
	}
}

// Logout handles POST /api/v1/auth/logout. Idempotent: clearing an absent
// session is still a success.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := h.sessions.Authenticate(r); claims != nil {
		logging.Info().Str("user_id", claims.UserID).Msg("Logout")
	}
	h.sessions.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me handles GET /api/v1/auth/me, resolving the current session to a
// sanitized profile.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := h.sessions.Authenticate(r)
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
		return
	}

	profile, err := h.sessions.LoadProfile(r.Context(), claims)
	if err != nil {
		// Token outlived the account.
		writeJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          profile,
	})
}

// CSRFToken handles GET /api/v1/auth/csrf, issuing a token for the next
// state-changing request. The response must never be cached.
func (h *Handlers) CSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrf.Issue()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to issue csrf token")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}
