// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"context"
	"net/http"
)

type contextKey string

const claimsContextKey contextKey = "session_claims"

// ClaimsFromContext returns the session claims attached by Middleware, or
// nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) *SessionClaims {
	claims, _ := ctx.Value(claimsContextKey).(*SessionClaims)
	return claims
}

// Middleware resolves the session cookie once per request and attaches the
// claims to the context. Anonymous requests pass through with no claims;
// enforcement belongs to RequireAuth and RequireAdmin.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := m.Authenticate(r); claims != nil {
			r = r.WithContext(context.WithValue(r.Context(), claimsContextKey, claims))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAuthenticated(ClaimsFromContext(r.Context())) {
			writeJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests that are not from an administrator.
// Anonymous requests get 401; authenticated non-admins get 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if !IsAuthenticated(claims) {
			writeJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
			return
		}
		if !IsAdmin(claims) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
