// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSessionMiddleware(t *testing.T) {
	mgr, users := newTestSessionManager(t)
	seedUser(t, users, "alice@example.com", true, true, false)

	result, err := mgr.Login(context.Background(), "alice@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	var seen *SessionClaims
	handler := mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("attaches claims for valid session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "storegate_session", Value: result.Token})
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if seen == nil || seen.Email != "alice@example.com" {
			t.Errorf("claims = %+v, want alice", seen)
		}
	})

	t.Run("anonymous passes with no claims", func(t *testing.T) {
		seen = &SessionClaims{}
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if seen != nil {
			t.Errorf("claims = %+v, want nil", seen)
		}
	})
}

func TestRequireAuthAndAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	withClaims := func(req *http.Request, claims *SessionClaims) *http.Request {
		if claims == nil {
			return req
		}
		return req.WithContext(context.WithValue(req.Context(), claimsContextKey, claims))
	}

	tests := []struct {
		name    string
		handler http.Handler
		claims  *SessionClaims
		want    int
	}{
		{"auth anonymous", RequireAuth(next), nil, http.StatusUnauthorized},
		{"auth customer", RequireAuth(next), &SessionClaims{UserID: "u1"}, http.StatusNoContent},
		{"admin anonymous", RequireAdmin(next), nil, http.StatusUnauthorized},
		{"admin customer", RequireAdmin(next), &SessionClaims{UserID: "u1"}, http.StatusForbidden},
		{"admin admin", RequireAdmin(next), &SessionClaims{UserID: "u1", IsAdmin: true}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withClaims(httptest.NewRequest(http.MethodGet, "/", nil), tt.claims)
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
