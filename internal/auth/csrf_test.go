// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/storegate-dev/storegate/internal/config"
)

func testCSRFConfig() *config.CSRFConfig {
	return &config.CSRFConfig{
		TokenTTL:    2 * time.Hour,
		TokenLength: 32,
		HeaderName:  "X-CSRF-Token",
		QueryParam:  "csrf_token",
	}
}

func newTestProtector(t *testing.T) (*CSRFProtector, *MemoryTokenStore) {
	t.Helper()
	store := NewMemoryTokenStore()
	return NewCSRFProtector(store, testCSRFConfig()), store
}

func postRequest(token string, viaHeader bool) *http.Request {
	target := "https://shop.example.com/api/v1/cart"
	if token != "" && !viaHeader {
		target += "?csrf_token=" + token
	}
	req := httptest.NewRequest(http.MethodPost, target, nil)
	req.Host = "shop.example.com"
	req.Header.Set("Origin", "https://shop.example.com")
	if token != "" && viaHeader {
		req.Header.Set("X-CSRF-Token", token)
	}
	return req
}

func TestCSRFProtector_IssueAndValidate(t *testing.T) {
	p, _ := newTestProtector(t)

	token, err := p.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned an empty token")
	}

	t.Run("token in header", func(t *testing.T) {
		if err := p.Validate(postRequest(token, true)); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("token in query param", func(t *testing.T) {
		if err := p.Validate(postRequest(token, false)); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("tokens are unique", func(t *testing.T) {
		second, err := p.Issue()
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if second == token {
			t.Error("two issued tokens are identical")
		}
	})
}

func TestCSRFProtector_SafeMethodsSkipValidation(t *testing.T) {
	p, _ := newTestProtector(t)

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		req := httptest.NewRequest(method, "https://shop.example.com/products", nil)
		req.Header.Set("Origin", "https://evil.example.net")
		if err := p.Validate(req); err != nil {
			t.Errorf("Validate(%s) error = %v, want nil", method, err)
		}
	}
}

func TestCSRFProtector_Rejections(t *testing.T) {
	p, _ := newTestProtector(t)

	token, err := p.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	t.Run("missing token", func(t *testing.T) {
		if err := p.Validate(postRequest("", true)); !errors.Is(err, ErrCSRFTokenMissing) {
			t.Errorf("Validate() error = %v, want ErrCSRFTokenMissing", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		if err := p.Validate(postRequest("forged-token", true)); !errors.Is(err, ErrCSRFTokenInvalid) {
			t.Errorf("Validate() error = %v, want ErrCSRFTokenInvalid", err)
		}
	})

	t.Run("no origin or referer", func(t *testing.T) {
		req := postRequest(token, true)
		req.Header.Del("Origin")
		req.Header.Del("Referer")
		if err := p.Validate(req); !errors.Is(err, ErrCSRFOriginMissing) {
			t.Errorf("Validate() error = %v, want ErrCSRFOriginMissing", err)
		}
	})

	t.Run("cross-site origin", func(t *testing.T) {
		req := postRequest(token, true)
		req.Header.Set("Origin", "https://evil.example.net")
		if err := p.Validate(req); !errors.Is(err, ErrCSRFOriginMismatch) {
			t.Errorf("Validate() error = %v, want ErrCSRFOriginMismatch", err)
		}
	})

	t.Run("cross-site referer", func(t *testing.T) {
		req := postRequest(token, true)
		req.Header.Del("Origin")
		req.Header.Set("Referer", "https://evil.example.net/checkout")
		if err := p.Validate(req); !errors.Is(err, ErrCSRFOriginMismatch) {
			t.Errorf("Validate() error = %v, want ErrCSRFOriginMismatch", err)
		}
	})

	t.Run("trusted origin accepted", func(t *testing.T) {
		cfg := testCSRFConfig()
		cfg.TrustedOrigins = []string{"https://cdn.example.com"}
		trusted := NewCSRFProtector(p.store, cfg)

		req := postRequest(token, true)
		req.Header.Set("Origin", "https://cdn.example.com")
		if err := trusted.Validate(req); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})
}

func TestCSRFProtector_TokenExpiry(t *testing.T) {
	cfg := testCSRFConfig()
	cfg.TokenTTL = -time.Second
	store := NewMemoryTokenStore()
	p := NewCSRFProtector(store, cfg)

	token, err := p.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if err := p.Validate(postRequest(token, true)); !errors.Is(err, ErrCSRFTokenInvalid) {
		t.Errorf("Validate() error = %v, want ErrCSRFTokenInvalid for expired token", err)
	}
}

func TestCSRFProtector_ReuseWithinTTL(t *testing.T) {
	p, _ := newTestProtector(t)

	token, err := p.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Default mode allows a token to be presented repeatedly until it
	// expires.
	for i := 0; i < 3; i++ {
		if err := p.Validate(postRequest(token, true)); err != nil {
			t.Fatalf("Validate() attempt %d error = %v", i+1, err)
		}
	}
}

func TestCSRFProtector_SingleUse(t *testing.T) {
	cfg := testCSRFConfig()
	cfg.SingleUse = true
	store := NewMemoryTokenStore()
	p := NewCSRFProtector(store, cfg)

	token, err := p.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if err := p.Validate(postRequest(token, true)); err != nil {
		t.Fatalf("Validate() first use error = %v", err)
	}
	if err := p.Validate(postRequest(token, true)); !errors.Is(err, ErrCSRFTokenInvalid) {
		t.Errorf("Validate() second use error = %v, want ErrCSRFTokenInvalid", err)
	}
}

func TestMemoryTokenStore_Sweep(t *testing.T) {
	store := NewMemoryTokenStore()
	now := time.Now()

	if err := store.Set("live", now.Add(time.Hour)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set("dead", now.Add(-time.Hour)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := store.Sweep(); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if !store.Valid("live") {
		t.Error("Sweep() removed an unexpired token")
	}
	if store.Valid("dead") {
		t.Error("Sweep() kept an expired token")
	}
	if store.len() != 1 {
		t.Errorf("store.len() = %d, want 1", store.len())
	}
}

func TestCSRFProtector_Middleware(t *testing.T) {
	p, _ := newTestProtector(t)

	token, err := p.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	handler := p.Protect(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid request passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, postRequest(token, true))
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("invalid request gets 403", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, postRequest("", true))
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}
