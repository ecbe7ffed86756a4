// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/storegate-dev/storegate/internal/config"
	"github.com/storegate-dev/storegate/internal/logging"
)

// CSRF validation errors. The middleware maps all of them to 403; the
// distinction feeds logs and metrics.
var (
	// ErrCSRFOriginMissing indicates a state-changing request carried
	// neither an Origin nor a Referer header.
	ErrCSRFOriginMissing = errors.New("csrf origin missing")

	// ErrCSRFOriginMismatch indicates the Origin or Referer host does
	// not match the request host or any trusted origin.
	ErrCSRFOriginMismatch = errors.New("csrf origin mismatch")

	// ErrCSRFTokenMissing indicates no token was supplied in the header
	// or query parameter.
	ErrCSRFTokenMissing = errors.New("csrf token missing")

	// ErrCSRFTokenInvalid indicates the supplied token is unknown or
	// expired.
	ErrCSRFTokenInvalid = errors.New("csrf token invalid")
)

// TokenStore persists issued CSRF tokens with their expiry. Implementations
// must be safe for concurrent use.
type TokenStore interface {
	// Set records a token with its expiry time.
	Set(token string, expiresAt time.Time) error

	// Valid reports whether a token exists and has not expired.
	Valid(token string) bool

	// Delete removes a token. Unknown tokens are a no-op.
	Delete(token string) error

	// Sweep removes all expired tokens.
	Sweep() error

	// Close releases store resources.
	Close() error
}

// MemoryTokenStore is a mutex-guarded in-memory TokenStore.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]time.Time)}
}

// Set implements TokenStore.
func (s *MemoryTokenStore) Set(token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = expiresAt
	return nil
}

// Valid implements TokenStore.
func (s *MemoryTokenStore) Valid(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expiresAt, ok := s.tokens[token]
	return ok && time.Now().Before(expiresAt)
}

// Delete implements TokenStore.
func (s *MemoryTokenStore) Delete(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

// Sweep implements TokenStore.
func (s *MemoryTokenStore) Sweep() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for token, expiresAt := range s.tokens {
		if now.After(expiresAt) {
			delete(s.tokens, token)
		}
	}
	return nil
}

// Close implements TokenStore.
func (s *MemoryTokenStore) Close() error {
	return nil
}

// len returns the current token count, for tests.
func (s *MemoryTokenStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// CSRFProtector issues per-request tokens and validates them on
// state-changing requests using a double check: the request's declared
// origin must match the served host, and the token itself must be one we
// issued and have not yet expired.
type CSRFProtector struct {
	store TokenStore
	cfg   *config.CSRFConfig
}

// NewCSRFProtector creates a protector over the given token store.
func NewCSRFProtector(store TokenStore, cfg *config.CSRFConfig) *CSRFProtector {
	return &CSRFProtector{store: store, cfg: cfg}
}

// Issue generates a fresh random token, records it with the configured
// TTL, and returns it for embedding in forms or response bodies.
func (p *CSRFProtector) Issue() (string, error) {
	buf := make([]byte, p.cfg.TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(buf)
	if err := p.store.Set(token, time.Now().Add(p.cfg.TokenTTL)); err != nil {
		return "", fmt.Errorf("failed to store csrf token: %w", err)
	}

	return token, nil
}

// safeMethod reports whether a method never changes state and therefore
// skips CSRF validation.
func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Validate checks a state-changing request. Safe methods pass untouched.
//
// Origin is checked first, falling back to Referer. A state-changing
// request must carry one of the two and its host must match the serving
// host or a trusted origin; a request with neither header is rejected
// before the token is even looked at.
func (p *CSRFProtector) Validate(r *http.Request) error {
	if safeMethod(r.Method) {
		return nil
	}

	if err := p.checkOrigin(r); err != nil {
		return err
	}

	token := r.Header.Get(p.cfg.HeaderName)
	if token == "" {
		token = r.URL.Query().Get(p.cfg.QueryParam)
	}
	if token == "" {
		return ErrCSRFTokenMissing
	}

	if !p.store.Valid(token) {
		return ErrCSRFTokenInvalid
	}

	if p.cfg.SingleUse {
		if err := p.store.Delete(token); err != nil {
			logging.Warn().Err(err).Msg("Failed to consume csrf token")
		}
	}

	return nil
}

func (p *CSRFProtector) checkOrigin(r *http.Request) error {
	declared := r.Header.Get("Origin")
	if declared == "" {
		declared = r.Header.Get("Referer")
	}
	if declared == "" {
		return ErrCSRFOriginMissing
	}

	parsed, err := url.Parse(declared)
	if err != nil || parsed.Host == "" {
		return ErrCSRFOriginMismatch
	}

	if strings.EqualFold(parsed.Host, r.Host) {
		return nil
	}

	for _, origin := range p.cfg.TrustedOrigins {
		trusted, err := url.Parse(origin)
		if err != nil {
			continue
		}
		host := trusted.Host
		if host == "" {
			host = origin
		}
		if strings.EqualFold(parsed.Host, host) {
			return nil
		}
	}

	return ErrCSRFOriginMismatch
}

// Protect is chi-compatible middleware enforcing Validate on every
// request. Failures get a 403 with a terse body; details go to the log.
func (p *CSRFProtector) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := p.Validate(r); err != nil {
			recordCSRFRejection(err)
			logging.Warn().
				Err(err).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("CSRF validation failed")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartSweepRoutine evicts expired tokens on a fixed interval until the
// returned channel is closed.
func (p *CSRFProtector) StartSweepRoutine(interval time.Duration) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := p.store.Sweep(); err != nil {
					logging.Warn().Err(err).Msg("CSRF token sweep failed")
				}
			case <-stop:
				return
			}
		}
	}()
	return stop
}
