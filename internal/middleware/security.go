// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/storegate-dev/storegate/internal/config"
	"github.com/storegate-dev/storegate/internal/logging"
	"github.com/storegate-dev/storegate/internal/screener"
)

var gateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "storegate",
	Subsystem: "gate",
	Name:      "rejections_total",
	Help:      "Requests rejected by the request gate, by reason.",
}, []string{"reason"})

// SecurityHeaders stamps every response with the browser hardening set.
// The CSP is restrictive by default: the storefront API serves JSON, so
// nothing should ever need to execute from these responses.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")
		h.Set("Content-Security-Policy",
			"default-src 'self'; script-src 'self'; object-src 'none'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'")

		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// Gate screens requests on the configured sensitive path prefixes
// before they reach the router proper: known attack-tool User-Agents
// are refused outright, query strings are run through the threat
// screener, and numeric path IDs are bounds-checked. Paths outside the
// prefixes pass through untouched.
type Gate struct {
	cfg *config.ScreenerConfig
}

// NewGate creates the request gate from screener configuration.
func NewGate(cfg *config.ScreenerConfig) *Gate {
	return &Gate{cfg: cfg}
}

// Handler is the chi-compatible middleware entry point.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.cfg.Enabled || !g.sensitivePath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if ua := r.UserAgent(); g.blockedUserAgent(ua) {
			gateRejections.WithLabelValues("user_agent").Inc()
			logging.Warn().
				Str("user_agent", ua).
				Str("remote_addr", r.RemoteAddr).
				Msg("Blocked scanning tool by User-Agent")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if key, threat := screener.ScreenValues(r.URL.Query()); threat != screener.ThreatNone {
			gateRejections.WithLabelValues(string(threat)).Inc()
			logging.Warn().
				Str("param", key).
				Str("threat", string(threat)).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("Blocked request with malicious query input")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if !g.pathIDsInBounds(r.URL.Path) {
			gateRejections.WithLabelValues("path_id").Inc()
			logging.Warn().
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("Rejected out-of-bounds numeric path segment")
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// blockedUserAgent does a case-insensitive substring match against the
// configured tool names. Substring, not equality: scanners routinely pad
// their UA with version noise.
func (g *Gate) blockedUserAgent(ua string) bool {
	lowered := strings.ToLower(ua)
	for _, tool := range g.cfg.BlockedUserAgents {
		if strings.Contains(lowered, strings.ToLower(tool)) {
			return true
		}
	}
	return false
}

func (g *Gate) sensitivePath(path string) bool {
	for _, prefix := range g.cfg.Paths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// pathIDsInBounds checks every all-digit path segment. Zero, overflow,
// and anything beyond the configured maximum are rejected; IDs embedded
// in mixed segments like "order-123" are left alone.
func (g *Gate) pathIDsInBounds(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if segment == "" || !allDigits(segment) {
			continue
		}
		id, err := strconv.ParseInt(segment, 10, 64)
		if err != nil || id <= 0 || id > g.cfg.MaxPathID {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
