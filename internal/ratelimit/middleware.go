// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/storegate-dev/storegate/internal/logging"
)

var throttledRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "storegate",
	Subsystem: "ratelimit",
	Name:      "throttled_requests_total",
	Help:      "Requests rejected with 429, by route group.",
}, []string{"group"})

// Middleware enforces a fixed-window limit per client on the wrapped
// routes. The group label only feeds metrics and logs.
func Middleware(limiter *Limiter, group string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := group + ":" + ClientKey(r)
			result := limiter.Check(key, limit, window)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				throttledRequests.WithLabelValues(group).Inc()
				retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				logging.Warn().
					Str("group", group).
					Str("remote_addr", r.RemoteAddr).
					Str("path", r.URL.Path).
					Msg("Request rate limited")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				if err := json.NewEncoder(w).Encode(map[string]string{
					"error": "Too many requests. Please try again later.",
				}); err != nil {
					logging.Error().Err(err).Msg("Failed to encode response")
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
