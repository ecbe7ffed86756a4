// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/storegate-dev/storegate/internal/logging"
	"github.com/storegate-dev/storegate/internal/middleware"
)

// requestLogger emits one structured line per completed request. Bodies
// and query strings are never logged; credentials travel through both.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logging.Info().
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("Request handled")
	})
}
