// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

// Package api assembles the HTTP surface: routing, response helpers, and
// the health endpoints.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/storegate-dev/storegate/internal/logging"
)

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError writes a terse JSON error. Messages are client-safe; any
// diagnostic detail belongs in the log, keyed by request ID.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
