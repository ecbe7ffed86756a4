// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package api

import (
	"net/http"
	"sync/atomic"
	"time"
)

// Health reports liveness and readiness for orchestrator probes.
type Health struct {
	started time.Time
	ready   atomic.Bool
}

// NewHealth creates the health handler set. The service starts not-ready;
// SetReady flips it once the supervisor tree is up.
func NewHealth() *Health {
	return &Health{started: time.Now()}
}

// SetReady marks the service as able to take traffic.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Live handles GET /api/v1/health/live. Answering at all is the check.
func (h *Health) Live(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Ready handles GET /api/v1/health/ready.
func (h *Health) Ready(w http.ResponseWriter, _ *http.Request) {
	if !h.ready.Load() {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
