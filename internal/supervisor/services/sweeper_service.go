// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package services

import (
	"context"
	"time"

	"github.com/storegate-dev/storegate/internal/logging"
)

// SweeperService runs a cleanup function on a fixed interval under
// supervision. CSRF token expiry, stale rate limit counters, and idle
// lockout entries are all swept this way.
type SweeperService struct {
	name     string
	interval time.Duration
	sweep    func() error
}

// NewSweeperService wraps a sweep function for supervision.
func NewSweeperService(name string, interval time.Duration, sweep func() error) *SweeperService {
	return &SweeperService{
		name:     name,
		interval: interval,
		sweep:    sweep,
	}
}

// Serve implements suture.Service. A failing sweep is logged, not fatal;
// the next tick retries.
func (s *SweeperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.sweep(); err != nil {
				logging.Warn().Err(err).Str("sweeper", s.name).Msg("Sweep failed")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// String names the service in supervisor logs.
func (s *SweeperService) String() string {
	return s.name
}
