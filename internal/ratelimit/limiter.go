// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

// Package ratelimit implements fixed-window request throttling keyed by
// client identity. Each key gets a counter per window; the counter resets
// when the wall clock crosses a window boundary, so a burst straddling the
// boundary can see up to twice the limit. That tradeoff buys O(1) state
// per client and exact Retry-After values.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Store tracks request counts per key and window. Implementations must be
// safe for concurrent use.
type Store interface {
	// Incr increments the counter for key within the window that
	// contains now, returning the new count and the window's end.
	Incr(key string, window time.Duration, now time.Time) (int, time.Time)

	// Sweep drops counters whose window ended before now.
	Sweep(now time.Time)
}

type windowCounter struct {
	count   int
	resetAt time.Time
}

// MemoryStore is a mutex-guarded in-memory Store.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]*windowCounter)}
}

// Incr implements Store.
func (s *MemoryStore) Incr(key string, window time.Duration, now time.Time) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &windowCounter{resetAt: now.Truncate(window).Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, c.resetAt
}

// Sweep implements Store.
func (s *MemoryStore) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, c := range s.counters {
		if !now.Before(c.resetAt) {
			delete(s.counters, key)
		}
	}
}

// len returns the live counter count, for tests.
func (s *MemoryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

// Limiter applies fixed-window limits over a Store.
type Limiter struct {
	store Store
	now   func() time.Time
}

// NewLimiter creates a limiter over the given store.
func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Check counts a request against the key's current window. The request is
// allowed while the count stays at or under limit; Remaining never goes
// negative.
func (l *Limiter) Check(key string, limit int, window time.Duration) Result {
	count, resetAt := l.store.Incr(key, window, l.now())

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// Sweep drops counters whose window has already ended.
func (l *Limiter) Sweep() {
	l.store.Sweep(l.now())
}

// StartSweepRoutine evicts stale counters on a fixed interval until the
// returned channel is closed.
func (l *Limiter) StartSweepRoutine(interval time.Duration) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Sweep()
			case <-stop:
				return
			}
		}
	}()
	return stop
}

// ClientKey derives a throttling key from a request using the client IP
// and User-Agent. Requests with neither fall into a shared "unknown"
// bucket rather than bypassing the limiter.
func ClientKey(r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}

	ua := r.UserAgent()
	if ip == "" && ua == "" {
		return "unknown"
	}
	return ip + "|" + ua
}
