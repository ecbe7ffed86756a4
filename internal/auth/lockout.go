// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"sync"
	"time"

	"github.com/storegate-dev/storegate/internal/config"
	"github.com/storegate-dev/storegate/internal/logging"
)

// lockoutEntry tracks failed logins for one subject.
type lockoutEntry struct {
	failures     int
	lockouts     int
	lockedUntil  time.Time
	lastActivity time.Time
}

// LockoutManager throttles credential guessing by locking a subject after
// repeated failures. Subjects are opaque strings; callers key by
// normalized email and by client IP so both the targeted account and the
// attacking source get locked.
//
// Lock duration doubles with each consecutive lockout, capped at the
// configured maximum. A successful login resets the subject.
type LockoutManager struct {
	mu      sync.Mutex
	entries map[string]*lockoutEntry
	cfg     *config.LockoutConfig
}

// NewLockoutManager creates a lockout manager from configuration.
func NewLockoutManager(cfg *config.LockoutConfig) *LockoutManager {
	return &LockoutManager{
		entries: make(map[string]*lockoutEntry),
		cfg:     cfg,
	}
}

// IsLocked reports whether the subject is currently locked out and, if so,
// when the lock expires.
func (m *LockoutManager) IsLocked(subject string) (bool, time.Time) {
	if !m.cfg.Enabled {
		return false, time.Time{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[subject]
	if !ok {
		return false, time.Time{}
	}
	if time.Now().Before(entry.lockedUntil) {
		return true, entry.lockedUntil
	}
	return false, time.Time{}
}

// RecordFailure counts a failed attempt and locks the subject once the
// failure threshold is reached.
func (m *LockoutManager) RecordFailure(subject string) {
	if !m.cfg.Enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	entry, ok := m.entries[subject]
	if !ok {
		entry = &lockoutEntry{}
		m.entries[subject] = entry
	}

	entry.failures++
	entry.lastActivity = now

	if entry.failures >= m.cfg.MaxAttempts {
		entry.lockouts++
		entry.failures = 0
		entry.lockedUntil = now.Add(m.lockDuration(entry.lockouts))
		logging.Warn().
			Str("subject", subject).
			Int("lockout_count", entry.lockouts).
			Time("locked_until", entry.lockedUntil).
			Msg("Subject locked out after repeated login failures")
	}
}

// RecordSuccess clears all failure state for the subject.
func (m *LockoutManager) RecordSuccess(subject string) {
	if !m.cfg.Enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, subject)
}

// lockDuration doubles the base duration per consecutive lockout, capped
// at the configured maximum.
func (m *LockoutManager) lockDuration(lockouts int) time.Duration {
	d := m.cfg.Duration
	for i := 1; i < lockouts; i++ {
		d *= 2
		if d >= m.cfg.MaxDuration {
			return m.cfg.MaxDuration
		}
	}
	if d > m.cfg.MaxDuration {
		return m.cfg.MaxDuration
	}
	return d
}

// Sweep drops entries that are unlocked and idle, bounding memory under
// sustained scanning.
func (m *LockoutManager) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-m.cfg.Duration * 2)
	for subject, entry := range m.entries {
		if now.After(entry.lockedUntil) && entry.lastActivity.Before(cutoff) {
			delete(m.entries, subject)
		}
	}
}

// StartCleanupRoutine runs Sweep on a fixed interval until the returned
// channel is closed.
func (m *LockoutManager) StartCleanupRoutine(interval time.Duration) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-stop:
				return
			}
		}
	}()
	return stop
}
