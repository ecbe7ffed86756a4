// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"testing"
	"time"

	"github.com/storegate-dev/storegate/internal/config"
)

func newBadgerStore(t *testing.T) *BadgerTokenStore {
	t.Helper()

	store, err := NewBadgerTokenStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadgerTokenStore() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func TestBadgerTokenStore(t *testing.T) {
	store := newBadgerStore(t)

	t.Run("set and validate", func(t *testing.T) {
		if err := store.Set("token-1", time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if !store.Valid("token-1") {
			t.Error("Valid() = false for a live token")
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		if store.Valid("never-issued") {
			t.Error("Valid() = true for an unknown token")
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.Set("token-2", time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := store.Delete("token-2"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if store.Valid("token-2") {
			t.Error("Valid() = true after delete")
		}
	})

	t.Run("already expired", func(t *testing.T) {
		if err := store.Set("token-3", time.Now().Add(-time.Minute)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if store.Valid("token-3") {
			t.Error("Valid() = true for an expired token")
		}
	})

	t.Run("sweep is safe", func(t *testing.T) {
		if err := store.Sweep(); err != nil {
			t.Errorf("Sweep() error = %v", err)
		}
	})
}

func TestNewTokenStore(t *testing.T) {
	t.Run("default is memory", func(t *testing.T) {
		store, err := NewTokenStore(&config.CSRFConfig{})
		if err != nil {
			t.Fatalf("NewTokenStore() error = %v", err)
		}
		if _, ok := store.(*MemoryTokenStore); !ok {
			t.Errorf("store type = %T, want *MemoryTokenStore", store)
		}
	})

	t.Run("badger needs a path", func(t *testing.T) {
		if _, err := NewTokenStore(&config.CSRFConfig{Store: "badger"}); err == nil {
			t.Error("NewTokenStore() expected error for badger without path")
		}
	})

	t.Run("badger with path", func(t *testing.T) {
		store, err := NewTokenStore(&config.CSRFConfig{Store: "badger", StorePath: t.TempDir()})
		if err != nil {
			t.Fatalf("NewTokenStore() error = %v", err)
		}
		defer store.Close()
		if _, ok := store.(*BadgerTokenStore); !ok {
			t.Errorf("store type = %T, want *BadgerTokenStore", store)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewTokenStore(&config.CSRFConfig{Store: "redis"}); err == nil {
			t.Error("NewTokenStore() expected error for unknown store type")
		}
	})
}
