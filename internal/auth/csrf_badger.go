// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/storegate-dev/storegate/internal/config"
	"github.com/storegate-dev/storegate/internal/logging"
)

const csrfKeyPrefix = "csrf:"

// BadgerTokenStore implements TokenStore on BadgerDB, keeping issued CSRF
// tokens valid across process restarts. Entries carry a native TTL, so
// Badger drops expired tokens on read; Sweep reclaims the value log.
type BadgerTokenStore struct {
	db *badger.DB
}

// NewBadgerTokenStore opens (or creates) a Badger database at path.
func NewBadgerTokenStore(path string) (*BadgerTokenStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open csrf token store at %s: %w", path, err)
	}

	return &BadgerTokenStore{db: db}, nil
}

// Set implements TokenStore.
func (s *BadgerTokenStore) Set(token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(csrfKeyPrefix+token), nil).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

// Valid implements TokenStore. Badger's TTL handling makes expired keys
// indistinguishable from absent ones.
func (s *BadgerTokenStore) Valid(token string) bool {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(csrfKeyPrefix + token))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false
	}
	if err != nil {
		logging.Warn().Err(err).Msg("CSRF token lookup failed")
		return false
	}
	return true
}

// Delete implements TokenStore.
func (s *BadgerTokenStore) Delete(token string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(csrfKeyPrefix + token))
	})
}

// Sweep implements TokenStore. Expiry itself is enforced by Badger's TTLs;
// this pass reclaims value log space left by dropped entries.
func (s *BadgerTokenStore) Sweep() error {
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Close implements TokenStore.
func (s *BadgerTokenStore) Close() error {
	return s.db.Close()
}

// NewTokenStore builds the TokenStore selected by configuration. The
// memory store is the default; the badger store requires a path.
func NewTokenStore(cfg *config.CSRFConfig) (TokenStore, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryTokenStore(), nil
	case "badger":
		if cfg.StorePath == "" {
			return nil, errors.New("csrf badger store requires a store path")
		}
		return NewBadgerTokenStore(cfg.StorePath)
	default:
		return nil, fmt.Errorf("unknown csrf store type: %s", cfg.Store)
	}
}
