// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound indicates no account exists for the given lookup key.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates an account already uses the given email.
	ErrUserExists = errors.New("user already exists")
)

// User is a storefront account as persisted. PasswordHash never leaves
// this package; handlers expose only the Profile projection.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	IsAdmin       bool      `json:"is_admin"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	LastLoginAt   time.Time `json:"last_login_at,omitempty"`
}

// Profile is the client-safe projection of a user.
type Profile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"emailVerified"`
	IsAdmin       bool   `json:"isAdmin"`
}

// Profile returns the sanitized projection of the user.
func (u *User) Profile() Profile {
	return Profile{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		IsAdmin:       u.IsAdmin,
	}
}

// UserStore persists storefront accounts. Email lookups are
// case-insensitive; implementations normalize before matching.
type UserStore interface {
	// GetByEmail returns the user for an email, or ErrUserNotFound.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID returns the user for an ID, or ErrUserNotFound.
	GetByID(ctx context.Context, id string) (*User, error)

	// Create inserts a new user, or ErrUserExists on a duplicate email.
	Create(ctx context.Context, user *User) error

	// UpdateLastLogin stamps a successful login time.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// normalizeEmail lowercases and trims an email for use as a lookup key.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryUserStore is an in-memory UserStore guarded by a mutex.
type MemoryUserStore struct {
	mu      sync.RWMutex
	byEmail map[string]*User
	byID    map[string]*User
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byEmail: make(map[string]*User),
		byID:    make(map[string]*User),
	}
}

// GetByEmail implements UserStore.
func (s *MemoryUserStore) GetByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// GetByID implements UserStore.
func (s *MemoryUserStore) GetByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// Create implements UserStore. Missing IDs and creation times are filled in.
func (s *MemoryUserStore) Create(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(user.Email)
	if _, exists := s.byEmail[key]; exists {
		return ErrUserExists
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	copied := *user
	s.byEmail[key] = &copied
	s.byID[copied.ID] = &copied
	return nil
}

// UpdateLastLogin implements UserStore.
func (s *MemoryUserStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	user.LastLoginAt = at
	return nil
}
