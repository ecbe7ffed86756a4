// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the bcrypt work factor for new hashes.
// Cost 12 puts a single verification in the hundreds-of-milliseconds range
// on current hardware, which is the point: brute force has to pay it too.
const bcryptCost = 12

// PasswordHasher computes and verifies one-way credential hashes.
// It never stores anything; the password hash lives with the user record.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the production cost factor.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcryptCost}
}

// newPasswordHasherWithCost creates a hasher with a custom cost.
// Tests use the minimum cost to keep hashing fast.
func newPasswordHasherWithCost(cost int) *PasswordHasher {
	return &PasswordHasher{cost: cost}
}

// Hash computes a salted bcrypt digest of the plaintext.
// The salt and cost are embedded in the returned hash string.
// Returns an error for empty input; an empty credential must never
// round-trip into a verifiable hash.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("password must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// Verify reports whether the plaintext matches the stored hash. Any
// failure, whether mismatch, malformed hash, or empty input, returns
// false; verification never surfaces an error for a user-facing mismatch.
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	if plaintext == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
