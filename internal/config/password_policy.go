// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package config

import (
	"fmt"
	"strings"
	"unicode"
)

// PasswordPolicy defines requirements for password strength.
// Follows NIST SP 800-63B guidelines.
type PasswordPolicy struct {
	// MinLength is the minimum password length.
	MinLength int

	// RequireUppercase requires at least one uppercase letter.
	RequireUppercase bool

	// RequireLowercase requires at least one lowercase letter.
	RequireLowercase bool

	// RequireDigit requires at least one digit.
	RequireDigit bool

	// RequireSpecial requires at least one special character.
	RequireSpecial bool
}

// DefaultPasswordPolicy returns the policy applied to admin bootstrap
// passwords. Stricter than the customer policy because admin accounts
// gate the back office.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        12,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
		RequireSpecial:   true,
	}
}

// CustomerPasswordPolicy returns the policy applied to storefront customer
// passwords. Still secure but more user-friendly.
func CustomerPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        8,
		RequireLowercase: true,
		RequireDigit:     true,
	}
}

// Validate checks a password against the policy.
// Returns nil when the password satisfies every requirement, or an error
// naming the first failed requirement. The error message never includes
// the password itself.
func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters", p.MinLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	var missing []string
	if p.RequireUppercase && !hasUpper {
		missing = append(missing, "an uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		missing = append(missing, "a lowercase letter")
	}
	if p.RequireDigit && !hasDigit {
		missing = append(missing, "a digit")
	}
	if p.RequireSpecial && !hasSpecial {
		missing = append(missing, "a special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain %s", strings.Join(missing, ", "))
	}

	return nil
}
