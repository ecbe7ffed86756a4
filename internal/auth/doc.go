// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

/*
Package auth provides authentication, session management, and CSRF protection
for the Storegate storefront.

This package is the security core between incoming HTTP requests and the
storefront's handlers. It owns credential verification, signed session
tokens, the auth-cookie lifecycle, anti-forgery tokens, and account lockout.
Everything else - catalog, orders, payments - consumes its single question:
is this request's bearer a valid, active, verified user, and is it an admin?

Key Components:

  - PasswordHasher: bcrypt credential hashing and verification (cost 12)
  - TokenCodec: session token signing and verification using HMAC-SHA256,
    with dual-secret verification for secret rotation
  - SessionManager: login, logout, and per-request authentication against
    a UserStore collaborator
  - CSRFProtector: anti-forgery token issuance and validation with a
    pluggable token store (in-memory or BadgerDB)
  - LockoutManager: failed-login tracking with exponential backoff

Sessions are stateless: the signed cookie is the sole carrier of session
state. There is no server-side session table and no revocation list; a
token stays valid until its expiry or until the signing secret changes.

Usage Example:

	codec, err := auth.NewTokenCodec(&cfg.Security)
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to initialize token codec")
	}
	sessions := auth.NewSessionManager(store, auth.NewPasswordHasher(), codec, &cfg.Security)

	// In a handler:
	claims := sessions.Authenticate(r)
	if !auth.IsAuthenticated(claims) {
	    // respond 401
	}
*/
package auth
