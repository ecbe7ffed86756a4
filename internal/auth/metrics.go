// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package auth

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storegate",
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	tokenVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storegate",
		Subsystem: "auth",
		Name:      "token_verifications_total",
		Help:      "Session token verifications by result.",
	}, []string{"result"})

	csrfRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storegate",
		Subsystem: "auth",
		Name:      "csrf_rejections_total",
		Help:      "CSRF validations rejected, by reason.",
	}, []string{"reason"})

	lockoutRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storegate",
		Subsystem: "auth",
		Name:      "lockout_rejections_total",
		Help:      "Login attempts refused because the subject was locked out.",
	})
)

// recordLoginAttempt counts a login attempt under its outcome label.
func recordLoginAttempt(outcome LoginOutcome) {
	label := "invalid_credentials"
	switch outcome {
	case OutcomeSuccess:
		label = "success"
	case OutcomeEmailNotVerified:
		label = "email_not_verified"
	case OutcomeAccountDisabled:
		label = "account_disabled"
	}
	loginAttempts.WithLabelValues(label).Inc()
}

// recordTokenVerification counts a verification result. A nil error means
// the token was accepted.
func recordTokenVerification(err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrTokenExpired):
		result = "expired"
	case errors.Is(err, ErrTokenMalformed):
		result = "malformed"
	default:
		result = "bad_signature"
	}
	tokenVerifications.WithLabelValues(result).Inc()
}

// recordCSRFRejection counts a failed CSRF validation under its reason.
func recordCSRFRejection(err error) {
	reason := "invalid_token"
	switch {
	case errors.Is(err, ErrCSRFOriginMissing):
		reason = "origin_missing"
	case errors.Is(err, ErrCSRFOriginMismatch):
		reason = "origin_mismatch"
	case errors.Is(err, ErrCSRFTokenMissing):
		reason = "missing_token"
	}
	csrfRejections.WithLabelValues(reason).Inc()
}

// recordLockoutRejection counts an attempt refused by the lockout manager.
func recordLockoutRejection() {
	lockoutRejections.Inc()
}
