// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storegate-dev/storegate/internal/api"
	"github.com/storegate-dev/storegate/internal/auth"
	"github.com/storegate-dev/storegate/internal/config"
	"github.com/storegate-dev/storegate/internal/logging"
	"github.com/storegate-dev/storegate/internal/middleware"
	"github.com/storegate-dev/storegate/internal/ratelimit"
	"github.com/storegate-dev/storegate/internal/supervisor"
	"github.com/storegate-dev/storegate/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("Starting Storegate")

	codec, err := auth.NewTokenCodec(&cfg.Security)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	tokenStore, err := auth.NewTokenStore(&cfg.CSRF)
	if err != nil {
		return fmt.Errorf("csrf token store: %w", err)
	}
	defer func() {
		if err := tokenStore.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close csrf token store")
		}
	}()

	users := auth.NewMemoryUserStore()
	hasher := auth.NewPasswordHasher()
	if err := bootstrapAdmin(cfg, users, hasher); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	sessions := auth.NewSessionManager(users, hasher, codec, &cfg.Security)
	csrf := auth.NewCSRFProtector(tokenStore, &cfg.CSRF)
	lockout := auth.NewLockoutManager(&cfg.Security.Lockout)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore())
	gate := middleware.NewGate(&cfg.Screener)
	handlers := auth.NewHandlers(sessions, csrf, lockout)
	health := api.NewHealth()

	router := api.NewRouter(cfg, handlers, sessions, csrf, gate, limiter, health)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	tree.AddMaintenanceService(services.NewSweeperService(
		"csrf-sweeper", cfg.CSRF.SweepInterval, tokenStore.Sweep))
	tree.AddMaintenanceService(services.NewSweeperService(
		"ratelimit-sweeper", cfg.RateLimit.SweepInterval, func() error {
			limiter.Sweep()
			return nil
		}))
	tree.AddMaintenanceService(services.NewSweeperService(
		"lockout-sweeper", cfg.Security.Lockout.CleanupInterval, func() error {
			lockout.Sweep()
			return nil
		}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := tree.ServeBackground(ctx)
	health.SetReady(true)
	logging.Info().Msg("Storegate ready")

	err = <-errCh
	health.SetReady(false)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logging.Info().Msg("Storegate stopped")
	return nil
}

// bootstrapAdmin seeds the configured administrator account so a fresh
// deployment is reachable. Skipped when no admin credentials are set.
func bootstrapAdmin(cfg *config.Config, users auth.UserStore, hasher *auth.PasswordHasher) error {
	if cfg.Security.AdminEmail == "" || cfg.Security.AdminPassword == "" {
		logging.Warn().Msg("No admin account configured")
		return nil
	}

	policy := config.DefaultPasswordPolicy()
	if err := policy.Validate(cfg.Security.AdminPassword); err != nil {
		return fmt.Errorf("admin password rejected by policy: %w", err)
	}

	hash, err := hasher.Hash(cfg.Security.AdminPassword)
	if err != nil {
		return err
	}

	err = users.Create(context.Background(), &auth.User{
		Email:         cfg.Security.AdminEmail,
		Name:          "Administrator",
		PasswordHash:  hash,
		EmailVerified: true,
		IsAdmin:       true,
		Active:        true,
	})
	if err != nil && !errors.Is(err, auth.ErrUserExists) {
		return err
	}

	logging.Info().Str("email", cfg.Security.AdminEmail).Msg("Admin account ready")
	return nil
}
