// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storegate-dev/storegate/internal/auth"
	"github.com/storegate-dev/storegate/internal/config"
	"github.com/storegate-dev/storegate/internal/middleware"
	"github.com/storegate-dev/storegate/internal/ratelimit"
)

// Router wires the protection layers and handlers into the HTTP surface.
type Router struct {
	cfg      *config.Config
	handlers *auth.Handlers
	sessions *auth.SessionManager
	csrf     *auth.CSRFProtector
	gate     *middleware.Gate
	limiter  *ratelimit.Limiter
	health   *Health
}

// NewRouter creates the router over its collaborators.
func NewRouter(
	cfg *config.Config,
	handlers *auth.Handlers,
	sessions *auth.SessionManager,
	csrf *auth.CSRFProtector,
	gate *middleware.Gate,
	limiter *ratelimit.Limiter,
	health *Health,
) *Router {
	return &Router{
		cfg:      cfg,
		handlers: handlers,
		sessions: sessions,
		csrf:     csrf,
		gate:     gate,
		limiter:  limiter,
		health:   health,
	}
}

// Setup assembles the middleware chain and route tree.
//
// Order matters: the request ID and logger come first so every rejection
// is traceable, RealIP must run before anything keyed by client address,
// and the gate sits in front of all application routes.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	// An empty AllowedOrigins list means allow-all to the cors library,
	// so the layer is only mounted when origins are configured. With no
	// origins, cross-origin callers get no CORS headers at all.
	if len(rt.cfg.Security.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.cfg.Security.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", rt.cfg.CSRF.HeaderName},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Use(middleware.SecurityHeaders)
	r.Use(rt.gate.Handler)

	if !rt.cfg.RateLimit.Disabled {
		r.Use(httprate.Limit(
			rt.cfg.RateLimit.Requests,
			rt.cfg.RateLimit.Window,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))
	}

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", rt.health.Live)
		r.Get("/ready", rt.health.Ready)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(rt.csrf.Protect)

		loginLimit := ratelimit.Middleware(rt.limiter, "login", rt.cfg.RateLimit.LoginRequests, rt.cfg.RateLimit.LoginWindow)
		r.With(loginLimit).Post("/login", rt.handlers.Login)

		r.Post("/logout", rt.handlers.Logout)
		r.Get("/me", rt.handlers.Me)
		r.Get("/csrf", rt.handlers.CSRFToken)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(rt.sessions.Middleware)
		r.Use(auth.RequireAdmin)
		r.Use(rt.csrf.Protect)

		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			claims := auth.ClaimsFromContext(r.Context())
			respondJSON(w, http.StatusOK, map[string]string{
				"status": "ok",
				"admin":  claims.Email,
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
