// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Access control is attached here, at mount time: handlers assume the guard
    in front of them already ran.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/passgate/internal/platform/config"
	"github.com/taibuivan/passgate/internal/platform/constants"
	"github.com/taibuivan/passgate/internal/platform/metrics"
	"github.com/taibuivan/passgate/internal/platform/middleware"
	"github.com/taibuivan/passgate/internal/platform/ratelimit"
	"github.com/taibuivan/passgate/internal/users/account"
	"github.com/taibuivan/passgate/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once by the serve command with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler. Always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. Returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Metrics serves /metrics. Nil disables the endpoint.
	Metrics http.Handler

	// Auth handles the credential endpoints. Nil when AUTH_ENABLED is off.
	Auth *auth.Handler

	// Account serves /me and the admin user directory.
	Account *account.Handler
}

// Gate holds what the middleware chain needs to resolve and limit callers.
type Gate struct {
	Sessions middleware.SessionReader
	Cookies  middleware.CookieVerifier
	Limiter  ratelimit.Limiter
	Policy   ratelimit.Policy
	Metrics  *metrics.Metrics
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger, gate Gate, h Handlers) *Server {
	r := chi.NewRouter()

	// Validate already rejected malformed entries; nil trusts no proxy.
	trusted, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		log.Error("ignoring TRUSTED_PROXIES", slog.Any("error", err))
		trusted = nil
	}

	// # Middleware Chain
	r.Use(middleware.RequestID())
	r.Use(middleware.ClientIP(trusted))
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(ctx, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(gate.Sessions, gate.Cookies, cfg.SessionCookieName))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	// # Application API
	r.Route("/api/v1", func(api chi.Router) {
		if h.Auth != nil {
			limit := middleware.AuthRateLimit(gate.Limiter, gate.Policy.Message(), gate.Metrics)
			api.Mount("/auth", h.Auth.Routes(limit))
		}

		api.Group(func(authenticated chi.Router) {
			authenticated.Use(middleware.RequireAuthenticated(constants.LoginPath))
			authenticated.Mount("/me", h.Account.Routes())
		})

		api.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireAdmin(constants.LoginPath, constants.HomePath))
			admin.Mount("/admin/users", h.Account.AdminRoutes())
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the fully assembled router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
