// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taibuivan/passgate/internal/api"
	"github.com/taibuivan/passgate/internal/platform/constants"
	"github.com/taibuivan/passgate/internal/platform/metrics"
	"github.com/taibuivan/passgate/internal/platform/ratelimit"
	"github.com/taibuivan/passgate/internal/platform/sec"
	"github.com/taibuivan/passgate/internal/users/account"
	"github.com/taibuivan/passgate/internal/users/auth"
	"github.com/taibuivan/passgate/internal/users/session"
)

// startupTimeout bounds connecting to the backends, so misconfiguration is
// caught quickly rather than hanging indefinitely.
const startupTimeout = 30 * time.Second

var serveMemory bool

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. PostgreSQL and Redis are connected and migrated first,
unless --memory keeps every store in process (development only).`,
		RunE: runServe,
	}
	cmd.Flags().BoolVar(&serveMemory, "memory", false, "keep users, sessions and rate limits in memory")
	return cmd
}

/*
runServe wires and runs the server.

# Startup Sequence
 1. Load configuration and build the logger.
 2. Connect and migrate the backends (or build the in-memory ones).
 3. Build hasher, sessions, mailer, metrics and the auth service.
 4. Start the HTTP server and wait for a signal or a server error.
*/
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger(cmd.OutOrStdout(), cfg)
	slog.SetDefault(log)
	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("addr", cfg.Addr()),
		slog.Bool("auth_enabled", cfg.AuthEnabled),
		slog.Bool("memory", serveMemory),
	)

	policy := ratelimit.Policy{Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax}
	if err := policy.Validate(); err != nil {
		return err
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// ── Backends ─────────────────────────────────────────────────────────
	var stores *backends
	if serveMemory {
		log.Warn("serving_from_memory")
		stores = memoryBackends(rootCtx, cfg)
	} else {
		startupCtx, cancel := context.WithTimeout(rootCtx, startupTimeout)
		stores, err = openBackends(startupCtx, cfg, log)
		cancel()
		if err != nil {
			return err
		}
	}
	defer stores.close()

	// ── Domain Wiring ────────────────────────────────────────────────────
	var (
		recorder       *metrics.Metrics
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		registry := metrics.NewRegistry()
		recorder = metrics.New(registry)
		metricsHandler = metrics.Handler(registry)
	}

	sessions := session.NewManager(stores.sessions, session.Options{TTL: cfg.SessionTTL})
	signer := sec.NewCookieSigner(cfg.SessionSecret)
	service := newAuthService(cfg, stores.users, sessions, newMailer(cfg, log), recorder)

	handlers := api.Handlers{
		Account: account.NewHandler(account.NewService(stores.users)),
		Metrics: metricsHandler,
	}
	handlers.Liveness, handlers.Readiness = api.NewHealthHandlers(stores.health, log)
	if cfg.AuthEnabled {
		handlers.Auth = auth.NewHandler(service, sessions, signer, auth.CookieOptions{
			Name:   cfg.SessionCookieName,
			Secure: cfg.SessionCookieSecure,
		})
	}

	server := api.NewServer(rootCtx, cfg, log, api.Gate{
		Sessions: sessions,
		Cookies:  signer,
		Limiter:  stores.limiter,
		Policy:   policy,
		Metrics:  recorder,
	}, handlers)

	// ── Run & Graceful Shutdown ──────────────────────────────────────────
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		log.Error("server_failed", slog.Any("error", err))
		return err
	}

	log.Info("server_shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		return err
	}

	log.Info("server_stopped")
	return nil
}
