// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/taibuivan/passgate/internal/api"
	"github.com/taibuivan/passgate/internal/platform/config"
	"github.com/taibuivan/passgate/internal/platform/constants"
	"github.com/taibuivan/passgate/internal/platform/mail"
	"github.com/taibuivan/passgate/internal/platform/metrics"
	"github.com/taibuivan/passgate/internal/platform/migration"
	pgstore "github.com/taibuivan/passgate/internal/platform/postgres"
	"github.com/taibuivan/passgate/internal/platform/ratelimit"
	redisstore "github.com/taibuivan/passgate/internal/platform/redis"
	"github.com/taibuivan/passgate/internal/platform/sec"
	"github.com/taibuivan/passgate/internal/users/account"
	"github.com/taibuivan/passgate/internal/users/auth"
	"github.com/taibuivan/passgate/internal/users/session"
)

// backends are the stateful collaborators, either on PostgreSQL and Redis or
// in process memory.
type backends struct {
	users    account.Store
	sessions session.Store
	limiter  ratelimit.Limiter
	health   api.HealthDependencies
	close    func()
}

// openBackends connects the persistent stores and applies the migrations.
func openBackends(ctx context.Context, cfg *config.Config, log *slog.Logger) (*backends, error) {
	if err := cfg.RequireBackends(); err != nil {
		return nil, err
	}

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, pgstore.PoolOptions{MaxConns: cfg.DatabaseMaxConns}, log)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	rdb, err := redisstore.NewClient(ctx, cfg.RedisURL, redisstore.ClientOptions{PoolSize: cfg.RedisPoolSize}, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	if err := migration.RunUp(cfg.DatabaseURL, log); err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	policy := ratelimit.Policy{Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax}

	return &backends{
		users:    account.NewPostgresStore(pool),
		sessions: session.NewRedisStore(rdb),
		limiter:  ratelimit.NewRedisLimiter(rdb, policy),
		health:   healthChecks(pool, rdb),
		close: func() {
			log.Info("closing_backends")
			pool.Close()
			if err := rdb.Close(); err != nil {
				log.Error("redis_close_failed", slog.Any("error", err))
			}
		},
	}, nil
}

// memoryBackends keeps everything in process. State is lost on exit.
func memoryBackends(ctx context.Context, cfg *config.Config) *backends {
	limiter := ratelimit.NewMemoryLimiter(ratelimit.Policy{Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax})
	go limiter.Run(ctx, constants.RateLimitCleanupInterval)

	return &backends{
		users:    account.NewMemoryStore(),
		sessions: session.NewMemoryStore(nil),
		limiter:  limiter,
		close:    func() {},
	}
}

func healthChecks(pool *pgxpool.Pool, rdb *goredis.Client) api.HealthDependencies {
	return api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		CheckCache:    func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
	}
}

// newMailer picks SMTP when a relay is configured, and the logging sender otherwise.
func newMailer(cfg *config.Config, log *slog.Logger) mail.Sender {
	if cfg.SMTPHost == "" {
		log.Warn("mail_smtp_disabled", slog.String("sender", "log"))
		return mail.NewLogSender(log)
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		From:      cfg.SMTPFrom,
		Retries:   constants.MailRetries,
		RetryBase: constants.MailRetryBase,
	})
}

// newAuthService assembles the auth use cases. sessions may be nil for
// commands that never open one.
func newAuthService(cfg *config.Config, users account.Store, sessions *session.Manager, mailer mail.Sender, recorder *metrics.Metrics) *auth.Service {
	return auth.NewService(auth.Dependencies{
		Users:    users,
		Sessions: sessions,
		Hasher:   sec.NewHasher(cfg.PasswordPepper, cfg.HashWorkers),
		Mailer:   mailer,
		Metrics:  recorder,
	}, auth.Options{
		ResetTokenTTL:         cfg.ResetTokenTTL,
		PublicBaseURL:         cfg.PublicBaseURL,
		MailTimeout:           cfg.MailTimeout,
		RevokeSessionsOnReset: cfg.ResetRevokesSessions,
		HideUnknownEmail:      cfg.ResetHideUnknownEmail,
	})
}
