// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres opens the pgx connection pool behind the user store.
//
// The store packages never see [*pgxpool.Pool] directly. They declare the
// narrow query interface they need, which both the pool and pgxmock satisfy.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/passgate/internal/platform/constants"
)

const (
	connectTimeout    = 5 * time.Second
	pingTimeout       = 2 * time.Second
	healthCheckPeriod = time.Minute
	maxConnLifetime   = time.Hour
	maxConnIdleTime   = 10 * time.Minute
)

// PoolOptions tunes the pool. Zero values take the defaults below.
type PoolOptions struct {
	// MaxConns defaults to 20. Every login holds a connection for two short
	// statements at most, so the pool rarely needs to be larger.
	MaxConns int32

	// StatementTimeout is applied to every new connection. Defaults to
	// [constants.GlobalRequestTimeout].
	StatementTimeout time.Duration
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.MaxConns <= 0 {
		o.MaxConns = 20
	}
	if o.StatementTimeout <= 0 {
		o.StatementTimeout = constants.GlobalRequestTimeout
	}
	return o
}

/*
NewPool connects to PostgreSQL and verifies the connection with a ping.

Parameters:
  - ctx: context.Context (bounds the initial connection)
  - dsn: string (libpq keyword string or postgres:// URL)
  - options: PoolOptions
  - logger: *slog.Logger

Returns:
  - *pgxpool.Pool: Ready pool, to be closed by the caller
  - error: Invalid DSN or unreachable server
*/
func NewPool(ctx context.Context, dsn string, options PoolOptions, logger *slog.Logger) (*pgxpool.Pool, error) {
	options = options.withDefaults()

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	poolConfig.MaxConns = options.MaxConns
	poolConfig.MinConns = min(2, options.MaxConns)
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout
	poolConfig.ConnConfig.RuntimeParams["application_name"] = constants.AppName

	statementTimeout := fmt.Sprintf("SET statement_timeout = %d", options.StatementTimeout.Milliseconds())
	poolConfig.AfterConnect = func(ctx context.Context, connection *pgx.Conn) error {
		_, err := connection.Exec(ctx, statementTimeout)
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres_pool_connected",
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(options.MaxConns)),
	)

	return pool, nil
}

// Ping checks the pool within a short deadline. Readiness probes call it.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}
	return nil
}
