// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis opens the client shared by the session store and the auth rate
limiter.

Both keep expiring state only: session records with a per-user index for bulk
revocation, and the sliding-window logs of the limiter. Losing the server logs
everyone out and resets the windows, nothing more.
*/
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/passgate/internal/platform/constants"
)

const (
	dialTimeout = 3 * time.Second
	ioTimeout   = 2 * time.Second
	pingTimeout = 2 * time.Second
)

// ClientOptions tunes the client. Zero values take the defaults.
type ClientOptions struct {
	// PoolSize defaults to 10 connections.
	PoolSize int
}

// NewClient parses redisURL, applies the options and pings the server once.
func NewClient(ctx context.Context, redisURL string, options ClientOptions, logger *slog.Logger) (*redis.Client, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	parsed.ClientName = constants.AppName
	parsed.PoolSize = options.PoolSize
	if parsed.PoolSize <= 0 {
		parsed.PoolSize = 10
	}
	parsed.MinIdleConns = min(2, parsed.PoolSize)
	parsed.DialTimeout = dialTimeout
	parsed.ReadTimeout = ioTimeout
	parsed.WriteTimeout = ioTimeout

	client := redis.NewClient(parsed)

	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", parsed.Addr),
		slog.Int("db", parsed.DB),
		slog.Int("pool_size", parsed.PoolSize),
	)

	return client, nil
}

// Ping checks the client within a short deadline.
func Ping(ctx context.Context, client redis.Cmdable) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}
