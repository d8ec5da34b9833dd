// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

//go:build integration

package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/taibuivan/passgate/internal/platform/config"
	"github.com/taibuivan/passgate/internal/platform/sec"
	"github.com/taibuivan/passgate/internal/users/auth"
	"github.com/taibuivan/passgate/internal/users/session"
)

func startContainers(t *testing.T) (databaseURL, redisURL string) {
	t.Helper()
	ctx := context.Background()

	pg, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("passgate_test"),
		tcpostgres.WithUsername("passgate"),
		tcpostgres.WithPassword("passgate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	databaseURL, err = pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rd, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rd.Terminate(ctx) })

	endpoint, err := rd.Endpoint(ctx, "")
	require.NoError(t, err)

	return databaseURL, "redis://" + endpoint + "/0"
}

/*
TestOpenBackends_Integration runs the persistent wiring end to end: migrations,
user store, Redis sessions and the shared rate limiter.
*/
func TestOpenBackends_Integration(t *testing.T) {
	databaseURL, redisURL := startContainers(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		DatabaseURL:     databaseURL,
		RedisURL:        redisURL,
		PasswordPepper:  "pepper",
		SessionTTL:      time.Hour,
		RateLimitWindow: time.Minute,
		RateLimitMax:    6,
		ResetTokenTTL:   time.Hour,
		MailTimeout:     time.Second,
	}

	stores, err := openBackends(ctx, cfg, log)
	require.NoError(t, err)
	t.Cleanup(stores.close)

	require.NoError(t, stores.health.CheckDatabase(ctx))
	require.NoError(t, stores.health.CheckCache(ctx))

	sessions := session.NewManager(stores.sessions, session.Options{TTL: cfg.SessionTTL})
	service := newAuthService(cfg, stores.users, sessions, nil, nil)

	result, err := service.Register(ctx, auth.RegisterInput{
		Name: "alice", Email: "alice@example.com", Password: "s3cret-pass", Password2: "s3cret-pass",
	})
	require.NoError(t, err)

	snapshot, ok := sessions.Read(ctx, result.Token)
	require.True(t, ok)
	assert.Equal(t, sec.RoleUser, snapshot.Role)

	_, err = service.Login(ctx, auth.LoginInput{Email: "ALICE@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	for range cfg.RateLimitMax {
		decision, err := stores.limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	}
	decision, err := stores.limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Positive(t, decision.RetryAfter)
}
