// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/passgate/internal/platform/constants"
	"github.com/taibuivan/passgate/internal/platform/ctxkey"
	"github.com/taibuivan/passgate/internal/platform/sec"
)

// Options configures a [Manager].
type Options struct {

	// TTL is the lifetime of a session. Zero issues browser-session cookies,
	// whose server-side record lives for BrowserSessionLifetime.
	TTL time.Duration

	// BrowserSessionLifetime defaults to constants.BrowserSessionLifetime.
	BrowserSessionLifetime time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager issues, resolves and revokes sessions.
type Manager struct {
	store   Store
	ttl     time.Duration
	browser time.Duration
	now     func() time.Time
}

// NewManager creates a [Manager] on top of store.
func NewManager(store Store, opts Options) *Manager {
	if opts.BrowserSessionLifetime <= 0 {
		opts.BrowserSessionLifetime = constants.BrowserSessionLifetime
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:   store,
		ttl:     opts.TTL,
		browser: opts.BrowserSessionLifetime,
		now:     opts.Now,
	}
}

// Persistent reports whether issued cookies carry an expiry.
func (manager *Manager) Persistent() bool { return manager.ttl > 0 }

/*
Create opens a new session for principal.

Returns:
  - string: The raw session token (only ever sent to the client)
  - Snapshot: The stored session data
  - error: Token generation or storage failures
*/
func (manager *Manager) Create(ctx context.Context, principal Principal) (string, Snapshot, error) {
	token, err := sec.GenerateSecureToken(constants.SessionTokenBytes)
	if err != nil {
		return "", Snapshot{}, fmt.Errorf("session: generate token: %w", err)
	}

	lifetime := manager.ttl
	if lifetime <= 0 {
		lifetime = manager.browser
	}

	now := manager.now().UTC()
	hash := sec.HashToken(token)
	snapshot := Snapshot{
		ID:         shortID(hash),
		UserID:     principal.UserID,
		Email:      principal.Email,
		Name:       principal.Name,
		Role:       principal.Role,
		CreatedAt:  now,
		ExpiresAt:  now.Add(lifetime),
		Persistent: manager.Persistent(),
	}

	if err := manager.store.Save(ctx, hash, snapshot, lifetime); err != nil {
		return "", Snapshot{}, err
	}
	return token, snapshot, nil
}

// Read resolves a raw token. Missing, expired and unreadable sessions all
// yield ok == false; store failures are logged, not returned.
func (manager *Manager) Read(ctx context.Context, token string) (Snapshot, bool) {
	if token == "" {
		return Snapshot{}, false
	}

	snapshot, err := manager.store.Load(ctx, sec.HashToken(token))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			loggerFrom(ctx).WarnContext(ctx, "session_read_failed", slog.String("error", err.Error()))
		}
		return Snapshot{}, false
	}

	if !manager.now().Before(snapshot.ExpiresAt) {
		return Snapshot{}, false
	}
	return snapshot, true
}

// Destroy revokes the session behind token. Failures are logged only, so
// logging out always succeeds from the caller's point of view.
func (manager *Manager) Destroy(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := manager.store.Delete(ctx, sec.HashToken(token)); err != nil {
		loggerFrom(ctx).WarnContext(ctx, "session_destroy_failed", slog.String("error", err.Error()))
	}
}

// DestroyAllForUser revokes every session of userID.
func (manager *Manager) DestroyAllForUser(ctx context.Context, userID string) (int, error) {
	removed, err := manager.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("session: revoke user sessions: %w", err)
	}
	return removed, nil
}

// CookieExpiry returns the expiry to put on the cookie for snapshot, or the
// zero time for a browser-session cookie.
func (manager *Manager) CookieExpiry(snapshot Snapshot) time.Time {
	if !snapshot.Persistent {
		return time.Time{}
	}
	return snapshot.ExpiresAt
}

func shortID(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}
