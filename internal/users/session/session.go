// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session issues and resolves server-side login sessions.

A session is an opaque random token handed to the browser inside a signed
cookie. The server keeps a [Snapshot] of the user under the SHA-256 of that
token, so a leaked store does not yield usable cookies.

# Architecture

  - Snapshot: the identity captured at login. Later profile or role changes
    are not reflected until the user logs in again.
  - Store: persistence of snapshots, with a per-user index for bulk
    revocation. Implemented by RedisStore and MemoryStore.
  - Manager: token generation, TTL policy and the anonymous fallback.
*/
package session

import (
	"context"
	"errors"
	"time"

	"github.com/taibuivan/passgate/internal/platform/sec"
)

// ErrNotFound is returned by a [Store] when no live session exists for a key.
var ErrNotFound = errors.New("session: not found")

// # Domain Entities

// Principal is the identity a session is opened for.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Role   sec.Role
}

// Snapshot is the session data attached to authenticated requests.
//
// It never carries the password hash or salt.
type Snapshot struct {
	ID        string    `json:"id"` // short, log-safe prefix of the token hash
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      sec.Role  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// Persistent is false for browser-session cookies, which carry no expiry.
	Persistent bool `json:"persistent"`
}

// IsAdmin reports whether the session belongs to an administrator.
func (s *Snapshot) IsAdmin() bool { return s.Role.AtLeast(sec.RoleAdmin) }

// # Storage

// Store persists snapshots keyed by token hash.
type Store interface {

	// Save stores snapshot under key for ttl and indexes it by user.
	Save(ctx context.Context, key string, snapshot Snapshot, ttl time.Duration) error

	// Load returns the snapshot stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) (Snapshot, error)

	// Delete removes a single session. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteByUser removes every session of userID and reports how many existed.
	DeleteByUser(ctx context.Context, userID string) (int, error)
}
