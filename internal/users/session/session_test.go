// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/passgate/internal/platform/sec"
	"github.com/taibuivan/passgate/internal/users/session"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var alice = session.Principal{UserID: "u-1", Email: "alice@example.com", Name: "alice", Role: sec.RoleUser}

func newManager(ttl time.Duration) (*session.Manager, *session.MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := session.NewMemoryStore(clock.Now)
	return session.NewManager(store, session.Options{TTL: ttl, Now: clock.Now}), store, clock
}

/*
TestManager_CreateAndRead covers the happy path and snapshot contents.
*/
func TestManager_CreateAndRead(t *testing.T) {
	manager, _, _ := newManager(time.Hour)
	ctx := context.Background()

	token, created, err := manager.Create(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.True(t, created.Persistent)

	snapshot, ok := manager.Read(ctx, token)
	require.True(t, ok)
	assert.Equal(t, "u-1", snapshot.UserID)
	assert.Equal(t, sec.RoleUser, snapshot.Role)
	assert.Equal(t, created.ExpiresAt, manager.CookieExpiry(snapshot))
}

/*
TestManager_Expiry ensures sessions stop resolving once their TTL elapses.
*/
func TestManager_Expiry(t *testing.T) {
	manager, _, clock := newManager(time.Hour)
	ctx := context.Background()

	token, _, err := manager.Create(ctx, alice)
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	_, ok := manager.Read(ctx, token)
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok = manager.Read(ctx, token)
	assert.False(t, ok)
}

/*
TestManager_BrowserSession checks the zero-TTL mode.
*/
func TestManager_BrowserSession(t *testing.T) {
	manager, _, clock := newManager(0)
	ctx := context.Background()

	token, snapshot, err := manager.Create(ctx, alice)
	require.NoError(t, err)
	assert.False(t, manager.Persistent())
	assert.True(t, manager.CookieExpiry(snapshot).IsZero())

	clock.Advance(23 * time.Hour)
	_, ok := manager.Read(ctx, token)
	assert.True(t, ok)

	clock.Advance(2 * time.Hour)
	_, ok = manager.Read(ctx, token)
	assert.False(t, ok)
}

/*
TestManager_Destroy covers single and bulk revocation.
*/
func TestManager_Destroy(t *testing.T) {
	manager, _, _ := newManager(time.Hour)
	ctx := context.Background()

	first, _, err := manager.Create(ctx, alice)
	require.NoError(t, err)
	second, _, err := manager.Create(ctx, alice)
	require.NoError(t, err)
	other, _, err := manager.Create(ctx, session.Principal{UserID: "u-2", Role: sec.RoleUser})
	require.NoError(t, err)

	manager.Destroy(ctx, first)
	_, ok := manager.Read(ctx, first)
	assert.False(t, ok)

	// Destroying twice or with an empty token is harmless.
	manager.Destroy(ctx, first)
	manager.Destroy(ctx, "")

	removed, err := manager.DestroyAllForUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok = manager.Read(ctx, second)
	assert.False(t, ok)
	_, ok = manager.Read(ctx, other)
	assert.True(t, ok)
}

/*
TestManager_UnknownToken verifies that garbage resolves to anonymous.
*/
func TestManager_UnknownToken(t *testing.T) {
	manager, _, _ := newManager(time.Hour)

	_, ok := manager.Read(context.Background(), "")
	assert.False(t, ok)
	_, ok = manager.Read(context.Background(), "deadbeef")
	assert.False(t, ok)
}

type failingStore struct{ session.Store }

func (failingStore) Load(context.Context, string) (session.Snapshot, error) {
	return session.Snapshot{}, errors.New("connection refused")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

/*
TestManager_StoreFailureIsAnonymous ensures backend errors never authenticate.
*/
func TestManager_StoreFailureIsAnonymous(t *testing.T) {
	manager := session.NewManager(failingStore{}, session.Options{TTL: time.Hour})

	_, ok := manager.Read(context.Background(), "token")
	assert.False(t, ok)

	assert.NotPanics(t, func() { manager.Destroy(context.Background(), "token") })
}

/*
TestMemoryStore_Load covers ErrNotFound for missing keys.
*/
func TestMemoryStore_Load(t *testing.T) {
	store := session.NewMemoryStore(nil)

	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
}
