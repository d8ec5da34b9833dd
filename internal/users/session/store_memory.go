// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	snapshot  Snapshot
	expiresAt time.Time
}

// MemoryStore implements [Store] in process memory. Expired entries are
// dropped lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty [MemoryStore]. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), now: now}
}

// Save implements [Store].
func (store *MemoryStore) Save(_ context.Context, key string, snapshot Snapshot, ttl time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.entries[key] = memoryEntry{snapshot: snapshot, expiresAt: store.now().Add(ttl)}
	return nil
}

// Load implements [Store].
func (store *MemoryStore) Load(_ context.Context, key string) (Snapshot, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, ok := store.entries[key]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	if !store.now().Before(entry.expiresAt) {
		delete(store.entries, key)
		return Snapshot{}, ErrNotFound
	}
	return entry.snapshot, nil
}

// Delete implements [Store].
func (store *MemoryStore) Delete(_ context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.entries, key)
	return nil
}

// DeleteByUser implements [Store].
func (store *MemoryStore) DeleteByUser(_ context.Context, userID string) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := store.now()
	removed := 0
	for key, entry := range store.entries {
		if entry.snapshot.UserID != userID {
			continue
		}
		if now.Before(entry.expiresAt) {
			removed++
		}
		delete(store.entries, key)
	}
	return removed, nil
}
