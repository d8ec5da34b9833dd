// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/taibuivan/passgate/internal/platform/sec"
)

// MemoryStore implements [Store] over a mutex-guarded map.
//
// It follows the same version and token rules as [PostgresStore] and backs
// `serve --memory` and the service tests.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// Create implements [Store].
func (store *MemoryStore) Create(_ context.Context, user *User) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, taken := store.byEmail[user.EmailFolded]; taken {
		return ErrDuplicateEmail
	}

	now := store.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Version == 0 {
		user.Version = 1
	}

	stored := cloneUser(user)
	store.byID[user.ID] = stored
	store.byEmail[user.EmailFolded] = user.ID
	return nil
}

// FindByEmail implements [Store].
func (store *MemoryStore) FindByEmail(_ context.Context, emailFolded string) (*User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	id, ok := store.byEmail[emailFolded]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(store.byID[id]), nil
}

// FindByID implements [Store].
func (store *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(user), nil
}

// List implements [Store].
func (store *MemoryStore) List(_ context.Context, limit, offset int) ([]User, int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	users := make([]User, 0, len(store.byID))
	for _, user := range store.byID {
		users = append(users, *cloneUser(user))
	}
	slices.SortFunc(users, func(a, b User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	total := len(users)
	if offset >= total {
		return []User{}, total, nil
	}
	users = users[max(offset, 0):]
	if limit >= 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, total, nil
}

// SetRole implements [Store].
func (store *MemoryStore) SetRole(_ context.Context, id string, role sec.Role) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.byID[id]
	if !ok {
		return ErrNotFound
	}
	user.Role = role
	store.touch(user)
	return nil
}

// SetResetToken implements [Store].
func (store *MemoryStore) SetResetToken(_ context.Context, id string, expectedVersion int64, tokenHash string, expiry time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.byID[id]
	if !ok || user.Version != expectedVersion {
		return ErrStaleWrite
	}

	user.ResetToken = &tokenHash
	expiryUTC := expiry.UTC()
	user.ResetTokenExpiry = &expiryUTC
	store.touch(user)
	return nil
}

// ConsumeResetToken implements [Store].
func (store *MemoryStore) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time, passwordHash, salt string) (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, user := range store.byID {
		if user.ResetToken == nil || *user.ResetToken != tokenHash {
			continue
		}
		if user.ResetTokenExpiry == nil || !now.Before(*user.ResetTokenExpiry) {
			return "", ErrTokenNotFound
		}

		user.PasswordHash = passwordHash
		user.Salt = salt
		user.ResetToken = nil
		user.ResetTokenExpiry = nil
		store.touch(user)
		return user.ID, nil
	}
	return "", ErrTokenNotFound
}

// UpdateCredentials implements [Store].
func (store *MemoryStore) UpdateCredentials(_ context.Context, id string, expectedVersion int64, passwordHash, salt string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.byID[id]
	if !ok || user.Version != expectedVersion {
		return ErrStaleWrite
	}

	user.PasswordHash = passwordHash
	user.Salt = salt
	user.ResetToken = nil
	user.ResetTokenExpiry = nil
	store.touch(user)
	return nil
}

// touch bumps the version and update time. Callers must hold mu.
func (store *MemoryStore) touch(user *User) {
	user.Version++
	user.UpdatedAt = store.now().UTC()
}

// cloneUser deep-copies the pointer fields so callers never alias stored state.
func cloneUser(user *User) *User {
	clone := *user
	if user.ResetToken != nil {
		token := *user.ResetToken
		clone.ResetToken = &token
	}
	if user.ResetTokenExpiry != nil {
		expiry := *user.ResetTokenExpiry
		clone.ResetTokenExpiry = &expiry
	}
	return &clone
}
