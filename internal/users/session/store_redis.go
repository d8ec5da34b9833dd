// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/passgate/internal/platform/constants"
)

// RedisStore implements [Store] on Redis.
//
// Layout:
//
//	auth:session:<hash>        STRING  JSON snapshot, expires with the session
//	auth:user_sessions:<id>    SET     hashes of the user's sessions
//
// The index may hold hashes of sessions that already expired. DeleteByUser
// tolerates that and Save refreshes the index TTL.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a [RedisStore].
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(hash string) string { return constants.RedisPrefixSession + hash }
func userIndexKey(userID string) string { return constants.RedisPrefixUserSessions + userID }

// Save implements [Store].
func (store *RedisStore) Save(ctx context.Context, key string, snapshot Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	_, err = store.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(key), payload, ttl)
		pipe.SAdd(ctx, userIndexKey(snapshot.UserID), key)
		pipe.Expire(ctx, userIndexKey(snapshot.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Load implements [Store].
func (store *RedisStore) Load(ctx context.Context, key string) (Snapshot, error) {
	payload, err := store.client.Get(ctx, sessionKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("session: load: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("session: decode: %w", err)
	}
	return snapshot, nil
}

// Delete implements [Store].
func (store *RedisStore) Delete(ctx context.Context, key string) error {
	snapshot, err := store.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = store.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(key))
		pipe.SRem(ctx, userIndexKey(snapshot.UserID), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// DeleteByUser implements [Store].
func (store *RedisStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	hashes, err := store.client.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("session: list user sessions: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, hash := range hashes {
		keys = append(keys, sessionKey(hash))
	}

	var removed *redis.IntCmd
	_, err = store.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			removed = pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, userIndexKey(userID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("session: delete user sessions: %w", err)
	}

	if removed == nil {
		return 0, nil
	}
	return int(removed.Val()), nil
}
