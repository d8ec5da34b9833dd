// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/passgate/internal/platform/constants"
)

// slidingWindowScript prunes, counts and conditionally records one attempt.
//
// KEYS[1] = log key
// ARGV    = now_ms, window_ms, max, member
// Returns {allowed, remaining, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max    = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count < max then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  return {1, max - count - 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry = window
if oldest[2] then
  retry = tonumber(oldest[2]) + window - now
end
return {0, 0, retry}
`)

// RedisLimiter runs the sliding window in Redis so every instance shares it.
type RedisLimiter struct {
	client redis.Scripter
	policy Policy
	prefix string
	now    func() time.Time
}

// NewRedisLimiter creates a limiter whose logs live under the auth rate-limit prefix.
func NewRedisLimiter(client redis.Scripter, policy Policy) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		policy: policy,
		prefix: constants.RedisPrefixRateLimit,
		now:    time.Now,
	}
}

// Allow implements [Limiter].
func (limiter *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	nowMillis := limiter.now().UnixMilli()

	result, err := slidingWindowScript.Run(ctx, limiter.client,
		[]string{limiter.prefix + key},
		nowMillis,
		limiter.policy.Window.Milliseconds(),
		limiter.policy.Max,
		fmt.Sprintf("%d-%s", nowMillis, uuid.NewString()),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis script failed: %w", err)
	}
	if len(result) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script reply %v", result)
	}

	return Decision{
		Allowed:    result[0] == 1,
		Remaining:  int(result[1]),
		RetryAfter: time.Duration(result[2]) * time.Millisecond,
	}, nil
}
