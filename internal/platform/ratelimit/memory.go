// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps a log of accepted attempt times per key.
type MemoryLimiter struct {
	policy Policy
	now    func() time.Time

	mu   sync.Mutex
	logs map[string][]time.Time
}

// MemoryOption customizes a [MemoryLimiter].
type MemoryOption func(*MemoryLimiter)

// WithClock replaces time.Now. Used by tests to drive the window.
func WithClock(now func() time.Time) MemoryOption {
	return func(limiter *MemoryLimiter) { limiter.now = now }
}

// NewMemoryLimiter creates an in-process limiter for policy.
func NewMemoryLimiter(policy Policy, options ...MemoryOption) *MemoryLimiter {
	limiter := &MemoryLimiter{
		policy: policy,
		now:    time.Now,
		logs:   make(map[string][]time.Time),
	}
	for _, option := range options {
		option(limiter)
	}
	return limiter
}

// Allow implements [Limiter]. It never returns an error.
func (limiter *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := limiter.now()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	log := limiter.prune(key, now)

	if len(log) >= limiter.policy.Max {
		return Decision{
			Allowed:    false,
			RetryAfter: log[0].Add(limiter.policy.Window).Sub(now),
		}, nil
	}

	log = append(log, now)
	limiter.logs[key] = log

	return Decision{
		Allowed:   true,
		Remaining: limiter.policy.Max - len(log),
	}, nil
}

// prune drops timestamps that fell out of the window ending at now.
// Callers must hold mu.
func (limiter *MemoryLimiter) prune(key string, now time.Time) []time.Time {
	log := limiter.logs[key]
	cutoff := now.Add(-limiter.policy.Window)

	drop := 0
	for drop < len(log) && !log[drop].After(cutoff) {
		drop++
	}
	if drop == len(log) {
		delete(limiter.logs, key)
		return nil
	}
	if drop > 0 {
		log = append(log[:0:0], log[drop:]...)
		limiter.logs[key] = log
	}
	return log
}

// Run evicts idle keys every interval until ctx is cancelled.
func (limiter *MemoryLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			limiter.sweep()
		case <-ctx.Done():
			return
		}
	}
}

// sweep removes every key whose log is entirely outside the window.
func (limiter *MemoryLimiter) sweep() {
	now := limiter.now()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	for key := range limiter.logs {
		limiter.prune(key, now)
	}
}

// Len returns the number of tracked keys.
func (limiter *MemoryLimiter) Len() int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	return len(limiter.logs)
}
