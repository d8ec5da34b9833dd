// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit implements the sliding-window limiter that guards the
credential endpoints (register, login, forgot and reset password).

Each key (normally the client IP) may make at most Policy.Max accepted
attempts within any Policy.Window. Rejected attempts are not recorded, so a
client that keeps hammering the endpoint regains access exactly one window
after its oldest accepted attempt.

Two implementations share the [Limiter] contract:

  - [MemoryLimiter]: a per-process log of timestamps, for single instances and tests.
  - [RedisLimiter]: the same algorithm run atomically in Redis, shared by every instance.
*/
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy is the window configuration of a limiter.
type Policy struct {
	Window time.Duration
	Max    int
}

// Validate rejects policies that would block or admit everything.
func (p Policy) Validate() error {
	if p.Window <= 0 {
		return errors.New("ratelimit: window must be positive")
	}
	if p.Max < 1 {
		return errors.New("ratelimit: max must be at least 1")
	}
	return nil
}

// Message is the fixed text shown to rejected clients, e.g.
// "Too many auth requests, try again in 10 minutes".
func (p Policy) Message() string {
	return "Too many auth requests, try again in " + describe(p.Window)
}

func describe(window time.Duration) string {
	count, unit := int64(window/time.Second), "second"
	switch {
	case window >= time.Hour && window%time.Hour == 0:
		count, unit = int64(window/time.Hour), "hour"
	case window >= time.Minute && window%time.Minute == 0:
		count, unit = int64(window/time.Minute), "minute"
	}
	if count == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", count, unit)
}

// Decision is the outcome of a single [Limiter.Allow] call.
type Decision struct {
	// Allowed reports whether the attempt was admitted (and recorded).
	Allowed bool

	// Remaining is the number of further attempts admitted in the current window.
	Remaining int

	// RetryAfter is how long until the next attempt would be admitted. Zero when Allowed.
	RetryAfter time.Duration
}

// Limiter admits or rejects attempts per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
