package adapter

import (
	"context"
	"time"
)

// Locker is a best-effort mutual exclusion primitive keyed by string.
// TryLock returns domain.ErrLocked when the key stays held.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// RateLimiter is a fixed-window counter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// IdempotencyStore remembers keys that were already processed.
// Claim reports false when key was claimed before and not released.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
