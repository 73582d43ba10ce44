package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/ports/adapter"
)

var (
	_ adapter.Locker           = (*Locker)(nil)
	_ adapter.RateLimiter      = (*RateLimiter)(nil)
	_ adapter.IdempotencyStore = (*IdempotencyStore)(nil)
)

type expiring struct {
	value   string
	count   int
	expires time.Time
}

// keyspace is a tiny TTL map shared by the process-local adapters.
type keyspace struct {
	mu   sync.Mutex
	keys map[string]*expiring
	now  func() time.Time
}

func newKeyspace() *keyspace {
	return &keyspace{keys: map[string]*expiring{}, now: time.Now}
}

// get returns the live entry for key; the caller holds mu.
func (k *keyspace) get(key string) *expiring {
	e, ok := k.keys[key]
	if !ok {
		return nil
	}
	if !e.expires.IsZero() && !k.now().Before(e.expires) {
		delete(k.keys, key)
		return nil
	}
	return e
}

// Locker mirrors the Redis SETNX lock: a held key fails fast after a few
// short retries.
type Locker struct {
	ks      *keyspace
	retries int
	wait    time.Duration
}

func NewLocker() *Locker {
	return &Locker{ks: newKeyspace(), retries: 5, wait: 50 * time.Millisecond}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for i := 0; i < l.retries; i++ {
		l.ks.mu.Lock()
		if l.ks.get(key) == nil {
			l.ks.keys[key] = &expiring{value: token, expires: l.ks.now().Add(ttl)}
			l.ks.mu.Unlock()
			return token, nil
		}
		l.ks.mu.Unlock()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.wait):
		}
	}
	return "", domain.ErrLocked
}

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	l.ks.mu.Lock()
	defer l.ks.mu.Unlock()
	if e := l.ks.get(key); e != nil && e.value == token {
		delete(l.ks.keys, key)
	}
	return nil
}

type RateLimiter struct{ ks *keyspace }

func NewRateLimiter() *RateLimiter { return &RateLimiter{ks: newKeyspace()} }

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.ks.mu.Lock()
	defer r.ks.mu.Unlock()
	e := r.ks.get(key)
	if e == nil {
		e = &expiring{expires: r.ks.now().Add(window)}
		r.ks.keys[key] = e
	}
	e.count++
	return e.count <= limit, nil
}

type IdempotencyStore struct{ ks *keyspace }

func NewIdempotencyStore() *IdempotencyStore { return &IdempotencyStore{ks: newKeyspace()} }

func (s *IdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.ks.mu.Lock()
	defer s.ks.mu.Unlock()
	if s.ks.get(key) != nil {
		return false, nil
	}
	e := &expiring{value: "1"}
	if ttl > 0 {
		e.expires = s.ks.now().Add(ttl)
	}
	s.ks.keys[key] = e
	return true, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	s.ks.mu.Lock()
	defer s.ks.mu.Unlock()
	delete(s.ks.keys, key)
	return nil
}
