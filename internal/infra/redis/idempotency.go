package redis

import (
	"context"
	"time"

	"trading-academy/internal/domain/ports/adapter"
)

var _ adapter.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore remembers processed keys across instances.
type IdempotencyStore struct {
	client *Client
	prefix string
}

func NewIdempotencyStore(client *Client) *IdempotencyStore {
	return &IdempotencyStore{client: client, prefix: "idem:"}
}

// Claim returns false when the key was already claimed and has not expired.
func (s *IdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl)
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key)
}
