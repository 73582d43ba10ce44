package postgres

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
	"trading-academy/internal/infra/metrics"
	red "trading-academy/internal/infra/redis"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

// userRepoCacheDecorator keeps user rows in Redis. Entitlement resolution
// reads the user on every gated request, so lookups by id are the hot path.
type userRepoCacheDecorator struct {
	inner repository.UserRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache red.RedisClient, ttl time.Duration) repository.UserRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &userRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func userIDKey(id string) string       { return "user:id:" + id }
func userEmailKey(email string) string { return "user:email:" + strings.ToLower(strings.TrimSpace(email)) }

// Save invalidates every key the user may be cached under, including the
// previous email when it changed.
func (d *userRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	keys := []string{userIDKey(u.ID), userEmailKey(u.Email)}
	if val, err := d.cache.Get(ctx, userIDKey(u.ID)); err == nil {
		var old model.User
		if json.Unmarshal([]byte(val), &old) == nil && old.Email != "" {
			keys = append(keys, userEmailKey(old.Email))
		}
	}
	_ = d.cache.Del(ctx, keys...)
	return d.inner.Save(ctx, tx, u)
}

func (d *userRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if u, ok := d.get(ctx, userIDKey(id)); ok {
		return u, nil
	}
	u, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.put(ctx, u)
	return u, nil
}

func (d *userRepoCacheDecorator) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	if u, ok := d.get(ctx, userEmailKey(email)); ok {
		return u, nil
	}
	u, err := d.inner.FindByEmail(ctx, tx, email)
	if err != nil {
		return nil, err
	}
	d.put(ctx, u)
	return u, nil
}

func (d *userRepoCacheDecorator) get(ctx context.Context, key string) (*model.User, bool) {
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var user model.User
		if json.Unmarshal([]byte(val), &user) == nil {
			metrics.IncCacheRequest("user", "hit")
			return &user, true
		}
	} else if !red.IsNil(err) {
		metrics.IncCacheRequest("user", "error")
		return nil, false
	}
	metrics.IncCacheRequest("user", "miss")
	return nil, false
}

// put warms both keys so a lookup by either finds it next time.
func (d *userRepoCacheDecorator) put(ctx context.Context, u *model.User) {
	if u == nil {
		return
	}
	bytes, err := json.Marshal(u)
	if err != nil {
		return
	}
	_ = d.cache.Set(ctx, userIDKey(u.ID), bytes, d.ttl)
	_ = d.cache.Set(ctx, userEmailKey(u.Email), bytes, d.ttl)
}
