package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"trading-academy/internal/config"
	"trading-academy/internal/domain"
)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	for _, url := range []string{mr.Addr(), "redis://" + mr.Addr() + "/0"} {
		c, err := NewClient(ctx, &config.RedisConfig{URL: url})
		if err != nil {
			t.Fatalf("NewClient(%q): %v", url, err)
		}
		_ = c.Close()
	}

	if _, err := NewClient(ctx, &config.RedisConfig{URL: "127.0.0.1:1"}); err == nil {
		t.Fatal("expected a ping error for an unreachable server")
	}
}

func TestRedisLocker(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	l := NewLocker(c)
	l.wait = time.Millisecond

	token, err := l.TryLock(ctx, "lock:payment_intent:pi_1", time.Minute)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	if _, err := l.TryLock(ctx, "lock:payment_intent:pi_1", time.Minute); !errors.Is(err, domain.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	// a foreign token must not release the lock
	if err := l.Unlock(ctx, "lock:payment_intent:pi_1", "someone-else"); err != nil {
		t.Fatalf("unlock with foreign token: %v", err)
	}
	if !mr.Exists("lock:payment_intent:pi_1") {
		t.Fatal("lock released by a foreign token")
	}

	if err := l.Unlock(ctx, "lock:payment_intent:pi_1", token); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := l.TryLock(ctx, "lock:payment_intent:pi_1", time.Minute); err != nil {
		t.Fatalf("relock after unlock: %v", err)
	}
}

func TestRedisLocker_Expires(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	l := NewLocker(c)
	l.wait = time.Millisecond

	if _, err := l.TryLock(ctx, "k", time.Second); err != nil {
		t.Fatalf("lock: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, err := l.TryLock(ctx, "k", time.Second); err != nil {
		t.Fatalf("expected the expired lock to be free, got %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	rl := NewRateLimiter(c)
	key := ConfirmKey("u1")

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("call %d: expected allowed, got %v, %v", i, ok, err)
		}
	}
	if ok, _ := rl.Allow(ctx, key, 3, time.Minute); ok {
		t.Fatal("expected the 4th call to be limited")
	}

	mr.FastForward(time.Minute + time.Second)
	if ok, _ := rl.Allow(ctx, key, 3, time.Minute); !ok {
		t.Fatal("expected a fresh window")
	}
}

func TestRateLimiter_RearmsMissingTTL(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	key := ConfirmKey("ip:10.0.0.1")

	// counter left behind without an expiry
	if err := mr.Set(key, "5"); err != nil {
		t.Fatal(err)
	}
	ok, err := NewRateLimiter(c).Allow(ctx, key, 3, time.Minute)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatal("expected the over-limit counter to deny")
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected the window to be re-armed, ttl = %v", ttl)
	}
}

func TestRateLimiter_ZeroLimitAllows(t *testing.T) {
	c, _ := setupTestRedis(t)
	ok, err := NewRateLimiter(c).Allow(context.Background(), "k", 0, time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected a disabled limit to allow, got %v, %v", ok, err)
	}
}

func TestOptions(t *testing.T) {
	opts, err := options(&config.RedisConfig{
		URL:      "redis://:urlpass@cache:6380/2",
		Password: "ignored",
		DB:       5,
		PoolSize: 7,
	})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "cache:6380" || opts.Password != "urlpass" || opts.DB != 2 || opts.PoolSize != 7 {
		t.Fatalf("unexpected options %+v", opts)
	}

	opts, err = options(&config.RedisConfig{URL: "cache:6379", Password: "p", DB: 1})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "cache:6379" || opts.Password != "p" || opts.DB != 1 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestIdempotencyStore(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	s := NewIdempotencyStore(c)

	ok, err := s.Claim(ctx, "webhook:payment_intent:pi_1", time.Hour)
	if err != nil || !ok {
		t.Fatalf("first claim: %v, %v", ok, err)
	}
	if ok, _ := s.Claim(ctx, "webhook:payment_intent:pi_1", time.Hour); ok {
		t.Fatal("expected a duplicate claim to be refused")
	}

	if err := s.Release(ctx, "webhook:payment_intent:pi_1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := s.Claim(ctx, "webhook:payment_intent:pi_1", time.Hour); !ok {
		t.Fatal("expected a claim after release")
	}

	mr.FastForward(2 * time.Hour)
	if ok, _ := s.Claim(ctx, "webhook:payment_intent:pi_1", time.Hour); !ok {
		t.Fatal("expected the claim to expire")
	}
}
