package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"trading-academy/internal/domain/ports/adapter"
)

var _ adapter.RateLimiter = (*RateLimiter)(nil)

// fixedWindow increments the window counter and arms its expiry in one round
// trip. A counter left without a TTL gets one on the next hit.
var fixedWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 or redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// RateLimiter counts hits per key in fixed windows.
type RateLimiter struct {
	client *Client
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	n, err := r.client.RunScript(ctx, fixedWindow, []string{key}, window.Milliseconds())
	if err != nil {
		return false, err
	}
	return n <= int64(limit), nil
}

// ConfirmKey scopes confirmation attempts to one caller ("user:<id>" or "ip:<addr>").
func ConfirmKey(caller string) string {
	return "rate_limit:confirm:" + caller
}
