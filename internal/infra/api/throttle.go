package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle is a per-client token bucket for unauthenticated ingress routes.
type Throttle struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewThrottle(perMinute, burst int) *Throttle {
	if perMinute <= 0 {
		perMinute = 600
	}
	if burst <= 0 {
		burst = perMinute / 10
		if burst < 1 {
			burst = 1
		}
	}
	return &Throttle{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		idle:     3 * time.Minute,
		now:      time.Now,
	}
}

func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	v, ok := t.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[key] = v
	}
	v.seen = now
	if len(t.visitors) > 1024 {
		t.evictLocked(now)
	}
	return v.lim.AllowN(now, 1)
}

func (t *Throttle) evictLocked(now time.Time) {
	for k, v := range t.visitors {
		if now.Sub(v.seen) > t.idle {
			delete(t.visitors, k)
		}
	}
}

func (t *Throttle) Middleware() Middleware { return t.MiddlewareExcept(nil) }

// MiddlewareExcept throttles every request for which skip is nil or false.
func (t *Throttle) MiddlewareExcept(skip func(*http.Request) bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip != nil && skip(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !t.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", "1")
				WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
