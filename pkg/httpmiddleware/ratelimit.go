package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/jx"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max requests per Window for a single key. Zero or less disables limiting.
	Max    int
	Window time.Duration
	// KeyFunc extracts the limiting key, the client IP by default.
	KeyFunc func(*http.Request) string
}

// counter approximates a sliding window from two fixed windows: the
// previous window's count is weighted by its overlap with the sliding one.
type counter struct {
	start time.Time
	curr  int
	prev  int
}

func (c *counter) advance(now time.Time, window time.Duration) {
	switch elapsed := now.Sub(c.start); {
	case elapsed >= 2*window:
		c.prev, c.curr = 0, 0
		c.start = now.Truncate(window)
	case elapsed >= window:
		c.prev, c.curr = c.curr, 0
		c.start = c.start.Add(window)
	}
}

func (c *counter) estimate(now time.Time, window time.Duration) float64 {
	overlap := 1 - float64(now.Sub(c.start))/float64(window)
	return float64(c.prev)*max(overlap, 0) + float64(c.curr)
}

// Limiter tracks request counts per key.
type Limiter struct {
	max    int
	window time.Duration

	mu       sync.Mutex
	counters map[string]*counter
}

// NewLimiter creates a Limiter allowing limit requests per window and key.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		max:      limit,
		window:   window,
		counters: make(map[string]*counter),
	}
}

// Allow records a request for key at now. It reports whether the request is
// allowed, how many requests remain and when the current window ends.
func (l *Limiter) Allow(key string, now time.Time) (ok bool, remaining int, reset time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, found := l.counters[key]
	if !found {
		c = &counter{start: now.Truncate(l.window)}
		l.counters[key] = c
	}
	c.advance(now, l.window)
	reset = c.start.Add(l.window)

	used := c.estimate(now, l.window)
	if used >= float64(l.max) {
		return false, 0, reset
	}
	c.curr++
	return true, max(int(float64(l.max)-used-1), 0), reset
}

// Evict drops counters that have not seen a request for two windows.
func (l *Limiter) Evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, c := range l.counters {
		if now.Sub(c.start) >= 2*l.window {
			delete(l.counters, key)
		}
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

// RunEviction calls Evict every two windows until ctx is done.
func (l *Limiter) RunEviction(ctx context.Context) {
	ticker := time.NewTicker(2 * l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Evict(now)
		}
	}
}

// RateLimit rejects requests over the limit with 429 and a JSON error body.
// Every response carries the X-RateLimit-* headers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return rateLimit(cfg, NewLimiter(cfg.Max, cfg.Window))
}

// RateLimitWithCleanup is RateLimit with background eviction of idle keys,
// stopped when ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := NewLimiter(cfg.Max, cfg.Window)
	if cfg.Max > 0 && cfg.Window > 0 {
		go l.RunEviction(ctx)
	}
	return rateLimit(cfg, l)
}

func rateLimit(cfg RateLimitConfig, l *Limiter) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	limit := strconv.Itoa(cfg.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			ok, remaining, reset := l.Allow(keyFunc(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retry := math.Ceil(max(reset.Sub(now), 0).Seconds())
			h.Set("Retry-After", strconv.Itoa(int(retry)))
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)

			var e jx.Encoder
			e.Obj(func(e *jx.Encoder) {
				e.Field("code", func(e *jx.Encoder) { e.Int(http.StatusTooManyRequests) })
				e.Field("message", func(e *jx.Encoder) { e.Str("rate limit exceeded") })
			})
			_, _ = w.Write(e.Bytes())
		})
	}
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, then
// the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
