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
)

// RateLimitConfig configures the sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window. Zero or negative disables limiting.
	Max    int
	Window time.Duration
	// KeyFunc selects the bucket for a request. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// window holds counts for the current fixed window and the one before it.
// The effective count interpolates between them.
type window struct {
	start time.Time
	curr  float64
	prev  float64
}

type limiter struct {
	max     int
	size    time.Duration
	keyFunc func(*http.Request) string
	now     func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func newLimiter(cfg RateLimitConfig) *limiter {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	return &limiter{
		max:     cfg.Max,
		size:    cfg.Window,
		keyFunc: keyFunc,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// take consumes one request for key if allowed.
func (l *limiter) take(key string) (remaining int, reset time.Time, ok bool) {
	now := l.now()
	start := now.Truncate(l.size)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, found := l.windows[key]
	switch {
	case !found:
		w = &window{start: start}
		l.windows[key] = w
	case start.Sub(w.start) >= 2*l.size:
		*w = window{start: start}
	case start.After(w.start):
		*w = window{start: start, prev: w.curr}
	}

	weight := 1 - float64(now.Sub(w.start))/float64(l.size)
	count := w.prev*weight + w.curr
	reset = w.start.Add(l.size)
	if count >= float64(l.max) {
		return 0, reset, false
	}
	w.curr++
	return max(l.max-int(math.Ceil(count+1)), 0), reset, true
}

// evict drops buckets idle for two windows.
func (l *limiter) evict() {
	cutoff := l.now().Add(-2 * l.size)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if w.start.Before(cutoff) {
			delete(l.windows, key)
		}
	}
}

func (l *limiter) middleware() Middleware {
	return func(next http.Handler) http.Handler {
		if l.max <= 0 || l.size <= 0 {
			return next
		}
		limit := strconv.Itoa(l.max)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, reset, ok := l.take(l.keyFunc(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !ok {
				retry := max(reset.Sub(l.now()), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit limits requests per key. Buckets are never evicted; long-running
// servers should use RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).middleware()
}

// RateLimitWithCleanup is RateLimit with a goroutine that evicts idle buckets
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	if l.size > 0 {
		go func() {
			ticker := time.NewTicker(2 * l.size)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					l.evict()
				}
			}
		}()
	}
	return l.middleware()
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the remote
// address host, in that order.
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
