package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, remoteAddr string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(okHandler())

	for i := range 5 {
		w := serve(h, "192.168.1.1:12345", nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		require.Equal(t, http.StatusOK, serve(h, "10.0.0.1:9999", nil).Code)
	}

	w := serve(h, "10.0.0.1:9999", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":429,"message":"rate limit exceeded"}`, w.Body.String())
}

func TestRateLimit_KeysAreIndependent(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.2:1234", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "10.0.0.1:5678", nil).Code)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-Cart-Session")
		},
	})(okHandler())

	a := map[string]string{"X-Cart-Session": "a"}
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1", a).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "10.0.0.1:1", a).Code)
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1", map[string]string{"X-Cart-Session": "b"}).Code)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())
	xff := map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}

	assert.Equal(t, http.StatusOK, serve(h, "192.168.1.1:4444", xff).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "192.168.1.2:5555", xff).Code)
}

func TestRateLimit_WindowSlides(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, _, ok := l.take("k")
	require.True(t, ok)
	_, _, ok = l.take("k")
	require.True(t, ok)
	_, _, ok = l.take("k")
	require.False(t, ok)

	// Halfway into the next window the previous count weighs 1.
	now = now.Add(90 * time.Second)
	_, _, ok = l.take("k")
	assert.True(t, ok)
	_, _, ok = l.take("k")
	assert.False(t, ok)

	// Two windows later everything is forgotten.
	now = now.Add(3 * time.Minute)
	_, _, ok = l.take("k")
	assert.True(t, ok)
}

func TestRateLimit_Evict(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.take("k")
	require.Len(t, l.windows, 1)

	now = now.Add(5 * time.Minute)
	l.evict()
	assert.Empty(t, l.windows)
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(RateLimitConfig{})(okHandler())
	for range 10 {
		w := serve(h, "10.0.0.1:1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimitWithCleanup_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := RateLimitWithCleanup(ctx, RateLimitConfig{Max: 1, Window: time.Millisecond})(okHandler())
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1", nil).Code)
	cancel()
}
