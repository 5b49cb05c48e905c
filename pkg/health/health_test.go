package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func get(t *testing.T, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	return w
}

func runN(ctx context.Context, p *probe, n int) {
	for range n {
		p.run(ctx)
	}
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passing)
	h.AddLivenessCheck("storage", time.Second, failing("connection refused"))

	w := get(t, h.LiveEndpoint)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	runN(context.Background(), h.live[1], FailureThreshold)

	w = get(t, h.LiveEndpoint)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"storage":"connection refused"}}`, w.Body.String())
}

func TestProbe_Thresholds(t *testing.T) {
	down := true
	p := newProbe("redis", time.Second, func(context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	})
	ctx := context.Background()

	runN(ctx, p, FailureThreshold-1)
	assert.Empty(t, p.failure(), "below threshold")

	p.run(ctx)
	assert.Equal(t, "down", p.failure())

	down = false
	runN(ctx, p, SuccessThreshold)
	assert.Empty(t, p.failure())
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passing)
	h.AddReadinessCheck("redis", time.Second, failing("i/o timeout"))

	w := get(t, h.ReadyEndpoint)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())

	h.SetReady(true)
	assert.True(t, h.IsReady())
	assert.Equal(t, http.StatusOK, get(t, h.ReadyEndpoint).Code)

	runN(context.Background(), h.readyz[1], FailureThreshold)
	assert.False(t, h.IsReady())
	w = get(t, h.ReadyEndpoint)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"redis":"i/o timeout"}}`, w.Body.String())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck(pingerFunc(func(context.Context) error { return nil }))
	require.NoError(t, ok(context.Background()))

	bad := PingCheck(pingerFunc(func(context.Context) error { return errors.New("refused") }))
	assert.EqualError(t, bad(context.Background()), "ping: refused")
}

func TestProbe_Timeout(t *testing.T) {
	p := newProbe("slow", 10*time.Millisecond, PingCheck(pingerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))
	runN(context.Background(), p, FailureThreshold)
	assert.Contains(t, p.failure(), "deadline exceeded")
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.ErrorContains(t, GoroutineCountCheck(0)(context.Background()), "exceeds threshold")
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddLivenessCheck("a", time.Second, failing("x"))
	h.AddReadinessCheck("b", time.Second, passing)
	h.SetReady(true)

	h.Start(context.Background(), 5*time.Millisecond)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
		return w.Code == http.StatusServiceUnavailable
	}, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
}
