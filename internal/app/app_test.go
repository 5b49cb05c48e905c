package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if cfg.Session.Cookie == "" {
		cfg.Session.Cookie = "goldwin_session"
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Minute
	}

	srv, err := NewServer(ctx, zaptest.NewLogger(t), metricnoop.NewMeterProvider(), tracenoop.NewTracerProvider(), &cfg)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	srv.Health.SetReady(true)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, ts *httptest.Server, method, path, session, body string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, ts.URL+path, r)
	require.NoError(t, err)
	if session != "" {
		req.Header.Set("X-Cart-Session", session)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, validConfig())

	resp, body := call(t, ts, http.MethodGet, "/livez", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, _ = call(t, ts, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RequestIDEchoed(t *testing.T) {
	ts := newTestServer(t, validConfig())

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL+"/api/product", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "custom-request-id-12345")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "custom-request-id-12345", resp.Header.Get("X-Request-ID"))
}

func TestServer_CORSPreflight(t *testing.T) {
	ts := newTestServer(t, validConfig())

	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, ts.URL+"/api/cart/items", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-Cart-Session")
}

func TestServer_NotFound(t *testing.T) {
	ts := newTestServer(t, validConfig())

	for _, target := range []string{"/api/nope", "/nope", "/api/cart/items/1/extra"} {
		resp, body := call(t, ts, http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, target)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"), target)
		assert.Contains(t, body, `"code":404`, target)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, validConfig())

	resp, body := call(t, ts, http.MethodPatch, "/api/cart", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, `"code":405`)

	resp, body = call(t, ts, http.MethodPost, "/livez", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Contains(t, body, `"code":405`)
}

func TestServer_RateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.Max = 2
	ts := newTestServer(t, cfg)

	for range 2 {
		resp, _ := call(t, ts, http.MethodGet, "/api/category", "", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := call(t, ts, http.MethodGet, "/api/category", "", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "rate limit exceeded")
}

func TestServer_CartFlow(t *testing.T) {
	mr := miniredis.RunT(t)

	for _, tt := range []struct {
		name   string
		mutate func(c *Config)
	}{
		{"Memory", func(*Config) {}},
		{"Redis", func(c *Config) {
			c.Storage = StorageRedis
			c.Redis.URL = "redis://" + mr.Addr()
			c.Redis.TTL = time.Hour
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			ts := newTestServer(t, cfg)

			resp, body := call(t, ts, http.MethodPost, "/api/cart/items", "flow", `{"productId":"2","quantity":1}`)
			require.Equal(t, http.StatusOK, resp.StatusCode, body)
			assert.Empty(t, resp.Header.Get("X-Cart-Durable"))
			assert.Contains(t, body, `"itemCount":1`)
			assert.Contains(t, body, `"total":"899.99"`)

			_, body = call(t, ts, http.MethodPost, "/api/cart/items", "flow", `{"productId":"2","quantity":2}`)
			assert.Contains(t, body, `"itemCount":3`)

			_, body = call(t, ts, http.MethodGet, "/api/cart/summary", "flow", "")
			assert.JSONEq(t, `{
				"subtotal": "2699.97", "shipping": "0.00", "tax": "216.00", "total": "2915.97",
				"freeShipping": true, "freeShippingRemaining": "0.00"
			}`, body)

			_, body = call(t, ts, http.MethodDelete, "/api/cart", "flow", "")
			assert.Contains(t, body, `"items":[]`)
		})
	}

	assert.True(t, mr.Exists("goldwin-cart:flow"))
	assert.True(t, mr.TTL("goldwin-cart:flow") > 0)
}

func TestServer_RedisDownIsFailSoft(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := validConfig()
	cfg.Storage = StorageRedis
	cfg.Redis.URL = "redis://" + mr.Addr()
	ts := newTestServer(t, cfg)

	mr.Close()

	resp, body := call(t, ts, http.MethodPost, "/api/cart/items", "down", `{"productId":"5"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "false", resp.Header.Get("X-Cart-Durable"))
	assert.Contains(t, body, `"itemCount":1`)
}

func TestNewServer_InvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = StorageRedis
	cfg.Redis.URL = "not a url"

	_, err := NewServer(context.Background(), zaptest.NewLogger(t), metricnoop.NewMeterProvider(), tracenoop.NewTracerProvider(), &cfg)
	require.Error(t, err)
}
