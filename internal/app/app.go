// Package app wires the storefront API server.
package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/goldwin-storefront/internal/cartevents"
	"github.com/xenking/goldwin-storefront/internal/catalog"
	"github.com/xenking/goldwin-storefront/internal/domain/cart"
	"github.com/xenking/goldwin-storefront/internal/domain/product"
	"github.com/xenking/goldwin-storefront/internal/handler"
	"github.com/xenking/goldwin-storefront/internal/storage/memory"
	"github.com/xenking/goldwin-storefront/internal/storage/postgres"
	"github.com/xenking/goldwin-storefront/internal/storage/redis"
	"github.com/xenking/goldwin-storefront/pkg/health"
	"github.com/xenking/goldwin-storefront/pkg/httpmiddleware"
)

const serviceName = "goldwin-api"

// backends are the storage dependencies selected by configuration.
type backends struct {
	products product.Repository
	carts    cart.Storage
	close    []func()
}

func (b *backends) Close() {
	for i := len(b.close) - 1; i >= 0; i-- {
		b.close[i]()
	}
}

// openBackends connects the catalog and cart storage and registers their
// readiness checks. The catalog comes from PostgreSQL when a database URL is
// configured and from the embedded seed otherwise.
func openBackends(ctx context.Context, lg *zap.Logger, cfg *Config, hc *health.Health) (_ *backends, rerr error) {
	b := &backends{}
	defer func() {
		if rerr != nil {
			b.Close()
		}
	}()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		p, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		pool = p
		b.close = append(b.close, pool.Close)

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return nil, errors.Wrap(err, "run migrations")
		}
		hc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
		b.products = postgres.NewProductRepository(pool)
		lg.Info("Using PostgreSQL catalog")
	} else {
		seed, err := catalog.DefaultSeed()
		if err != nil {
			return nil, errors.Wrap(err, "load catalog seed")
		}
		b.products = catalog.NewMemory(seed)
		lg.Info("Using embedded catalog", zap.Int("products", len(seed.Products)))
	}

	switch cfg.Storage {
	case StorageMemory:
		b.carts = memory.New()
	case StoragePostgres:
		if pool == nil {
			return nil, errors.New("postgres storage requires a database URL")
		}
		b.carts = postgres.NewCartRecordRepository(pool)
	case StorageRedis:
		client, err := redis.NewClient(cfg.Redis.URL)
		if err != nil {
			return nil, errors.Wrap(err, "create redis client")
		}
		b.close = append(b.close, func() { _ = client.Close() })
		s := redis.New(client, cfg.Redis.TTL)
		hc.AddReadinessCheck("redis", 2*time.Second, health.PingCheck(s))
		b.carts = s
	default:
		return nil, errors.Errorf("unknown storage %q", cfg.Storage)
	}
	lg.Info("Cart storage selected", zap.String("storage", cfg.Storage))
	return b, nil
}

// Server is the assembled HTTP handler with its health probes and backends.
type Server struct {
	Handler http.Handler
	Health  *health.Health

	backends *backends
}

// Close releases storage connections.
func (s *Server) Close() {
	s.backends.Close()
}

// NewServer builds the storefront handler stack for cfg. ctx bounds background
// work such as rate limiter eviction.
func NewServer(
	ctx context.Context,
	lg *zap.Logger,
	mp metric.MeterProvider,
	tp trace.TracerProvider,
	cfg *Config,
) (_ *Server, rerr error) {
	policy, err := cfg.Pricing.Policy()
	if err != nil {
		return nil, errors.Wrap(err, "pricing policy")
	}

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	b, err := openBackends(ctx, lg, cfg, healthSvc)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr != nil {
			b.Close()
		}
	}()

	h, err := handler.New(handler.Config{
		ImageBaseURL:  cfg.ImageBaseURL,
		SessionCookie: cfg.Session.Cookie,
		SecureCookie:  cfg.Session.Secure,
		SessionTTL:    cfg.Session.TTL,
		FeaturedLimit: catalog.DefaultFeaturedLimit,
	}, b.products, b.carts, policy, cartevents.NewBus(), mp)
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}

	instrument, err := httpmiddleware.Instrument(serviceName, mp)
	if err != nil {
		return nil, errors.Wrap(err, "create http instrumentation")
	}

	r := chi.NewRouter()
	r.Use(instrument, httpmiddleware.LogRequests())
	handler.SetErrorHandlers(r)
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Mount(r)

	root := httpmiddleware.Wrap(r,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", handler.SessionHeader, httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{handler.DurableHeader, httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
	)

	return &Server{
		Handler: otelhttp.NewHandler(root, serviceName,
			otelhttp.WithMeterProvider(mp),
			otelhttp.WithTracerProvider(tp),
		),
		Health:   healthSvc,
		backends: b,
	}, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	srv, err := NewServer(ctx, lg, m.MeterProvider(), m.TracerProvider(), cfg)
	if err != nil {
		return err
	}
	defer srv.Close()

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.Handler,
		// Request contexts end with ctx so event streams do not hold up Shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	srv.Health.Start(ctx, 10*time.Second)
	defer srv.Health.Stop()
	srv.Health.SetReady(true)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		srv.Health.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}
