// Package handler serves the storefront HTTP API: catalog browsing, the
// session cart and its change stream.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/goldwin-storefront/internal/cartevents"
	"github.com/xenking/goldwin-storefront/internal/domain/cart"
	"github.com/xenking/goldwin-storefront/internal/domain/pricing"
	"github.com/xenking/goldwin-storefront/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	ImageBaseURL string
	// SessionCookie names the cookie that carries the cart session.
	SessionCookie string
	// SecureCookie sets the Secure attribute on issued session cookies.
	SecureCookie bool
	// SessionTTL is the session cookie lifetime.
	SessionTTL time.Duration
	// FeaturedLimit caps GET /api/product/featured.
	FeaturedLimit int
	// Heartbeat is the idle interval between SSE keep-alive comments.
	Heartbeat time.Duration
}

func (c *Config) setDefaults() {
	if c.SessionCookie == "" {
		c.SessionCookie = "goldwin_session"
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 30 * 24 * time.Hour
	}
	if c.FeaturedLimit <= 0 {
		c.FeaturedLimit = 4
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 15 * time.Second
	}
}

// Handler implements the /api routes. Cart state lives in storage; a Store is
// bound per request to the caller's session key.
type Handler struct {
	cfg      Config
	products product.Repository
	storage  cart.Storage
	policy   pricing.Policy
	bus      *cartevents.Bus

	mutations metric.Int64Counter
}

// New constructs a Handler.
func New(
	cfg Config,
	products product.Repository,
	storage cart.Storage,
	policy pricing.Policy,
	bus *cartevents.Bus,
	mp metric.MeterProvider,
) (*Handler, error) {
	cfg.setDefaults()
	mutations, err := mp.Meter("github.com/xenking/goldwin-storefront/internal/handler").
		Int64Counter("cart.mutations", metric.WithDescription("Cart mutations by operation and durability"))
	if err != nil {
		return nil, errors.Wrap(err, "create cart mutation counter")
	}
	return &Handler{
		cfg:       cfg,
		products:  products,
		storage:   storage,
		policy:    policy,
		bus:       bus,
		mutations: mutations,
	}, nil
}

// Mount registers the API routes on r under /api.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/product", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/featured", h.featuredProducts)
			r.Get("/{id}", h.getProduct)
		})
		r.Route("/category", func(r chi.Router) {
			r.Get("/", h.listCategories)
			r.Get("/{slug}", h.getCategory)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Delete("/", h.clearCart)
			r.Get("/summary", h.getSummary)
			r.Get("/events", h.cartEvents)
			r.Post("/items", h.addItem)
			r.Put("/items/{productId}", h.setQuantity)
			r.Delete("/items/{productId}", h.removeItem)
		})
	})
}

// Routes returns a router serving only the API. Useful for tests and for
// mounting under an existing mux.
func (h *Handler) Routes(mws ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(mws...)
	SetErrorHandlers(r)
	h.Mount(r)
	return r
}

// SetErrorHandlers replaces chi's plain-text 404 and 405 responses with JSON
// errors. Call it before Mount so sub-routers inherit the handlers.
func SetErrorHandlers(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}
