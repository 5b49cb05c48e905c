package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/goldwin-storefront/internal/domain/pricing"
)

const defaultAddr = "0.0.0.0:8080"

// Storage backends for cart records.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config holds the complete application configuration, loadable from
// environment variables (GOLDWIN_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage      string `default:"memory" usage:"Cart storage backend: memory, postgres or redis"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (GOLDWIN_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for relative product image paths" flag:"image-base-url"`
	Redis        RedisConfig
	Pricing      PricingConfig
	Session      SessionConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// RedisConfig configures the redis cart storage.
type RedisConfig struct {
	URL string        `usage:"Redis URL (GOLDWIN_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	TTL time.Duration `default:"720h" usage:"Cart record lifetime in redis" flag:"redis-ttl"`
}

// PricingConfig holds the checkout rules as decimal strings.
type PricingConfig struct {
	FreeShippingOver string `default:"100" usage:"Subtotal above which shipping is free" flag:"free-shipping-over"`
	FlatShipping     string `default:"10" usage:"Flat shipping charge" flag:"flat-shipping"`
	TaxRate          string `default:"0.08" usage:"Tax rate applied to the subtotal" flag:"tax-rate"`
}

// Policy parses the configured pricing rules.
func (c PricingConfig) Policy() (pricing.Policy, error) {
	return pricing.ParsePolicy(c.FreeShippingOver, c.FlatShipping, c.TaxRate)
}

// SessionConfig controls the cart session cookie.
type SessionConfig struct {
	Cookie string        `default:"goldwin_session" usage:"Session cookie name" flag:"session-cookie"`
	Secure bool          `default:"false" usage:"Mark the session cookie Secure" flag:"session-secure"`
	TTL    time.Duration `default:"720h" usage:"Session cookie lifetime" flag:"session-ttl"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"300" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from flags, environment variables and YAML
// config files, then applies platform defaults and validates it.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		Args:      args,
		EnvPrefix: "GOLDWIN",
		Files:     []string{"config.yaml", "/etc/goldwin/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided variables with standard names
// (DATABASE_URL, REDIS_URL, PORT) onto the GOLDWIN_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Redis.URL == "" {
		c.Redis.URL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Validate checks that the selected backend is configured and the pricing
// rules parse.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for postgres storage: set GOLDWIN_DATABASE_URL or DATABASE_URL")
		}
	case StorageRedis:
		if c.Redis.URL == "" {
			return errors.New("redis URL is required for redis storage: set GOLDWIN_REDIS_URL or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}
	if _, err := c.Pricing.Policy(); err != nil {
		return errors.Wrap(err, "pricing")
	}
	return nil
}
