// Package redis stores cart records in Redis.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/goldwin-storefront/internal/domain/cart"
)

var _ cart.Storage = (*Storage)(nil)

// Storage implements cart.Storage with plain GET/SET. Every write refreshes
// the record's expiry.
type Storage struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns a Storage using client. A zero ttl keeps records forever.
func New(client *redis.Client, ttl time.Duration) *Storage {
	return &Storage{client: client, ttl: ttl}
}

// Get returns the record under key, or cart.ErrNoRecord.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cart.ErrNoRecord
		}
		return nil, errors.Wrapf(err, "redis get %q", key)
	}
	return data, nil
}

// Set replaces the record under key.
func (s *Storage) Set(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set %q", key)
	}
	return nil
}

// Ping checks connectivity.
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// NewClient parses a redis:// URL into a client.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return redis.NewClient(opts), nil
}
