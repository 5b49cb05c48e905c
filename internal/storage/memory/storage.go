// Package memory provides an in-process cart record storage.
package memory

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/goldwin-storefront/internal/domain/cart"
)

// ErrQuotaExceeded is returned by Set when a write would exceed the quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

var _ cart.Storage = (*Storage)(nil)

// Option configures a Storage.
type Option func(*Storage)

// WithQuota limits the total number of stored bytes across all keys, like a
// browser's local storage quota. Zero disables the limit.
func WithQuota(bytes int) Option {
	return func(s *Storage) {
		s.quota = bytes
	}
}

// Storage implements cart.Storage with a mutex-guarded map. Values are copied
// on the way in and out.
type Storage struct {
	mu      sync.RWMutex
	records map[string][]byte
	size    int
	quota   int
}

// New returns an empty Storage.
func New(opts ...Option) *Storage {
	s := &Storage{records: make(map[string][]byte)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns a copy of the record under key, or cart.ErrNoRecord.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.records[key]
	if !ok {
		return nil, cart.ErrNoRecord
	}
	return append([]byte(nil), data...), nil
}

// Set stores a copy of data under key.
func (s *Storage) Set(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.size - len(s.records[key]) + len(data)
	if s.quota > 0 && size > s.quota {
		return errors.Wrapf(ErrQuotaExceeded, "%d of %d bytes", size, s.quota)
	}
	s.records[key] = append([]byte(nil), data...)
	s.size = size
	return nil
}

// Len returns the number of stored records.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
