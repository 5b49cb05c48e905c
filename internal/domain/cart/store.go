package cart

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/goldwin-storefront/internal/domain/product"
)

// DefaultKey is the application-scoped key of the cart record.
const DefaultKey = "goldwin-cart"

// ErrNoRecord is returned by Storage.Get when no record exists for a key.
var ErrNoRecord = errors.New("no cart record")

// SessionKey returns the record key for a browsing session.
func SessionKey(sessionID string) string {
	if sessionID == "" {
		return DefaultKey
	}
	return DefaultKey + ":" + sessionID
}

// Storage is a byte-oriented key-value store holding cart records.
type Storage interface {
	// Get returns the record stored under key, or ErrNoRecord.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the record stored under key.
	Set(ctx context.Context, key string, data []byte) error
}

// Result is the outcome of a Store operation. Cart is always the correct
// value for the call; LoadErr and SaveErr record storage failures that were
// absorbed instead of returned.
type Result struct {
	Cart    Cart
	LoadErr error
	SaveErr error
}

// Durable reports whether the operation fully round-tripped storage.
func (r Result) Durable() bool {
	return r.LoadErr == nil && r.SaveErr == nil
}

// Err returns the first absorbed storage failure, if any.
func (r Result) Err() error {
	if r.LoadErr != nil {
		return r.LoadErr
	}
	return r.SaveErr
}

// Store is the sole authority for reading and mutating one cart record.
// Every mutation reads the current record, applies one change, recomputes the
// aggregates, writes the full cart back, and returns it. Storage failures
// never surface as errors: a missing or unreadable record reads as the empty
// cart and a failed write still returns the updated cart.
//
// Store does not notify other views; callers publish a change event after
// each mutation.
type Store struct {
	storage Storage
	key     string
	lg      *zap.Logger
}

// NewStore returns a Store bound to the record under key.
func NewStore(storage Storage, key string, lg *zap.Logger) *Store {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Store{
		storage: storage,
		key:     key,
		lg:      lg.With(zap.String("cart_key", key)),
	}
}

// Key returns the record key the store is bound to.
func (s *Store) Key() string {
	return s.key
}

// Read returns the persisted cart, or the empty cart when there is none. A
// corrupt record is discarded from the result but left in storage.
func (s *Store) Read(ctx context.Context) Result {
	c, err := s.load(ctx)
	return Result{Cart: c, LoadErr: err}
}

// Add puts quantity units of p into the cart. Adding a product that already
// has a line increments that line; otherwise a new line holding a copy of p is
// appended. Quantities below 1 are treated as 1, and a line never exceeds
// MaxQuantity.
func (s *Store) Add(ctx context.Context, p product.Product, quantity int) Result {
	quantity = min(max(quantity, 1), MaxQuantity)
	return s.mutate(ctx, func(c *Cart) {
		if i := c.Find(p.ID); i >= 0 {
			c.Items[i].Quantity = min(c.Items[i].Quantity+quantity, MaxQuantity)
			return
		}
		c.Items = append(c.Items, Line{Product: p.Clone(), Quantity: quantity})
	})
}

// Remove deletes the line for productID. Removing an absent product is a no-op.
func (s *Store) Remove(ctx context.Context, productID string) Result {
	return s.mutate(ctx, func(c *Cart) {
		if i := c.Find(productID); i >= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		}
	})
}

// SetQuantity replaces the quantity of the line for productID. A quantity of
// zero or less removes the line; larger values are capped at MaxQuantity. It
// never creates a line.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) Result {
	if quantity <= 0 {
		return s.Remove(ctx, productID)
	}
	quantity = min(quantity, MaxQuantity)
	return s.mutate(ctx, func(c *Cart) {
		if i := c.Find(productID); i >= 0 {
			c.Items[i].Quantity = quantity
		}
	})
}

// Clear replaces the cart with the empty cart.
func (s *Store) Clear(ctx context.Context) Result {
	c := Empty()
	return Result{Cart: c, SaveErr: s.save(ctx, c)}
}

func (s *Store) mutate(ctx context.Context, apply func(c *Cart)) Result {
	c, loadErr := s.load(ctx)
	apply(&c)
	c.recompute()
	return Result{Cart: c, LoadErr: loadErr, SaveErr: s.save(ctx, c)}
}

func (s *Store) load(ctx context.Context) (Cart, error) {
	data, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return Empty(), nil
		}
		s.lg.Warn("Cart storage unavailable, using empty cart", zap.Error(err))
		return Empty(), errors.Wrap(err, "load cart")
	}

	c, err := Unmarshal(data)
	if err != nil {
		s.lg.Warn("Discarding unreadable cart record", zap.Error(err))
		return Empty(), err
	}
	return c, nil
}

func (s *Store) save(ctx context.Context, c Cart) error {
	if err := s.storage.Set(ctx, s.key, Marshal(c)); err != nil {
		s.lg.Warn("Cart not persisted", zap.Error(err), zap.Int("item_count", c.ItemCount))
		return errors.Wrap(err, "save cart")
	}
	return nil
}
