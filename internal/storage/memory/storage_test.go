package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/goldwin-storefront/internal/domain/cart"
	"github.com/xenking/goldwin-storefront/internal/domain/product"
)

func TestStorage_GetMissing(t *testing.T) {
	s := New()

	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, cart.ErrNoRecord)
}

func TestStorage_SetCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	data := []byte("abc")

	require.NoError(t, s.Set(ctx, "k", data))
	data[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[0] = 'y'
	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
	assert.Equal(t, 1, s.Len())
}

func TestStorage_Quota(t *testing.T) {
	s := New(WithQuota(8))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("12345")))
	// Replacing a record only counts the difference.
	require.NoError(t, s.Set(ctx, "a", []byte("1234567")))

	err := s.Set(ctx, "b", []byte("12"))
	require.ErrorIs(t, err, ErrQuotaExceeded)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1234567", string(got))
}

func TestStorage_CanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.Set(ctx, "k", nil), context.Canceled)
	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}

func TestStorage_QuotaExceededIsFailSoft(t *testing.T) {
	s := New(WithQuota(64))
	store := cart.NewStore(s, cart.DefaultKey, zaptest.NewLogger(t))
	p := product.Product{ID: "1", Name: "Premium Wireless Headphones", Price: decimal.RequireFromString("299.99")}

	res := store.Add(context.Background(), p, 1)

	require.ErrorIs(t, res.SaveErr, ErrQuotaExceeded)
	require.Len(t, res.Cart.Items, 1)
	assert.Equal(t, 1, res.Cart.ItemCount)
	assert.True(t, store.Read(context.Background()).Cart.IsEmpty())
}
