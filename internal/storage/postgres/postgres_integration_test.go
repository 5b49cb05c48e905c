//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/goldwin-storefront/internal/catalog"
	"github.com/xenking/goldwin-storefront/internal/domain/cart"
	"github.com/xenking/goldwin-storefront/internal/domain/product"
)

func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:17-alpine",
		tcpostgres.WithDatabase("goldwin"),
		tcpostgres.WithUsername("goldwin"),
		tcpostgres.WithPassword("goldwin"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func TestIntegration_CartRecords(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	repo := NewCartRecordRepository(pool)

	_, err := repo.Get(ctx, "goldwin-cart:missing")
	require.ErrorIs(t, err, cart.ErrNoRecord)

	store := cart.NewStore(repo, cart.SessionKey("s1"), zaptest.NewLogger(t))
	p := product.Product{ID: "1", Name: "Premium Wireless Headphones", Price: decimal.RequireFromString("299.99")}
	written := store.Add(ctx, p, 3)
	require.True(t, written.Durable())

	reloaded := cart.NewStore(repo, cart.SessionKey("s1"), zaptest.NewLogger(t)).Read(ctx)
	require.True(t, reloaded.Durable())
	assert.True(t, decimal.RequireFromString("899.97").Equal(reloaded.Cart.Total))
	assert.Equal(t, 3, reloaded.Cart.ItemCount)

	cleared := store.Clear(ctx)
	require.True(t, cleared.Durable())
	assert.True(t, store.Read(ctx).Cart.IsEmpty())

	n, err := repo.Prune(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = repo.Get(ctx, cart.SessionKey("s1"))
	require.ErrorIs(t, err, cart.ErrNoRecord)
}

func TestIntegration_Products(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	repo := NewProductRepository(pool)

	seed, err := catalog.DefaultSeed()
	require.NoError(t, err)
	for i, p := range seed.Products {
		require.NoError(t, repo.UpsertProduct(ctx, p, i))
	}
	for _, c := range seed.Categories {
		require.NoError(t, repo.UpsertCategory(ctx, c))
	}

	all, err := repo.List(ctx, product.Filter{})
	require.NoError(t, err)
	require.Len(t, all, len(seed.Products))
	assert.Equal(t, seed.Products[0].ID, all[0].ID)

	p, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("299.99").Equal(p.Price))
	require.True(t, p.OriginalPrice.Valid)
	assert.Len(t, p.Images, 2)

	_, err = repo.GetByID(ctx, "404")
	require.ErrorIs(t, err, product.ErrNotFound)

	featured, err := repo.Featured(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, featured, 2)

	c, err := repo.CategoryBySlug(ctx, "accessories")
	require.NoError(t, err)
	assert.Equal(t, "Accessories", c.Name)
}
