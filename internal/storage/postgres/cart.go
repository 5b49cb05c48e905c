package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/goldwin-storefront/internal/domain/cart"
)

const (
	getCartRecordSQL = `SELECT data FROM cart_records WHERE key = $1`

	upsertCartRecordSQL = `INSERT INTO cart_records (key, data, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

	pruneCartRecordsSQL = `DELETE FROM cart_records WHERE updated_at < $1`
)

var _ cart.Storage = (*CartRecordRepository)(nil)

// CartRecordRepository implements cart.Storage backed by PostgreSQL. Each key
// maps to one JSONB row.
type CartRecordRepository struct {
	pool *pgxpool.Pool
}

// NewCartRecordRepository returns a CartRecordRepository that uses the given pool.
func NewCartRecordRepository(pool *pgxpool.Pool) *CartRecordRepository {
	return &CartRecordRepository{pool: pool}
}

// Get returns the record stored under key, or cart.ErrNoRecord.
func (r *CartRecordRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	if err := r.pool.QueryRow(ctx, getCartRecordSQL, key).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNoRecord
		}
		return nil, fmt.Errorf("getting cart record %q: %w", key, err)
	}
	return data, nil
}

// Set upserts the record under key. data must be a JSON document.
func (r *CartRecordRepository) Set(ctx context.Context, key string, data []byte) error {
	if _, err := r.pool.Exec(ctx, upsertCartRecordSQL, key, string(data)); err != nil {
		return fmt.Errorf("saving cart record %q: %w", key, err)
	}
	return nil
}

// Prune deletes records not written since before. It returns the number of
// records removed.
func (r *CartRecordRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, pruneCartRecordsSQL, before)
	if err != nil {
		return 0, fmt.Errorf("pruning cart records: %w", err)
	}
	return tag.RowsAffected(), nil
}
