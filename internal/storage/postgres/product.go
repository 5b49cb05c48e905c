package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/goldwin-storefront/internal/domain/product"
)

const (
	productColumns = `id, name, description, price, original_price, images, category, rating, reviews, in_stock, features`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY position, id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	featuredProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE original_price IS NOT NULL ORDER BY position, id LIMIT $1`

	listCategoriesSQL = `SELECT id, name, slug, image, product_count FROM categories ORDER BY id`

	getCategoryBySlugSQL = `SELECT id, name, slug, image, product_count FROM categories WHERE slug = $1`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `, position)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		price = EXCLUDED.price,
		original_price = EXCLUDED.original_price,
		images = EXCLUDED.images,
		category = EXCLUDED.category,
		rating = EXCLUDED.rating,
		reviews = EXCLUDED.reviews,
		in_stock = EXCLUDED.in_stock,
		features = EXCLUDED.features,
		position = EXCLUDED.position`

	upsertCategorySQL = `INSERT INTO categories (id, name, slug, image, product_count)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		slug = EXCLUDED.slug,
		image = EXCLUDED.image,
		product_count = EXCLUDED.product_count`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
// Filtering and sorting run in Go over the full listing; the catalog is small.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the products matching f.
func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return product.Apply(products, f), nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// Featured returns up to limit products that have an original price.
func (r *ProductRepository) Featured(ctx context.Context, limit int) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, featuredProductsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing featured products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Categories returns all categories ordered by ID.
func (r *ProductRepository) Categories(ctx context.Context) ([]product.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, scanCategory)
}

// CategoryBySlug returns a single category by slug.
func (r *ProductRepository) CategoryBySlug(ctx context.Context, slug string) (*product.Category, error) {
	rows, err := r.pool.Query(ctx, getCategoryBySlugSQL, slug)
	if err != nil {
		return nil, fmt.Errorf("getting category %q: %w", slug, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting category %q: %w", slug, err)
	}
	return &c, nil
}

// UpsertProduct inserts or replaces p. position orders the default listing.
func (r *ProductRepository) UpsertProduct(ctx context.Context, p product.Product, position int) error {
	var original *decimal.Decimal
	if p.OriginalPrice.Valid {
		original = &p.OriginalPrice.Decimal
	}
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Price, original, nonNil(p.Images),
		p.Category, p.Rating, p.Reviews, p.InStock, nonNil(p.Features), position,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// UpsertCategory inserts or replaces c.
func (r *ProductRepository) UpsertCategory(ctx context.Context, c product.Category) error {
	_, err := r.pool.Exec(ctx, upsertCategorySQL, c.ID, c.Name, c.Slug, c.Image, c.ProductCount)
	if err != nil {
		return fmt.Errorf("upserting category %q: %w", c.Slug, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		original *decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &original, &p.Images,
		&p.Category, &p.Rating, &p.Reviews, &p.InStock, &p.Features,
	)
	if original != nil {
		p.OriginalPrice = decimal.NewNullDecimal(*original)
	}
	return p, err
}

func scanCategory(row pgx.CollectableRow) (product.Category, error) {
	var c product.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Image, &c.ProductCount)
	return c, err
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
