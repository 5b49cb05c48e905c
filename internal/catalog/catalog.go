// Package catalog provides the in-memory product catalog and the seed format
// shared with the database seeder.
package catalog

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/goldwin-storefront/db"
	"github.com/xenking/goldwin-storefront/internal/domain/product"
)

// DefaultFeaturedLimit is the number of featured products shown on the home page.
const DefaultFeaturedLimit = 4

// Seed is the decoded catalog seed file.
type Seed struct {
	Categories []product.Category
	Products   []product.Product
}

// DecodeSeed parses a catalog seed: {"categories":[...],"products":[...]}.
func DecodeSeed(data []byte) (*Seed, error) {
	var s Seed
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "categories":
			return d.Arr(func(d *jx.Decoder) error {
				var c product.Category
				if err := c.Decode(d); err != nil {
					return errors.Wrapf(err, "category %d", len(s.Categories))
				}
				s.Categories = append(s.Categories, c)
				return nil
			})
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				var p product.Product
				if err := p.Decode(d); err != nil {
					return errors.Wrapf(err, "product %d", len(s.Products))
				}
				s.Products = append(s.Products, p)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog seed")
	}
	return &s, nil
}

// DefaultSeed decodes the embedded storefront catalog.
func DefaultSeed() (*Seed, error) {
	return DecodeSeed(db.Catalog)
}

var _ product.Repository = (*Memory)(nil)

// Memory implements product.Repository over a fixed in-memory seed. Returned
// products are copies.
type Memory struct {
	products   []product.Product
	categories []product.Category
}

// NewMemory returns a Memory catalog holding seed.
func NewMemory(seed *Seed) *Memory {
	return &Memory{
		products:   slices.Clone(seed.Products),
		categories: slices.Clone(seed.Categories),
	}
}

// List returns products matching f.
func (m *Memory) List(ctx context.Context, f product.Filter) ([]product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cloneAll(product.Apply(m.products, f)), nil
}

// GetByID returns the product with the given ID, or product.ErrNotFound.
func (m *Memory) GetByID(ctx context.Context, id string) (*product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, p := range m.products {
		if p.ID == id {
			c := p.Clone()
			return &c, nil
		}
	}
	return nil, product.ErrNotFound
}

// Featured returns up to limit discounted products.
func (m *Memory) Featured(ctx context.Context, limit int) ([]product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cloneAll(product.Featured(m.products, limit)), nil
}

// Categories returns all categories.
func (m *Memory) Categories(ctx context.Context) ([]product.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(m.categories), nil
}

// CategoryBySlug returns the category with the given slug, or product.ErrNotFound.
func (m *Memory) CategoryBySlug(ctx context.Context, slug string) (*product.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, c := range m.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, product.ErrNotFound
}

func cloneAll(products []product.Product) []product.Product {
	out := make([]product.Product, len(products))
	for i, p := range products {
		out[i] = p.Clone()
	}
	return out
}
