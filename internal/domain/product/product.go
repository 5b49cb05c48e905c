package product

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product or category does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. The cart keeps a
// copy of it taken at the moment the product was added.
type Product struct {
	ID            string
	Name          string
	Description   string
	Price         decimal.Decimal
	OriginalPrice decimal.NullDecimal
	Images        []string
	Category      string
	Rating        float64
	Reviews       int
	InStock       bool
	Features      []string
}

// Clone returns a deep copy of p.
func (p Product) Clone() Product {
	p.Images = slices.Clone(p.Images)
	p.Features = slices.Clone(p.Features)
	return p
}

// OnSale reports whether the product has an original price above its price.
func (p Product) OnSale() bool {
	return p.OriginalPrice.Valid && p.OriginalPrice.Decimal.GreaterThan(p.Price)
}

// DiscountPercent returns the whole-number discount relative to the original
// price, or 0 when the product is not discounted.
func (p Product) DiscountPercent() int64 {
	if !p.OriginalPrice.Valid || !p.OriginalPrice.Decimal.IsPositive() {
		return 0
	}
	ratio := p.Price.Div(p.OriginalPrice.Decimal)
	return decimal.NewFromInt(1).Sub(ratio).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Category groups products for browsing.
type Category struct {
	ID           string
	Name         string
	Slug         string
	Image        string
	ProductCount int
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Featured(ctx context.Context, limit int) ([]Product, error)
	Categories(ctx context.Context) ([]Category, error)
	CategoryBySlug(ctx context.Context, slug string) (*Category, error)
}
