package product

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sort selects the ordering of a product listing.
type Sort string

const (
	// SortFeatured keeps catalog order.
	SortFeatured Sort = "featured"
	// SortPriceLow orders by ascending price.
	SortPriceLow Sort = "price-low"
	// SortPriceHigh orders by descending price.
	SortPriceHigh Sort = "price-high"
	// SortRating orders by descending rating.
	SortRating Sort = "rating"
	// SortNewest orders by descending numeric ID.
	SortNewest Sort = "newest"
)

// ErrInvalidSort is returned by ParseSort for an unknown sort key.
var ErrInvalidSort = errors.New("invalid sort")

// ParseSort validates a sort key. The empty string maps to SortFeatured.
func ParseSort(s string) (Sort, error) {
	switch v := Sort(s); v {
	case "":
		return SortFeatured, nil
	case SortFeatured, SortPriceLow, SortPriceHigh, SortRating, SortNewest:
		return v, nil
	default:
		return "", errors.Wrapf(ErrInvalidSort, "%q", s)
	}
}

// Filter narrows and orders a product listing. Zero values disable the
// corresponding criterion.
type Filter struct {
	Category string
	Search   string
	Limit    int
	MinPrice decimal.NullDecimal
	MaxPrice decimal.NullDecimal
	OnSale   bool
	InStock  bool
	Sort     Sort
}

// Match reports whether p satisfies every criterion of f except Limit and Sort.
func (f Filter) Match(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if f.MinPrice.Valid && p.Price.LessThan(f.MinPrice.Decimal) {
		return false
	}
	if f.MaxPrice.Valid && p.Price.GreaterThan(f.MaxPrice.Decimal) {
		return false
	}
	if f.OnSale && !p.OnSale() {
		return false
	}
	if f.InStock && !p.InStock {
		return false
	}
	return true
}

// Apply filters, sorts and truncates products according to f. The input slice
// is not modified.
func Apply(products []Product, f Filter) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}

	switch f.Sort {
	case SortPriceLow:
		slices.SortStableFunc(out, func(a, b Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceHigh:
		slices.SortStableFunc(out, func(a, b Product) int { return b.Price.Cmp(a.Price) })
	case SortRating:
		slices.SortStableFunc(out, func(a, b Product) int { return cmp.Compare(b.Rating, a.Rating) })
	case SortNewest:
		slices.SortStableFunc(out, func(a, b Product) int { return cmp.Compare(numericID(b.ID), numericID(a.ID)) })
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// Featured returns up to limit discounted products in catalog order.
func Featured(products []Product, limit int) []Product {
	var out []Product
	for _, p := range products {
		if limit > 0 && len(out) == limit {
			break
		}
		if p.OriginalPrice.Valid {
			out = append(out, p)
		}
	}
	return out
}

// numericID parses catalog IDs, which are decimal integers. Non-numeric IDs
// sort last.
func numericID(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return -1
	}
	return n
}
