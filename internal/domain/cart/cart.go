// Package cart implements the persisted shopping cart: its data model, the
// read-modify-write operations over it, and the record codec.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/goldwin-storefront/internal/domain/product"
)

// Line pairs a product snapshot with a positive quantity.
type Line struct {
	Product  product.Product
	Quantity int
}

// Subtotal returns price × quantity for the line.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// MaxQuantity caps the quantity of a single line. Adds and updates beyond it
// saturate.
const MaxQuantity = 999

// Cart is the ordered set of lines together with its derived aggregates.
// Items are kept in first-added order and hold at most one line per product.
type Cart struct {
	Items     []Line
	Total     decimal.Decimal
	ItemCount int
}

// Empty returns the canonical empty cart.
func Empty() Cart {
	return Cart{Items: []Line{}, Total: decimal.Zero, ItemCount: 0}
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Find returns the index of the line for productID, or -1.
func (c Cart) Find(productID string) int {
	for i := range c.Items {
		if c.Items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of c.
func (c Cart) Clone() Cart {
	items := make([]Line, len(c.Items))
	for i, l := range c.Items {
		items[i] = Line{Product: l.Product.Clone(), Quantity: l.Quantity}
	}
	c.Items = items
	return c
}

// recompute refreshes Total and ItemCount from the lines. Totals are summed
// exactly; rounding is left to presentation.
func (c *Cart) recompute() {
	total := decimal.Zero
	count := 0
	for _, l := range c.Items {
		total = total.Add(l.Subtotal())
		count += l.Quantity
	}
	c.Total = total
	c.ItemCount = count
}
