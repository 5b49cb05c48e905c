// Package pricing derives the checkout summary of a cart.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/goldwin-storefront/internal/domain/cart"
)

// Policy holds the shipping and tax rules applied to a cart subtotal.
type Policy struct {
	// FreeShippingOver is the subtotal that must be strictly exceeded for
	// shipping to be free.
	FreeShippingOver decimal.Decimal
	// FlatShipping is charged when the subtotal does not exceed FreeShippingOver.
	FlatShipping decimal.Decimal
	// TaxRate is applied to the subtotal only.
	TaxRate decimal.Decimal
}

// DefaultPolicy returns free shipping over 100, a flat rate of 10 otherwise,
// and 8% tax.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingOver: decimal.NewFromInt(100),
		FlatShipping:     decimal.NewFromInt(10),
		TaxRate:          decimal.RequireFromString("0.08"),
	}
}

// ParsePolicy builds a Policy from decimal strings.
func ParsePolicy(freeShippingOver, flatShipping, taxRate string) (Policy, error) {
	var (
		p   Policy
		err error
	)
	if p.FreeShippingOver, err = decimal.NewFromString(freeShippingOver); err != nil {
		return Policy{}, errors.Wrap(err, "free shipping threshold")
	}
	if p.FlatShipping, err = decimal.NewFromString(flatShipping); err != nil {
		return Policy{}, errors.Wrap(err, "flat shipping")
	}
	if p.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
		return Policy{}, errors.Wrap(err, "tax rate")
	}
	if p.FreeShippingOver.IsNegative() || p.FlatShipping.IsNegative() || p.TaxRate.IsNegative() {
		return Policy{}, errors.New("pricing values must not be negative")
	}
	return p, nil
}

// Summary is the checkout-facing breakdown of a cart. Values are exact; use
// Rounded or Format for display.
type Summary struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	// FreeShippingRemaining is how much more must be spent to reach free
	// shipping, or zero once shipping is free.
	FreeShippingRemaining decimal.Decimal
}

// Summarize computes the summary of c under the default policy.
func Summarize(c cart.Cart) Summary {
	return DefaultPolicy().Summarize(c)
}

// Summarize computes the summary of c. Any cart is valid input, including the
// empty cart.
func (p Policy) Summarize(c cart.Cart) Summary {
	subtotal := c.Total
	s := Summary{
		Subtotal:              subtotal,
		Shipping:              decimal.Zero,
		FreeShippingRemaining: decimal.Zero,
	}
	if !subtotal.GreaterThan(p.FreeShippingOver) {
		s.Shipping = p.FlatShipping
		s.FreeShippingRemaining = p.FreeShippingOver.Sub(subtotal)
	}
	s.Tax = subtotal.Mul(p.TaxRate)
	s.Total = subtotal.Add(s.Shipping).Add(s.Tax)
	return s
}

// Rounded returns s with every amount rounded to cents.
func (s Summary) Rounded() Summary {
	return Summary{
		Subtotal:              s.Subtotal.Round(2),
		Shipping:              s.Shipping.Round(2),
		Tax:                   s.Tax.Round(2),
		Total:                 s.Total.Round(2),
		FreeShippingRemaining: s.FreeShippingRemaining.Round(2),
	}
}

// FreeShipping reports whether no shipping is charged.
func (s Summary) FreeShipping() bool {
	return s.Shipping.IsZero()
}

// Format renders an amount with exactly two fraction digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
