// Package cart aggregates line items for a checkout session.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/bouquet-checkout/internal/domain/catalog"
)

// Line is a single item in the cart. Lines are unique per ItemID.
type Line struct {
	ItemID    string          `json:"item_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Total returns UnitPrice * Quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds line items in insertion order. The zero value is an empty cart.
type Cart struct {
	Lines []Line `json:"lines"`
}

// AddItem increments the quantity of id by one, inserting a new line at the
// catalog price when absent. Unknown items are ignored; the return value
// reports whether the cart changed.
func (c *Cart) AddItem(prices catalog.PriceLookup, id string) bool {
	if i := c.index(id); i >= 0 {
		c.Lines[i].Quantity++
		return true
	}
	price, ok := prices.UnitPrice(id)
	if !ok {
		return false
	}
	c.Lines = append(c.Lines, Line{ItemID: id, UnitPrice: price, Quantity: 1})
	return true
}

// SetQuantity sets the quantity of id to n. A non-positive n removes the
// line. An absent known item is inserted with quantity n.
func (c *Cart) SetQuantity(prices catalog.PriceLookup, id string, n int) bool {
	i := c.index(id)
	if n <= 0 {
		if i < 0 {
			return false
		}
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		return true
	}
	if i >= 0 {
		c.Lines[i].Quantity = n
		return true
	}
	price, ok := prices.UnitPrice(id)
	if !ok {
		return false
	}
	c.Lines = append(c.Lines, Line{ItemID: id, UnitPrice: price, Quantity: n})
	return true
}

// Quantity returns the quantity of id, zero when absent.
func (c *Cart) Quantity(id string) int {
	if i := c.index(id); i >= 0 {
		return c.Lines[i].Quantity
	}
	return 0
}

// Subtotal returns the sum of unit price times quantity over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) index(id string) int {
	for i, l := range c.Lines {
		if l.ItemID == id {
			return i
		}
	}
	return -1
}
