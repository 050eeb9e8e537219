package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply calculates the discount of c against subtotal. The result never
// exceeds the subtotal nor MaxDiscount when set, and is rounded to cents.
func Apply(c *Coupon, subtotal decimal.Decimal) (Discount, error) {
	if subtotal.LessThan(c.MinPurchase) {
		return Discount{}, &MinimumPurchaseError{
			Code:        c.Code,
			MinPurchase: c.MinPurchase,
			Subtotal:    subtotal,
		}
	}

	var amount decimal.Decimal
	switch c.Kind {
	case KindPercentage:
		amount = subtotal.Mul(c.Value).Div(hundred)
	case KindFixed:
		amount = decimal.Min(c.Value, subtotal)
	default:
		return Discount{}, errors.Errorf("unsupported coupon kind: %q", c.Kind)
	}

	if c.MaxDiscount.Valid {
		amount = decimal.Min(amount, c.MaxDiscount.Decimal)
	}
	amount = decimal.Min(amount, subtotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return Discount{
		Amount:      amount.Round(2),
		Description: c.Description,
	}, nil
}
