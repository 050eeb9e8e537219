// Package pricing composes cart, coupon and delivery fee into order totals.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/bouquet-checkout/internal/domain/cart"
	"github.com/xenking/bouquet-checkout/internal/domain/coupon"
)

// ComputeTotal returns max(0, subtotal + deliveryFee - discount) rounded to
// cents.
func ComputeTotal(subtotal, deliveryFee, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Add(deliveryFee).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total.Round(2)
}

// CouponStatus describes how the applied coupon contributed to a quote.
type CouponStatus string

const (
	// CouponNone means no coupon is applied.
	CouponNone CouponStatus = ""
	// CouponApplied means the coupon produced a discount.
	CouponApplied CouponStatus = "applied"
	// CouponIneligible means the coupon is applied but the cart no longer
	// qualifies, so the discount is zero.
	CouponIneligible CouponStatus = "ineligible"
)

// Quote is the derived price breakdown of a checkout session. It is never
// stored.
type Quote struct {
	Subtotal     decimal.Decimal
	DeliveryFee  decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
	CouponCode   string
	CouponStatus CouponStatus
	CouponReason string
}

// Calculate builds a quote for the cart with an optional applied coupon.
func Calculate(c *cart.Cart, applied *coupon.Coupon, deliveryFee decimal.Decimal) Quote {
	q := Quote{
		Subtotal:    c.Subtotal().Round(2),
		DeliveryFee: deliveryFee,
		Discount:    decimal.Zero,
	}

	if applied != nil {
		q.CouponCode = applied.Code
		q.CouponStatus = CouponApplied
		d, err := coupon.Apply(applied, c.Subtotal())
		if err != nil {
			q.CouponStatus = CouponIneligible
			q.CouponReason = err.Error()
		} else {
			q.Discount = d.Amount
		}
	}

	q.Total = ComputeTotal(q.Subtotal, q.DeliveryFee, q.Discount)
	return q
}
