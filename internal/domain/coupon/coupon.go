// Package coupon implements the discount engine: a single active coupon,
// percentage or fixed, with minimum purchase and maximum discount limits.
package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported coupon discount strategies.
type Kind string

const (
	// KindPercentage takes a percentage of the subtotal.
	KindPercentage Kind = "percentage"
	// KindFixed takes a fixed amount, capped at the subtotal.
	KindFixed Kind = "fixed"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindPercentage || k == KindFixed
}

var (
	// ErrInvalidCoupon is returned when a code is unknown or the cart is not
	// eligible for it.
	ErrInvalidCoupon = errors.New("invalid or ineligible coupon code")
	// ErrCouponExpired is returned when a coupon is outside its valid time window.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
)

// MinimumPurchaseError reports a subtotal below the coupon's minimum. It
// matches ErrInvalidCoupon with errors.Is.
type MinimumPurchaseError struct {
	Code        string
	MinPurchase decimal.Decimal
	Subtotal    decimal.Decimal
}

func (e *MinimumPurchaseError) Error() string {
	return "coupon " + e.Code + " requires a minimum purchase of " +
		e.MinPurchase.StringFixed(2) + " (subtotal " + e.Subtotal.StringFixed(2) + ")"
}

// Is makes the error match ErrInvalidCoupon.
func (e *MinimumPurchaseError) Is(target error) bool {
	return target == ErrInvalidCoupon
}

// Coupon is a named discount rule.
type Coupon struct {
	Code        string              `json:"code"`
	Kind        Kind                `json:"kind"`
	Value       decimal.Decimal     `json:"value"`
	MinPurchase decimal.Decimal     `json:"min_purchase"`
	MaxDiscount decimal.NullDecimal `json:"max_discount"`
	Description string              `json:"description,omitempty"`
	ValidFrom   *time.Time          `json:"valid_from,omitempty"`
	ValidUntil  *time.Time          `json:"valid_until,omitempty"`
	MaxUses     int                 `json:"max_uses,omitempty"`
	Uses        int                 `json:"uses,omitempty"`
}

// Discount holds the computed discount amount and a human-readable description.
type Discount struct {
	Amount      decimal.Decimal
	Description string
}

// Repository provides lookup and mutation of coupons.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	IncrementUses(ctx context.Context, code string) error
	DecrementUses(ctx context.Context, code string) error
}

// NormalizeCode trims and upper-cases a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
