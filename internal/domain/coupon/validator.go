package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Engine looks up coupons and checks them against a cart subtotal.
type Engine struct {
	repo Repository
	now  func() time.Time
}

// NewEngine creates an Engine backed by the given Repository.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// Lookup returns the coupon for code after checking its validity window and
// usage limit. Codes are matched case-insensitively.
func (e *Engine) Lookup(ctx context.Context, code string) (*Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrInvalidCoupon
	}

	c, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if err := e.CheckWindow(c); err != nil {
		return nil, err
	}
	return c, nil
}

// CheckWindow verifies the coupon's validity window and usage limit.
func (e *Engine) CheckWindow(c *Coupon) error {
	now := e.now()
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return ErrCouponExpired
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return ErrCouponExpired
	}
	if c.MaxUses > 0 && c.Uses >= c.MaxUses {
		return ErrCouponUsageLimitReached
	}
	return nil
}

// Validate looks up code and applies it to subtotal.
func (e *Engine) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, Discount, error) {
	c, err := e.Lookup(ctx, code)
	if err != nil {
		return nil, Discount{}, err
	}
	d, err := Apply(c, subtotal)
	if err != nil {
		return nil, Discount{}, err
	}
	return c, d, nil
}

// Redeem revalidates a previously applied coupon against the stored rules
// and records one use. It is called when an order is placed.
func (e *Engine) Redeem(ctx context.Context, code string, subtotal decimal.Decimal) (Discount, error) {
	_, d, err := e.Validate(ctx, code, subtotal)
	if err != nil {
		return Discount{}, err
	}
	if err := e.repo.IncrementUses(ctx, NormalizeCode(code)); err != nil {
		return Discount{}, errors.Wrap(err, "increment coupon uses")
	}
	return d, nil
}

// Release gives back one use recorded by Redeem. It is called when the order
// the coupon was redeemed for could not be stored.
func (e *Engine) Release(ctx context.Context, code string) error {
	if err := e.repo.DecrementUses(ctx, NormalizeCode(code)); err != nil {
		return errors.Wrap(err, "decrement coupon uses")
	}
	return nil
}
