package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bouquet-checkout/internal/domain/coupon"
)

const (
	couponColumns = `code, kind, value, min_purchase, max_discount, description,
		valid_from, valid_until, max_uses, uses`

	getCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE UPPER(code) = UPPER($1) AND active`

	// The usage limit is checked in the same statement so concurrent
	// redemptions cannot exceed it.
	incrementCouponUsesSQL = `UPDATE coupons SET uses = uses + 1
		WHERE UPPER(code) = UPPER($1) AND active
		AND (max_uses = 0 OR uses < max_uses)`

	decrementCouponUsesSQL = `UPDATE coupons SET uses = uses - 1
		WHERE UPPER(code) = UPPER($1) AND uses > 0`

	upsertCouponSQL = `INSERT INTO coupons (code, kind, value, min_purchase, max_discount,
		description, valid_from, valid_until, max_uses, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			kind = EXCLUDED.kind,
			value = EXCLUDED.value,
			min_purchase = EXCLUDED.min_purchase,
			max_discount = EXCLUDED.max_discount,
			description = EXCLUDED.description,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			max_uses = EXCLUDED.max_uses,
			active = TRUE`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon case-insensitively. Returns
// coupon.ErrInvalidCoupon when none matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	return &c, nil
}

// IncrementUses records one redemption. It returns
// coupon.ErrCouponUsageLimitReached when the coupon is exhausted.
func (r *CouponRepository) IncrementUses(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, incrementCouponUsesSQL, code)
	if err != nil {
		return errors.Wrapf(err, "increment uses for coupon %q", code)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrCouponUsageLimitReached
	}
	return nil
}

// DecrementUses gives back one redemption. It is a no-op for unknown codes
// and never drives the counter below zero.
func (r *CouponRepository) DecrementUses(ctx context.Context, code string) error {
	if _, err := r.pool.Exec(ctx, decrementCouponUsesSQL, code); err != nil {
		return errors.Wrapf(err, "decrement uses for coupon %q", code)
	}
	return nil
}

// Upsert inserts or replaces a coupon definition. Existing usage counts are
// kept.
func (r *CouponRepository) Upsert(ctx context.Context, c coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		coupon.NormalizeCode(c.Code), string(c.Kind), c.Value, c.MinPurchase, c.MaxDiscount,
		c.Description, c.ValidFrom, c.ValidUntil, c.MaxUses,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert coupon %q", c.Code)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c    coupon.Coupon
		kind string
	)
	err := row.Scan(
		&c.Code, &kind, &c.Value, &c.MinPurchase, &c.MaxDiscount, &c.Description,
		&c.ValidFrom, &c.ValidUntil, &c.MaxUses, &c.Uses,
	)
	c.Kind = coupon.Kind(kind)
	return c, err
}
