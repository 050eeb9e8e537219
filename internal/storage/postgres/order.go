package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bouquet-checkout/internal/domain/order"
)

const createOrderSQL = `INSERT INTO orders (id, session_id, items, subtotal, delivery_fee,
	discount, total, coupon_code, delivery_date, delivery_slot, same_day, address,
	lat, lon, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8::text, ''), $9, $10, $11, $12, $13, $14, $15)`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Items are stored in a JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.SessionID, items, o.Subtotal, o.DeliveryFee,
		o.Discount, o.Total, o.CouponCode,
		o.Delivery.Date.In(time.UTC), string(o.Delivery.Slot), o.Delivery.SameDay, o.Delivery.Address,
		o.Delivery.Lat, o.Delivery.Lon, o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}
