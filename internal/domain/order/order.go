// Package order defines placed orders and their persistence contract.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/bouquet-checkout/internal/domain/delivery"
)

// Order is a confirmed checkout session with its final pricing and delivery
// details.
type Order struct {
	ID          string
	SessionID   string
	Items       []Item
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
	CouponCode  string
	Delivery    Delivery
	CreatedAt   time.Time
}

// Item is a single line of an order, priced at placement time.
type Item struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Delivery holds where and when the order is delivered.
type Delivery struct {
	Date    delivery.Date
	Slot    delivery.Slot
	SameDay bool
	Address string
	Lat     *float64
	Lon     *float64
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
}
