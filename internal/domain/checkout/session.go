// Package checkout ties the cart, discount engine, delivery scheduler and
// address resolver together into checkout sessions.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/bouquet-checkout/internal/domain/address"
	"github.com/xenking/bouquet-checkout/internal/domain/cart"
	"github.com/xenking/bouquet-checkout/internal/domain/coupon"
	"github.com/xenking/bouquet-checkout/internal/domain/delivery"
)

var (
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrConfirmationRequired is returned when removing the primary item
	// without explicit confirmation.
	ErrConfirmationRequired = errors.New("removing the primary item requires confirmation")
	// ErrOrderPlaced is returned when mutating a session whose order was placed.
	ErrOrderPlaced = errors.New("order already placed for this session")
	// ErrEmptyCart is returned when placing an order without items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAddressRequired is returned when placing an order without an address.
	ErrAddressRequired = errors.New("delivery address is required")
)

// Session is the complete, serializable state of one shopper's checkout.
// Totals are not part of it; they are derived on every read.
type Session struct {
	ID            string            `json:"id"`
	PrimaryItemID string            `json:"primary_item_id,omitempty"`
	Cart          cart.Cart         `json:"cart"`
	Coupon        *coupon.Coupon    `json:"coupon,omitempty"`
	Schedule      delivery.Schedule `json:"schedule"`
	Address       address.State     `json:"address"`
	OrderID       string            `json:"order_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Store persists sessions.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// Update loads the session, applies fn and saves the result atomically.
	// When fn returns an error nothing is saved and the error is returned.
	Update(ctx context.Context, id string, fn func(s *Session) error) (*Session, error)
}
