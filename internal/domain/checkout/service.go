package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/bouquet-checkout/internal/domain/address"
	"github.com/xenking/bouquet-checkout/internal/domain/catalog"
	"github.com/xenking/bouquet-checkout/internal/domain/coupon"
	"github.com/xenking/bouquet-checkout/internal/domain/delivery"
	"github.com/xenking/bouquet-checkout/internal/domain/order"
	"github.com/xenking/bouquet-checkout/internal/domain/pricing"
)

// Config holds the shop's pricing and delivery rules.
type Config struct {
	DeliveryFee   decimal.Decimal
	Location      *time.Location
	SameDayCutoff time.Duration
}

// Service implements checkout session operations.
type Service struct {
	sessions Store
	prices   catalog.PriceLookup
	coupons  *coupon.Engine
	resolver *address.Resolver
	orders   order.Repository
	metrics  *Metrics
	lg       *zap.Logger

	cfg Config
	now func() time.Time
}

// NewService creates a checkout Service with the required dependencies.
func NewService(
	cfg Config,
	sessions Store,
	prices catalog.PriceLookup,
	coupons *coupon.Engine,
	resolver *address.Resolver,
	orders order.Repository,
	metrics *Metrics,
	lg *zap.Logger,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.SameDayCutoff == 0 {
		cfg.SameDayCutoff = delivery.DefaultCutoff
	}
	return &Service{
		sessions: sessions,
		prices:   prices,
		coupons:  coupons,
		resolver: resolver,
		orders:   orders,
		metrics:  metrics,
		lg:       lg,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *Service) localNow() time.Time {
	return s.now().In(s.cfg.Location)
}

// Quote derives the current totals of a session.
func (s *Service) Quote(sess *Session) pricing.Quote {
	return pricing.Calculate(&sess.Cart, sess.Coupon, s.cfg.DeliveryFee)
}

// Create starts a new session. When primaryItemID names a catalog item it is
// added to the cart as the session's primary bundled item.
func (s *Service) Create(ctx context.Context, primaryItemID string) (*Session, error) {
	now := s.localNow()
	sess := &Session{
		ID:        uuid.New().String(),
		Schedule:  delivery.NewSchedule(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if primaryItemID != "" && sess.Cart.AddItem(s.prices, primaryItemID) {
		sess.PrimaryItemID = primaryItemID
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "create session")
	}
	return sess, nil
}

// Get returns the session with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.sessions.Get(ctx, id)
}

// mutate applies fn to an open session.
func (s *Service) mutate(ctx context.Context, id string, fn func(sess *Session) error) (*Session, error) {
	return s.sessions.Update(ctx, id, func(sess *Session) error {
		if sess.OrderID != "" {
			return ErrOrderPlaced
		}
		if err := fn(sess); err != nil {
			return err
		}
		sess.UpdatedAt = s.localNow()
		return nil
	})
}

// AddItem adds one unit of itemID. Unknown items leave the cart unchanged.
func (s *Service) AddItem(ctx context.Context, id, itemID string) (*Session, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		sess.Cart.AddItem(s.prices, itemID)
		return nil
	})
}

// SetQuantity sets the quantity of itemID; n <= 0 removes the line. Removing
// the primary item requires confirmed.
func (s *Service) SetQuantity(ctx context.Context, id, itemID string, n int, confirmed bool) (*Session, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if n <= 0 && itemID == sess.PrimaryItemID && !confirmed {
			return ErrConfirmationRequired
		}
		sess.Cart.SetQuantity(s.prices, itemID, n)
		return nil
	})
}

// ApplyCoupon validates code against the current subtotal and makes it the
// session's only coupon. A rejected code leaves the previous coupon in place.
func (s *Service) ApplyCoupon(ctx context.Context, id, code string) (*Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c, _, err := s.coupons.Validate(ctx, code, sess.Cart.Subtotal())
	if err != nil {
		s.metrics.couponRejected(ctx)
		s.lg.Debug("Coupon rejected",
			zap.String("session", id),
			zap.String("code", code),
			zap.Error(err),
		)
		return nil, err
	}

	return s.mutate(ctx, id, func(sess *Session) error {
		sess.Coupon = c
		return nil
	})
}

// RemoveCoupon clears the applied coupon.
func (s *Service) RemoveCoupon(ctx context.Context, id string) (*Session, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		sess.Coupon = nil
		return nil
	})
}

// NextMonth advances the displayed delivery month.
func (s *Service) NextMonth(ctx context.Context, id string) (*Session, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		sess.Schedule.NextMonth()
		return nil
	})
}

// PrevMonth moves the displayed delivery month back.
func (s *Service) PrevMonth(ctx context.Context, id string) (*Session, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		sess.Schedule.PrevMonth()
		return nil
	})
}

// SelectDate selects a day of the displayed month.
func (s *Service) SelectDate(ctx context.Context, id string, day int) (*Session, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		return sess.Schedule.SelectDate(day)
	})
}

// SelectSlot selects the delivery slot.
func (s *Service) SelectSlot(ctx context.Context, id string, slot delivery.Slot) (*Session, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		return sess.Schedule.SelectSlot(slot)
	})
}

// ToggleSameDay flips the same-day delivery flag.
func (s *Service) ToggleSameDay(ctx context.Context, id string) (*Session, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		sess.Schedule.ToggleSameDay()
		return nil
	})
}

// SetAddress replaces the address with user-typed text.
func (s *Service) SetAddress(ctx context.Context, id, text string) (*Session, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		sess.Address = address.State{Text: strings.TrimSpace(text)}
		return nil
	})
}

// UseCurrentLocation resolves the device position into the session address.
//
// The address is overwritten on every attempt. When the location cannot be
// obtained the address is cleared and both the updated session and the
// *address.LocationError are returned. A superseded attempt changes nothing
// and returns address.ErrSuperseded.
func (s *Service) UseCurrentLocation(ctx context.Context, id string, loc address.Locator) (*Session, error) {
	if _, err := s.sessions.Get(ctx, id); err != nil {
		return nil, err
	}

	state, locErr := s.resolver.Resolve(ctx, id, loc)
	if errors.Is(locErr, address.ErrSuperseded) {
		return nil, locErr
	}
	if locErr != nil {
		reason := string(address.CodeUnavailable)
		var le *address.LocationError
		if errors.As(locErr, &le) {
			reason = string(le.Code)
		}
		s.metrics.locationFailed(ctx, reason)
	}

	sess, err := s.mutate(ctx, id, func(sess *Session) error {
		sess.Address = state
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, locErr
}

// PlaceOrder confirms the session and persists its order. The coupon is
// revalidated and redeemed at this point; the delivery schedule is checked
// against the clock.
func (s *Service) PlaceOrder(ctx context.Context, id string) (*order.Order, error) {
	now := s.localNow()
	orderID := uuid.New().String()

	// Claim the session so concurrent confirmations cannot both succeed.
	sess, err := s.mutate(ctx, id, func(sess *Session) error {
		if sess.Cart.IsEmpty() {
			return ErrEmptyCart
		}
		if sess.Address.Text == "" {
			return ErrAddressRequired
		}
		if err := sess.Schedule.Confirm(now, s.cfg.SameDayCutoff); err != nil {
			return err
		}
		sess.OrderID = orderID
		return nil
	})
	if err != nil {
		return nil, err
	}

	o, err := s.placeOrder(ctx, sess, orderID, now)
	if err != nil {
		if _, releaseErr := s.sessions.Update(ctx, id, func(sess *Session) error {
			if sess.OrderID == orderID {
				sess.OrderID = ""
			}
			return nil
		}); releaseErr != nil {
			s.lg.Error("Release session claim", zap.String("session", id), zap.Error(releaseErr))
		}
		return nil, err
	}

	s.metrics.orderPlaced(ctx, o.Total.InexactFloat64(), o.CouponCode != "")
	s.lg.Info("Order placed",
		zap.String("order", o.ID),
		zap.String("session", id),
		zap.Stringer("total", o.Total),
	)
	return o, nil
}

func (s *Service) placeOrder(ctx context.Context, sess *Session, orderID string, now time.Time) (*order.Order, error) {
	subtotal := sess.Cart.Subtotal()

	discount := decimal.Zero
	couponCode := ""
	if sess.Coupon != nil {
		d, err := s.coupons.Redeem(ctx, sess.Coupon.Code, subtotal)
		if err != nil {
			if errors.Is(err, coupon.ErrInvalidCoupon) {
				s.metrics.couponRejected(ctx)
			}
			return nil, errors.Wrap(err, "redeem coupon")
		}
		discount = d.Amount
		couponCode = sess.Coupon.Code
	}

	items := make([]order.Item, len(sess.Cart.Lines))
	for i, l := range sess.Cart.Lines {
		items[i] = order.Item{ProductID: l.ItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}

	o := &order.Order{
		ID:          orderID,
		SessionID:   sess.ID,
		Items:       items,
		Subtotal:    subtotal.Round(2),
		DeliveryFee: s.cfg.DeliveryFee,
		Discount:    discount,
		Total:       pricing.ComputeTotal(subtotal, s.cfg.DeliveryFee, discount),
		CouponCode:  couponCode,
		Delivery: order.Delivery{
			Date:    sess.Schedule.Date,
			Slot:    sess.Schedule.Slot,
			SameDay: sess.Schedule.SameDay,
			Address: sess.Address.Text,
		},
		CreatedAt: now,
	}
	if p := sess.Address.Position; p != nil {
		o.Delivery.Lat, o.Delivery.Lon = &p.Lat, &p.Lon
	}

	if err := s.orders.Create(ctx, o); err != nil {
		if couponCode != "" {
			if releaseErr := s.coupons.Release(ctx, couponCode); releaseErr != nil {
				s.lg.Error("Release coupon use",
					zap.String("coupon", couponCode),
					zap.String("order", orderID),
					zap.Error(releaseErr),
				)
			}
		}
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}
