package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records checkout business metrics.
type Metrics struct {
	ordersPlaced     metric.Int64Counter
	orderTotal       metric.Float64Histogram
	couponsRejected  metric.Int64Counter
	locationFailures metric.Int64Counter
}

// NewMetrics registers the checkout instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("github.com/xenking/bouquet-checkout/internal/domain/checkout")

	var (
		m   Metrics
		err error
	)
	if m.ordersPlaced, err = meter.Int64Counter("checkout.orders.placed",
		metric.WithDescription("Orders placed"),
	); err != nil {
		return nil, errors.Wrap(err, "orders placed counter")
	}
	if m.orderTotal, err = meter.Float64Histogram("checkout.orders.total",
		metric.WithDescription("Order totals"),
		metric.WithUnit("{USD}"),
	); err != nil {
		return nil, errors.Wrap(err, "order total histogram")
	}
	if m.couponsRejected, err = meter.Int64Counter("checkout.coupons.rejected",
		metric.WithDescription("Coupon codes rejected"),
	); err != nil {
		return nil, errors.Wrap(err, "coupons rejected counter")
	}
	if m.locationFailures, err = meter.Int64Counter("checkout.location.failures",
		metric.WithDescription("Failed current-location requests"),
	); err != nil {
		return nil, errors.Wrap(err, "location failures counter")
	}
	return &m, nil
}

func (m *Metrics) orderPlaced(ctx context.Context, total float64, withCoupon bool) {
	attrs := metric.WithAttributes(attribute.Bool("coupon", withCoupon))
	m.ordersPlaced.Add(ctx, 1, attrs)
	m.orderTotal.Record(ctx, total, attrs)
}

func (m *Metrics) couponRejected(ctx context.Context) {
	m.couponsRejected.Add(ctx, 1)
}

func (m *Metrics) locationFailed(ctx context.Context, reason string) {
	m.locationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
