package main

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/bouquet-checkout/db"
	"github.com/xenking/bouquet-checkout/internal/domain/catalog"
	"github.com/xenking/bouquet-checkout/internal/domain/coupon"
)

func TestDecodeProducts(t *testing.T) {
	t.Run("Embedded", func(t *testing.T) {
		products, err := decodeProducts(db.Products)
		require.NoError(t, err)
		require.NotEmpty(t, products)

		first := products[0]
		assert.Equal(t, "classic-rose", first.ID)
		assert.True(t, first.Price.Equal(decimal.RequireFromString("45.00")))
		assert.NotEmpty(t, first.Image.Thumbnail)

		seen := map[string]bool{}
		for _, p := range products {
			assert.False(t, seen[p.ID], "duplicate product %s", p.ID)
			seen[p.ID] = true
		}
	})
	t.Run("NumericPrice", func(t *testing.T) {
		products, err := decodeProducts([]byte(`[{"id":"a","name":"A","price":3.99,"extra":true}]`))
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "3.99", products[0].Price.StringFixed(2))
	})
	for name, input := range map[string]string{
		"MissingID":     `[{"name":"A","price":"1"}]`,
		"ZeroPrice":     `[{"id":"a","price":"0"}]`,
		"BadPrice":      `[{"id":"a","price":"abc"}]`,
		"NotAnArray":    `{"id":"a"}`,
		"WrongNameType": `[{"id":"a","name":1,"price":"1"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeProducts([]byte(input))
			require.Error(t, err)
		})
	}
}

type recordingRepo struct {
	coupons []coupon.Coupon
}

func (r *recordingRepo) Upsert(_ context.Context, c coupon.Coupon) error {
	r.coupons = append(r.coupons, c)
	return nil
}

type productRecorder struct {
	products []catalog.Product
}

func (r *productRecorder) Upsert(_ context.Context, p catalog.Product) error {
	r.products = append(r.products, p)
	return nil
}

func TestSeed(t *testing.T) {
	ctx := context.Background()

	products, err := decodeProducts(db.Products)
	require.NoError(t, err)
	pr := &productRecorder{}
	require.NoError(t, seedProducts(ctx, zap.NewNop(), pr, products))
	assert.Len(t, pr.products, len(products))

	cr := &recordingRepo{}
	require.NoError(t, seedCoupons(ctx, zap.NewNop(), cr))
	require.Len(t, cr.coupons, len(defaultCoupons()))
	for _, c := range cr.coupons {
		assert.True(t, c.Kind.Valid(), c.Code)
		assert.Equal(t, coupon.NormalizeCode(c.Code), c.Code)
	}
}
