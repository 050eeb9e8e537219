package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	coupon        *Coupon
	err           error
	incrementErr  error
	decrementErr  error
	lookupCode    string
	incrementCode string
	decrementCode string
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*Coupon, error) {
	m.lookupCode = code
	return m.coupon, m.err
}

func (m *mockCouponRepo) IncrementUses(_ context.Context, code string) error {
	m.incrementCode = code
	return m.incrementErr
}

func (m *mockCouponRepo) DecrementUses(_ context.Context, code string) error {
	m.decrementCode = code
	return m.decrementErr
}

func TestEngine_Validate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name       string
		repo       *mockCouponRepo
		code       string
		subtotal   string
		wantAmount string
		wantErr    error
	}{
		{
			name:       "valid code returns discount",
			repo:       &mockCouponRepo{coupon: &Coupon{Code: "SWEET10", Kind: KindPercentage, Value: d("10")}},
			code:       "SWEET10",
			subtotal:   "45",
			wantAmount: "4.5",
		},
		{
			name:     "unknown code",
			repo:     &mockCouponRepo{err: ErrInvalidCoupon},
			code:     "BOGUS",
			subtotal: "45",
			wantErr:  ErrInvalidCoupon,
		},
		{
			name:     "blank code",
			repo:     &mockCouponRepo{},
			code:     "   ",
			subtotal: "45",
			wantErr:  ErrInvalidCoupon,
		},
		{
			name:     "below minimum purchase",
			repo:     &mockCouponRepo{coupon: &Coupon{Code: "MIN50", Kind: KindFixed, Value: d("5"), MinPurchase: d("50")}},
			code:     "MIN50",
			subtotal: "45",
			wantErr:  ErrInvalidCoupon,
		},
		{
			name:     "expired",
			repo:     &mockCouponRepo{coupon: &Coupon{Code: "OLD", Kind: KindFixed, Value: d("5"), ValidUntil: &pastTime}},
			code:     "OLD",
			subtotal: "45",
			wantErr:  ErrCouponExpired,
		},
		{
			name:     "not yet valid",
			repo:     &mockCouponRepo{coupon: &Coupon{Code: "SOON", Kind: KindFixed, Value: d("5"), ValidFrom: &futureTime}},
			code:     "SOON",
			subtotal: "45",
			wantErr:  ErrCouponExpired,
		},
		{
			name:     "usage exhausted",
			repo:     &mockCouponRepo{coupon: &Coupon{Code: "ONCE", Kind: KindFixed, Value: d("5"), MaxUses: 1, Uses: 1}},
			code:     "ONCE",
			subtotal: "45",
			wantErr:  ErrCouponUsageLimitReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.repo)
			e.now = func() time.Time { return fixedNow }

			_, got, err := e.Validate(context.Background(), tt.code, d(tt.subtotal))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, d(tt.wantAmount).Equal(got.Amount),
				"expected amount %s, got %s", tt.wantAmount, got.Amount)
		})
	}
}

func TestEngine_LookupNormalizesCode(t *testing.T) {
	repo := &mockCouponRepo{coupon: &Coupon{Code: "SWEET10", Kind: KindPercentage, Value: d("10")}}
	e := NewEngine(repo)

	_, err := e.Lookup(context.Background(), "  sweet10 ")
	require.NoError(t, err)
	assert.Equal(t, "SWEET10", repo.lookupCode)
}

func TestEngine_LookupRepositoryError(t *testing.T) {
	e := NewEngine(&mockCouponRepo{err: errors.New("connection refused")})

	_, err := e.Lookup(context.Background(), "SWEET10")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCoupon)
	assert.Contains(t, err.Error(), "lookup coupon")
}

func TestEngine_Redeem(t *testing.T) {
	t.Run("increments uses", func(t *testing.T) {
		repo := &mockCouponRepo{coupon: &Coupon{Code: "FLAT5", Kind: KindFixed, Value: d("5")}}
		e := NewEngine(repo)

		got, err := e.Redeem(context.Background(), "flat5", d("20"))
		require.NoError(t, err)
		assert.True(t, d("5").Equal(got.Amount))
		assert.Equal(t, "FLAT5", repo.incrementCode)
	})

	t.Run("ineligible does not increment", func(t *testing.T) {
		repo := &mockCouponRepo{coupon: &Coupon{Code: "MIN50", Kind: KindFixed, Value: d("5"), MinPurchase: d("50")}}
		e := NewEngine(repo)

		_, err := e.Redeem(context.Background(), "MIN50", decimal.NewFromInt(10))
		require.ErrorIs(t, err, ErrInvalidCoupon)
		assert.Empty(t, repo.incrementCode)
	})

	t.Run("increment failure", func(t *testing.T) {
		repo := &mockCouponRepo{
			coupon:       &Coupon{Code: "FLAT5", Kind: KindFixed, Value: d("5")},
			incrementErr: errors.New("db write failed"),
		}
		e := NewEngine(repo)

		_, err := e.Redeem(context.Background(), "FLAT5", d("20"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "increment coupon uses")
	})
}

func TestEngine_Release(t *testing.T) {
	t.Run("decrements normalized code", func(t *testing.T) {
		repo := &mockCouponRepo{}
		e := NewEngine(repo)

		require.NoError(t, e.Release(context.Background(), " flat5 "))
		assert.Equal(t, "FLAT5", repo.decrementCode)
	})

	t.Run("decrement failure", func(t *testing.T) {
		repo := &mockCouponRepo{decrementErr: errors.New("db write failed")}
		e := NewEngine(repo)

		err := e.Release(context.Background(), "FLAT5")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decrement coupon uses")
	})
}
