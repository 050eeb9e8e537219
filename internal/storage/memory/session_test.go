package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bouquet-checkout/internal/domain/cart"
	"github.com/xenking/bouquet-checkout/internal/domain/checkout"
)

func newSession(id string) *checkout.Session {
	return &checkout.Session{
		ID: id,
		Cart: cart.Cart{Lines: []cart.Line{
			{ItemID: "bouquet", UnitPrice: decimal.RequireFromString("45.00"), Quantity: 1},
		}},
	}
}

func TestSessionStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(0)

	require.NoError(t, s.Create(ctx, newSession("a")))
	require.Error(t, s.Create(ctx, newSession("a")))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Cart.Quantity("bouquet"))

	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, checkout.ErrSessionNotFound)
}

func TestSessionStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(0)
	require.NoError(t, s.Create(ctx, newSession("a")))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	got.Cart.Lines[0].Quantity = 99

	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Cart.Quantity("bouquet"))
}

func TestSessionStore_Update(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(0)
	require.NoError(t, s.Create(ctx, newSession("a")))

	got, err := s.Update(ctx, "a", func(sess *checkout.Session) error {
		sess.Cart.Lines[0].Quantity = 3
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Cart.Quantity("bouquet"))

	boom := errors.New("boom")
	_, err = s.Update(ctx, "a", func(sess *checkout.Session) error {
		sess.Cart.Lines[0].Quantity = 7
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Cart.Quantity("bouquet"), "failed update must not be saved")

	_, err = s.Update(ctx, "missing", func(*checkout.Session) error { return nil })
	require.ErrorIs(t, err, checkout.ErrSessionNotFound)
}

func TestSessionStore_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(0)
	require.NoError(t, s.Create(ctx, newSession("a")))

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "a", func(sess *checkout.Session) error {
				sess.Cart.Lines[0].Quantity++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, n+1, got.Cart.Quantity("bouquet"))
}

func TestSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	s := NewSessionStore(time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Create(ctx, newSession("a")))
	require.NoError(t, s.Create(ctx, newSession("b")))

	now = now.Add(30 * time.Minute)
	_, err := s.Update(ctx, "b", func(*checkout.Session) error { return nil })
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	_, err = s.Get(ctx, "a")
	require.ErrorIs(t, err, checkout.ErrSessionNotFound)
	_, err = s.Get(ctx, "b")
	require.NoError(t, err, "update slides the expiry")

	now = now.Add(time.Hour)
	assert.Equal(t, 1, s.Sweep())
}
