package cart

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceMap map[string]decimal.Decimal

func (m priceMap) UnitPrice(id string) (decimal.Decimal, bool) {
	p, ok := m[id]
	return p, ok
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

var prices = priceMap{
	"bouquet":  d("45.00"),
	"chocobox": d("12.50"),
	"balloon":  d("3.99"),
}

func TestCart_AddItem(t *testing.T) {
	var c Cart

	require.True(t, c.AddItem(prices, "bouquet"))
	require.True(t, c.AddItem(prices, "bouquet"))
	require.True(t, c.AddItem(prices, "balloon"))

	require.Len(t, c.Lines, 2)
	assert.Equal(t, 2, c.Quantity("bouquet"))
	assert.Equal(t, 1, c.Quantity("balloon"))
	assert.Equal(t, "bouquet", c.Lines[0].ItemID, "insertion order kept")
}

func TestCart_AddUnknownItemIsNoop(t *testing.T) {
	var c Cart
	c.AddItem(prices, "bouquet")

	assert.False(t, c.AddItem(prices, "ghost"))
	assert.Len(t, c.Lines, 1)
	assert.True(t, d("45.00").Equal(c.Subtotal()))
}

func TestCart_SetQuantity(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		n        int
		changed  bool
		wantQty  int
		wantLen  int
		subtotal string
	}{
		{name: "raise existing", id: "bouquet", n: 3, changed: true, wantQty: 3, wantLen: 2, subtotal: "147.50"},
		{name: "zero removes", id: "bouquet", n: 0, changed: true, wantQty: 0, wantLen: 1, subtotal: "12.50"},
		{name: "negative removes", id: "chocobox", n: -2, changed: true, wantQty: 0, wantLen: 1, subtotal: "45.00"},
		{name: "insert known absent", id: "balloon", n: 4, changed: true, wantQty: 4, wantLen: 3, subtotal: "73.46"},
		{name: "unknown ignored", id: "ghost", n: 2, changed: false, wantQty: 0, wantLen: 2, subtotal: "57.50"},
		{name: "remove absent is noop", id: "balloon", n: 0, changed: false, wantQty: 0, wantLen: 2, subtotal: "57.50"},
		{name: "no upper bound", id: "chocobox", n: 1000, changed: true, wantQty: 1000, wantLen: 2, subtotal: "12545.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Cart
			c.AddItem(prices, "bouquet")
			c.AddItem(prices, "chocobox")

			assert.Equal(t, tt.changed, c.SetQuantity(prices, tt.id, tt.n))
			assert.Equal(t, tt.wantQty, c.Quantity(tt.id))
			assert.Len(t, c.Lines, tt.wantLen)
			assert.True(t, d(tt.subtotal).Equal(c.Subtotal()),
				"expected subtotal %s, got %s", tt.subtotal, c.Subtotal())
		})
	}
}

func TestCart_EmptySubtotal(t *testing.T) {
	var c Cart
	assert.True(t, c.IsEmpty())
	assert.True(t, decimal.Zero.Equal(c.Subtotal()))
}

func TestCart_SubtotalProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	ids := []string{"bouquet", "chocobox", "balloon"}

	properties.Property("subtotal equals sum of price times quantity", prop.ForAll(
		func(qtys []int) bool {
			var c Cart
			want := decimal.Zero
			for i, q := range qtys {
				id := ids[i%len(ids)]
				c.SetQuantity(prices, id, q)
			}
			for _, id := range ids {
				want = want.Add(prices[id].Mul(decimal.NewFromInt(int64(c.Quantity(id)))))
			}
			return c.Subtotal().Equal(want)
		},
		gen.SliceOf(gen.IntRange(-3, 50)),
	))

	properties.TestingRun(t)
}
