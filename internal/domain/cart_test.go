package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id, price string) CartItem {
	return CartItem{
		ProductID: id,
		Name:      "Product " + id,
		UnitPrice: decimal.RequireFromString(price),
		Currency:  "USD",
		VolumeMl:  750,
	}
}

func assertAggregates(t *testing.T, c *Cart) {
	t.Helper()
	items := 0
	price := decimal.Zero
	for _, l := range c.Lines {
		items += l.Quantity
		price = price.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	assert.Equal(t, items, c.TotalItems())
	assert.True(t, price.Equal(c.TotalPrice()), "want %s got %s", price, c.TotalPrice())
}

func TestCart_AddItem_Merges(t *testing.T) {
	c := NewCart("session-1")

	for i := 0; i < 3; i++ {
		require.NoError(t, c.AddItem(item("1", "45.99")))
		assertAggregates(t, c)
	}

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
}

func TestCart_AddItem_PreservesInsertionOrder(t *testing.T) {
	c := NewCart("session-1")
	require.NoError(t, c.AddItem(item("2", "65.99")))
	require.NoError(t, c.AddItem(item("1", "45.99")))
	require.NoError(t, c.AddItem(item("2", "65.99")))

	require.Len(t, c.Lines, 2)
	assert.Equal(t, "2", c.Lines[0].ProductID)
	assert.Equal(t, "1", c.Lines[1].ProductID)
	assert.Equal(t, 2, c.Lines[0].Quantity)
}

func TestCart_AddItem_CurrencyMismatch(t *testing.T) {
	c := NewCart("session-1")
	require.NoError(t, c.AddItem(item("1", "45.99")))

	other := item("2", "18000")
	other.Currency = "AMD"
	assert.ErrorIs(t, c.AddItem(other), ErrCurrencyMismatch)
	assert.Len(t, c.Lines, 1)
}

func TestCart_UpdateQuantity_ZeroAndNegativeRemove(t *testing.T) {
	for _, q := range []int{0, -5} {
		c := NewCart("session-1")
		require.NoError(t, c.AddItem(item("1", "45.99")))
		require.NoError(t, c.AddItem(item("2", "65.99")))

		c.UpdateQuantity("1", q)

		_, ok := c.Line("1")
		assert.False(t, ok, "quantity %d should remove the line", q)
		assert.Len(t, c.Lines, 1)
		assertAggregates(t, c)
	}
}

func TestCart_UpdateQuantity_SetsExactly(t *testing.T) {
	c := NewCart("session-1")
	require.NoError(t, c.AddItem(item("1", "45.99")))
	require.NoError(t, c.AddItem(item("1", "45.99")))

	c.UpdateQuantity("1", 25)

	line, ok := c.Line("1")
	require.True(t, ok)
	assert.Equal(t, 25, line.Quantity)
	assertAggregates(t, c)
}

func TestCart_UpdateQuantity_AbsentIsNoop(t *testing.T) {
	c := NewCart("session-1")
	c.UpdateQuantity("missing", 3)
	assert.True(t, c.IsEmpty())
}

func TestCart_RemoveItem_AbsentIsNoop(t *testing.T) {
	c := NewCart("session-1")
	require.NoError(t, c.AddItem(item("1", "45.99")))

	c.RemoveItem("missing")
	assert.Len(t, c.Lines, 1)

	c.RemoveItem("1")
	assert.True(t, c.IsEmpty())
	assertAggregates(t, c)
}

func TestCart_Clear(t *testing.T) {
	c := NewCart("session-1")
	require.NoError(t, c.AddItem(item("1", "45.99")))
	c.Clear()

	assert.Equal(t, 0, c.TotalItems())
	assert.True(t, c.TotalPrice().IsZero())
	assert.Equal(t, "", c.Currency())
}

func TestCart_TotalPrice_ExampleScenario(t *testing.T) {
	c := NewCart("session-1")
	require.NoError(t, c.AddItem(item("1", "45.99")))
	require.NoError(t, c.AddItem(item("1", "45.99")))
	require.NoError(t, c.AddItem(item("2", "65.99")))

	assert.Equal(t, 3, c.TotalItems())
	assert.Equal(t, "157.97", c.TotalPrice().String())
}

func TestCart_Snapshot_IsIsolated(t *testing.T) {
	c := NewCart("session-1")
	require.NoError(t, c.AddItem(item("1", "45.99")))

	snap := c.Snapshot()
	c.UpdateQuantity("1", 9)
	c.Clear()

	require.Len(t, snap, 1)
	assert.Equal(t, 1, snap[0].Quantity)
}

func TestCart_Normalize(t *testing.T) {
	c := &Cart{Key: "k", Lines: []CartLine{
		{CartItem: item("1", "1.00"), Quantity: 2},
		{CartItem: item("2", "1.00"), Quantity: 0},
		{CartItem: item("1", "1.00"), Quantity: 3},
		{CartItem: item("3", "1.00"), Quantity: -1},
	}}

	c.Normalize()

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 5, c.Lines[0].Quantity)
}
