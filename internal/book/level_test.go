package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heimdall/internal/common"
)

func px(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestL3PriceLevel_AddOrder(t *testing.T) {
	level := newL3PriceLevel(px(100))

	first := common.NewOrder(1, true, 40, px(100))
	second := common.NewOrder(2, true, 20, px(100))
	level.AddOrder(first)
	level.AddOrder(second)

	assert.Equal(t, int64(60), level.Quantity)
	assert.Equal(t, 2, level.NumOrders)
	assert.Same(t, first, level.Orders.Front().Value.(*common.Order))
	assert.Same(t, second, level.Orders.Back().Value.(*common.Order))
}

func TestL3PriceLevel_RemoveOrder(t *testing.T) {
	level := newL3PriceLevel(px(100))
	order := common.NewOrder(1, true, 40, px(100))
	elem := level.AddOrder(order)
	level.AddOrder(common.NewOrder(2, true, 20, px(100)))

	level.RemoveOrder(&OrderHandler{Order: order, elem: elem})

	assert.Equal(t, int64(20), level.Quantity)
	assert.Equal(t, 1, level.NumOrders)
	assert.Equal(t, int64(2), level.Orders.Front().Value.(*common.Order).ID)
}

func TestL3PriceLevel_ModifyOrder(t *testing.T) {
	level := newL3PriceLevel(px(100))
	order := common.NewOrder(1, true, 40, px(100))
	level.AddOrder(order)

	// Quantity-only modification updates the aggregate by the delta.
	level.ModifyOrder(order, 70, px(100))
	assert.Equal(t, int64(70), level.Quantity)
	assert.Equal(t, int64(70), order.Quantity)

	// A price change is not this level's job.
	level.ModifyOrder(order, 10, px(101))
	assert.Equal(t, int64(70), level.Quantity)
	assert.Equal(t, int64(70), order.Quantity)
}

func TestL3PriceLevel_FillOrder(t *testing.T) {
	level := newL3PriceLevel(px(100))
	order := common.NewOrder(1, true, 40, px(100))
	level.AddOrder(order)

	level.FillOrder(order, 15)
	assert.Equal(t, int64(25), level.Quantity)
	assert.Equal(t, int64(15), order.Filled)
	assert.Equal(t, int64(25), order.RemainingQuantity())

	// The order stays queued even when exhausted; removal is the caller's.
	level.FillOrder(order, 25)
	assert.Equal(t, int64(0), level.Quantity)
	assert.Equal(t, 1, level.NumOrders)
	assert.Equal(t, int64(0), order.RemainingQuantity())
}

func TestL3PriceLevel_L2(t *testing.T) {
	level := newL3PriceLevel(px(101.5))
	level.AddOrder(common.NewOrder(1, false, 30, px(101.5)))

	l2 := level.L2()
	require.True(t, l2.Equal(common.L2PriceLevel{Price: px(101.5), Quantity: 30}))
}
