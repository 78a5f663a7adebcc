package book

import (
	"container/list"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"heimdall/internal/common"
)

// OrderHandler pairs an order with its position in the level's FIFO queue,
// giving O(1) removal without invalidating other positions.
type OrderHandler struct {
	Order *common.Order
	elem  *list.Element
}

// L3PriceLevel is the per-order view of one price: a FIFO queue in arrival
// order plus the aggregates derived from it.
type L3PriceLevel struct {
	Price     decimal.Decimal
	Quantity  int64 // sum of remaining quantity over the queue
	NumOrders int
	Orders    *list.List // of *common.Order, front is oldest
}

func newL3PriceLevel(price decimal.Decimal) *L3PriceLevel {
	return &L3PriceLevel{
		Price:  price,
		Orders: list.New(),
	}
}

// AddOrder appends to the back of the queue. The side checks price and
// duplicate ids before calling.
func (l *L3PriceLevel) AddOrder(order *common.Order) *list.Element {
	l.Quantity += order.RemainingQuantity()
	l.NumOrders++
	return l.Orders.PushBack(order)
}

// RemoveOrder erases the order at its recorded queue position.
func (l *L3PriceLevel) RemoveOrder(handler *OrderHandler) {
	l.Orders.Remove(handler.elem)
	l.Quantity -= handler.Order.RemainingQuantity()
	l.NumOrders--
}

// ModifyOrder changes the order's original quantity in place. Price changes
// are handled at the side level as remove-then-add.
func (l *L3PriceLevel) ModifyOrder(order *common.Order, newQuantity int64, newPrice decimal.Decimal) {
	if !newPrice.Equal(order.Price) {
		return
	}
	l.Quantity += newQuantity - order.Quantity
	order.Quantity = newQuantity
}

// FillOrder advances the order's filled quantity. The order stays queued even
// when fully filled; the caller removes exhausted orders.
func (l *L3PriceLevel) FillOrder(order *common.Order, qty int64) {
	if qty > order.RemainingQuantity() {
		qty = order.RemainingQuantity()
	}
	order.Filled += qty
	l.Quantity -= qty
}

// L2 projects the level down to its aggregated form.
func (l *L3PriceLevel) L2() common.L2PriceLevel {
	return common.L2PriceLevel{Price: l.Price, Quantity: l.Quantity}
}

func (l *L3PriceLevel) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "L3: %d@%s (", l.Quantity, l.Price.StringFixed(2))
	for e := l.Orders.Front(); e != nil; e = e.Next() {
		sb.WriteString(e.Value.(*common.Order).String())
	}
	sb.WriteString(")")
	return sb.String()
}
