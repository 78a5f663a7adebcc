package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type OrderEvent int

const (
	EventAdd OrderEvent = iota
	EventCancel
	EventExec
	EventModify
)

func (e OrderEvent) String() string {
	switch e {
	case EventAdd:
		return "ADD"
	case EventCancel:
		return "CANCEL"
	case EventExec:
		return "EXEC"
	case EventModify:
		return "MODIF"
	}
	return fmt.Sprintf("OrderEvent(%d)", int(e))
}

// OrderInfo is a normalized order event describing what the engine now
// believes happened. OrderID is SyntheticOrderID for inferred liquidity.
type OrderInfo struct {
	Event    OrderEvent
	OrderID  int64
	IsSell   bool
	Quantity int64
	Price    decimal.Decimal
}

func NewOrderInfo(event OrderEvent, id int64, isSell bool, quantity int64, price decimal.Decimal) OrderInfo {
	return OrderInfo{
		Event:    event,
		OrderID:  id,
		IsSell:   isSell,
		Quantity: quantity,
		Price:    price,
	}
}

// Equal compares the (event, order id, quantity, price) tuple. The side flag
// is deliberately excluded; both sides can report the same logical event.
func (i OrderInfo) Equal(rhs OrderInfo) bool {
	return i.Event == rhs.Event &&
		i.OrderID == rhs.OrderID &&
		i.Quantity == rhs.Quantity &&
		i.Price.Equal(rhs.Price)
}

func (i OrderInfo) String() string {
	return fmt.Sprintf("%s(%d, %d@%s)", i.Event, i.OrderID, i.Quantity, i.Price.StringFixed(2))
}

// MergeEvents appends src onto dst, preserving emission order.
func MergeEvents(dst []OrderInfo, src []OrderInfo) []OrderInfo {
	return append(dst, src...)
}
