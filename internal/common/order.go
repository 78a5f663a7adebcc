package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SyntheticOrderID marks events describing liquidity the engine inferred
// from a trade or snapshot before seeing the venue's order message.
const SyntheticOrderID int64 = -1

type Order struct {
	ID       int64           // Venue-assigned order id
	IsSell   bool            // Order side
	Quantity int64           // Original quantity
	Filled   int64           // Quantity filled so far
	Price    decimal.Decimal // Resting price
}

func NewOrder(id int64, isSell bool, quantity int64, price decimal.Decimal) *Order {
	return &Order{
		ID:       id,
		IsSell:   isSell,
		Quantity: quantity,
		Price:    price,
	}
}

// RemainingQuantity is the portion of the order still resting in the book.
func (o *Order) RemainingQuantity() int64 {
	return o.Quantity - o.Filled
}

func (o *Order) String() string {
	return fmt.Sprintf("[%d, %d@%s]", o.ID, o.Quantity, o.Price.StringFixed(2))
}
