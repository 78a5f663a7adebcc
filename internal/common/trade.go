package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Trade is a liquidity-removing print reported by the venue. It carries no
// order id; attribution to resting orders is the engine's job.
type Trade struct {
	Quantity int64
	Price    decimal.Decimal
}

func (t Trade) String() string {
	return fmt.Sprintf("%d@%s", t.Quantity, t.Price.StringFixed(2))
}
