package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// L2PriceLevel is one aggregated depth entry: total resting quantity at a
// price, with no per-order detail.
type L2PriceLevel struct {
	Price    decimal.Decimal
	Quantity int64
}

func (l L2PriceLevel) Equal(rhs L2PriceLevel) bool {
	return l.Quantity == rhs.Quantity && l.Price.Equal(rhs.Price)
}

func (l L2PriceLevel) String() string {
	return fmt.Sprintf("L2: %d@%s", l.Quantity, l.Price.StringFixed(2))
}

// L2SnapshotSide is one side of a depth snapshot, sorted in the side's
// priority order (bids descending, asks ascending).
type L2SnapshotSide = []L2PriceLevel

// L2SideEqual reports element-wise equality of two snapshot sides.
func L2SideEqual(a, b L2SnapshotSide) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
