package book

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"heimdall/internal/common"
)

func bidL2Less(a, b common.L2PriceLevel) bool { return a.Price.GreaterThan(b.Price) }
func askL2Less(a, b common.L2PriceLevel) bool { return a.Price.LessThan(b.Price) }

// L2Book is the pure aggregated depth view derived from the L3 book, each
// side kept in its priority order.
type L2Book struct {
	bids *btree.BTreeG[common.L2PriceLevel]
	asks *btree.BTreeG[common.L2PriceLevel]
}

func NewL2Book() *L2Book {
	return &L2Book{
		bids: btree.NewBTreeG(bidL2Less),
		asks: btree.NewBTreeG(askL2Less),
	}
}

func (b *L2Book) side(isSell bool) *btree.BTreeG[common.L2PriceLevel] {
	if isSell {
		return b.asks
	}
	return b.bids
}

func (b *L2Book) ExistLevel(isSell bool, price decimal.Decimal) bool {
	_, ok := b.side(isSell).Get(common.L2PriceLevel{Price: price})
	return ok
}

func (b *L2Book) GetL2Level(isSell bool, price decimal.Decimal) (common.L2PriceLevel, bool) {
	return b.side(isSell).Get(common.L2PriceLevel{Price: price})
}

func (b *L2Book) AddLevel(isSell bool, price decimal.Decimal, quantity int64) {
	if b.ExistLevel(isSell, price) {
		return
	}
	b.side(isSell).Set(common.L2PriceLevel{Price: price, Quantity: quantity})
}

func (b *L2Book) UpdateLevel(isSell bool, price decimal.Decimal, quantity int64) {
	if !b.ExistLevel(isSell, price) {
		return
	}
	b.side(isSell).Set(common.L2PriceLevel{Price: price, Quantity: quantity})
}

func (b *L2Book) RemoveLevel(isSell bool, price decimal.Decimal) {
	b.side(isSell).Delete(common.L2PriceLevel{Price: price})
}

// BidLevels returns the bid side best-first.
func (b *L2Book) BidLevels() common.L2SnapshotSide {
	return b.bids.Items()
}

// AskLevels returns the ask side best-first.
func (b *L2Book) AskLevels() common.L2SnapshotSide {
	return b.asks.Items()
}

// String renders asks worst-first above bids best-first, mirroring how a
// ladder is usually displayed.
func (b *L2Book) String() string {
	var sb strings.Builder
	asks := b.asks.Items()
	for i := len(asks) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "A %s\n", asks[i])
	}
	for _, level := range b.bids.Items() {
		fmt.Fprintf(&sb, "B %s\n", level)
	}
	return sb.String()
}
