package book

import (
	"heimdall/internal/common"
)

// Book is the two-sided reconciled L3 order book. It routes each inbound
// message to the side(s) it concerns and coordinates cross-side interactions
// so the book stays uncrossed.
type Book struct {
	// sides[0] is the bid side, sides[1] the ask side.
	sides [2]*Side
}

func New() *Book {
	return &Book{
		sides: [2]*Side{NewSide(false), NewSide(true)},
	}
}

func sideIndex(isSell bool) int {
	if isSell {
		return 1
	}
	return 0
}

// Side returns the requested book side.
func (b *Book) Side(isSell bool) *Side {
	return b.sides[sideIndex(isSell)]
}

func (b *Book) ExistOrder(id int64) bool {
	return b.sides[0].ExistOrder(id) || b.sides[1].ExistOrder(id)
}

func (b *Book) GetOrderHandler(id int64) (*OrderHandler, bool) {
	if h, ok := b.sides[0].GetOrderHandler(id); ok {
		return h, true
	}
	return b.sides[1].GetOrderHandler(id)
}

// ProcessOrderAddMessage handles a new order. Quantity predicted by earlier
// trades is absorbed first; if the remainder crosses the opposite side the
// book is uncrossed there, with the resulting fills registered as expected
// trade prints on this side; whatever still remains rests in the book.
func (b *Book) ProcessOrderAddMessage(msg common.OrderMessage) []common.OrderInfo {
	var events []common.OrderInfo
	if b.ExistOrder(msg.ID) {
		return events
	}
	order := msg.ToOrder()
	same, opposite := b.Side(msg.IsSell), b.Side(!msg.IsSell)

	order.Filled += same.MatchPendingLiqAdd(msg.Quantity, msg.Price)
	if order.RemainingQuantity() == 0 {
		return events
	}
	if opposite.BookCrossedWithPrice(msg.Price) {
		uncross := opposite.ProcessCrossedOrder(order)
		same.AddPendingLiqRemoveQty(uncross)
		events = common.MergeEvents(events, uncross)
	}
	if order.RemainingQuantity() == 0 {
		return events
	}
	same.AddOrder(order)
	events = append(events, common.NewOrderInfo(common.EventAdd, msg.ID, msg.IsSell, order.RemainingQuantity(), order.Price))
	return events
}

func (b *Book) ProcessOrderCancelMessage(msg common.OrderMessage) []common.OrderInfo {
	return b.Side(msg.IsSell).ProcessOrderCancel(msg.ID, msg.Quantity, msg.Price)
}

// ProcessOrderModifyMessage always reports the MODIF, even for unknown ids.
// A known order is re-submitted: its current remaining quantity is cancelled
// at the new price and the message quantity re-added there, treating the
// message quantity as the new remaining quantity. The internal cancel and
// add do not emit events of their own.
func (b *Book) ProcessOrderModifyMessage(msg common.OrderMessage) []common.OrderInfo {
	events := []common.OrderInfo{
		common.NewOrderInfo(common.EventModify, msg.ID, msg.IsSell, msg.Quantity, msg.Price),
	}
	handler, ok := b.GetOrderHandler(msg.ID)
	if !ok {
		return events
	}
	b.ProcessOrderCancelMessage(common.OrderMessage{
		Type:     common.MessageCancel,
		ID:       msg.ID,
		IsSell:   msg.IsSell,
		Quantity: handler.Order.RemainingQuantity(),
		Price:    msg.Price,
	})
	b.ProcessOrderAddMessage(common.OrderMessage{
		Type:     common.MessageAdd,
		ID:       msg.ID,
		IsSell:   msg.IsSell,
		Quantity: msg.Quantity,
		Price:    msg.Price,
	})
	return events
}

// ProcessTradeMessage routes the print to both sides; only the side whose
// book the trade price can reach does meaningful work.
func (b *Book) ProcessTradeMessage(msg common.TradeMessage) []common.OrderInfo {
	events := b.sides[0].ProcessTrade(msg.ToTrade())
	return common.MergeEvents(events, b.sides[1].ProcessTrade(msg.ToTrade()))
}

func (b *Book) ProcessSnapshotMessage(msg common.SnapshotMessage) []common.OrderInfo {
	events := b.sides[0].ProcessL2Snapshot(msg.BidLevels)
	return common.MergeEvents(events, b.sides[1].ProcessL2Snapshot(msg.AskLevels))
}

// L2Book materializes the aggregated depth view of both sides.
func (b *Book) L2Book() *L2Book {
	l2 := NewL2Book()
	b.sides[0].levels.Scan(func(level *L3PriceLevel) bool {
		l2.AddLevel(false, level.Price, level.Quantity)
		return true
	})
	b.sides[1].levels.Scan(func(level *L3PriceLevel) bool {
		l2.AddLevel(true, level.Price, level.Quantity)
		return true
	})
	return l2
}
