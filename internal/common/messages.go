package common

import "github.com/shopspring/decimal"

type MessageType int

const (
	MessageAdd MessageType = iota
	MessageCancel
	MessageModify
	MessageTrade
	MessageSnapshot
)

func (t MessageType) String() string {
	switch t {
	case MessageAdd:
		return "ADD"
	case MessageCancel:
		return "CANCEL"
	case MessageModify:
		return "MODIFY"
	case MessageTrade:
		return "TRADE"
	case MessageSnapshot:
		return "SNAPSHOT"
	}
	return "UNKNOWN"
}

// OrderMessage is an add, cancel or modify from the venue's order feed.
type OrderMessage struct {
	Type     MessageType
	ID       int64
	IsSell   bool
	Quantity int64
	Price    decimal.Decimal
}

func (m OrderMessage) ToOrder() *Order {
	return NewOrder(m.ID, m.IsSell, m.Quantity, m.Price)
}

// TradeMessage is a print from the venue's trade feed.
type TradeMessage struct {
	Quantity int64
	Price    decimal.Decimal
}

func (m TradeMessage) ToTrade() Trade {
	return Trade{Quantity: m.Quantity, Price: m.Price}
}

// SnapshotMessage is a periodic L2 depth snapshot. Both sides arrive already
// sorted in their priority order.
type SnapshotMessage struct {
	BidLevels L2SnapshotSide
	AskLevels L2SnapshotSide
}
