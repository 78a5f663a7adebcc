package net

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"heimdall/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short for specified layout")
)

// Wire layout constants. All integers are big endian; prices travel as
// IEEE-754 float64 bits and are converted to decimals on decode.
const (
	headerLen        = 2                 // type
	orderMessageLen  = 2 + 8 + 1 + 8 + 8 // type + id + side + qty + price
	tradeMessageLen  = 2 + 8 + 8         // type + qty + price
	snapshotFixedLen = 2 + 2 + 2         // type + nbids + nasks
	levelLen         = 8 + 8             // price + qty
)

type wireType uint16

const (
	wireAdd wireType = iota
	wireCancel
	wireModify
	wireTrade
	wireSnapshot
)

// Message is any decoded inbound feed message.
type Message interface {
	MessageType() common.MessageType
}

type OrderFrame struct {
	Msg common.OrderMessage
}

func (f OrderFrame) MessageType() common.MessageType { return f.Msg.Type }

type TradeFrame struct {
	Msg common.TradeMessage
}

func (f TradeFrame) MessageType() common.MessageType { return common.MessageTrade }

type SnapshotFrame struct {
	Msg common.SnapshotMessage
}

func (f SnapshotFrame) MessageType() common.MessageType { return common.MessageSnapshot }

func priceFromWire(bits uint64) decimal.Decimal {
	return decimal.NewFromFloat(math.Float64frombits(bits))
}

func priceToWire(price decimal.Decimal) uint64 {
	f, _ := price.Float64()
	return math.Float64bits(f)
}

// ParseMessage decodes one framed feed message.
func ParseMessage(msg []byte) (Message, error) {
	if len(msg) < headerLen {
		return nil, ErrMessageTooShort
	}
	typeOf := wireType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]
	switch typeOf {
	case wireAdd, wireCancel, wireModify:
		return parseOrder(typeOf, body)
	case wireTrade:
		return parseTrade(body)
	case wireSnapshot:
		return parseSnapshot(body)
	default:
		return nil, ErrInvalidMessageType
	}
}

func orderType(t wireType) common.MessageType {
	switch t {
	case wireCancel:
		return common.MessageCancel
	case wireModify:
		return common.MessageModify
	default:
		return common.MessageAdd
	}
}

func parseOrder(typeOf wireType, msg []byte) (OrderFrame, error) {
	if len(msg) < orderMessageLen-headerLen {
		return OrderFrame{}, ErrMessageTooShort
	}
	return OrderFrame{Msg: common.OrderMessage{
		Type:     orderType(typeOf),
		ID:       int64(binary.BigEndian.Uint64(msg[0:8])),
		IsSell:   msg[8] == 1,
		Quantity: int64(binary.BigEndian.Uint64(msg[9:17])),
		Price:    priceFromWire(binary.BigEndian.Uint64(msg[17:25])),
	}}, nil
}

func parseTrade(msg []byte) (TradeFrame, error) {
	if len(msg) < tradeMessageLen-headerLen {
		return TradeFrame{}, ErrMessageTooShort
	}
	return TradeFrame{Msg: common.TradeMessage{
		Quantity: int64(binary.BigEndian.Uint64(msg[0:8])),
		Price:    priceFromWire(binary.BigEndian.Uint64(msg[8:16])),
	}}, nil
}

func parseSnapshot(msg []byte) (SnapshotFrame, error) {
	if len(msg) < snapshotFixedLen-headerLen {
		return SnapshotFrame{}, ErrMessageTooShort
	}
	nBids := int(binary.BigEndian.Uint16(msg[0:2]))
	nAsks := int(binary.BigEndian.Uint16(msg[2:4]))
	body := msg[4:]
	if len(body) < (nBids+nAsks)*levelLen {
		return SnapshotFrame{}, ErrMessageTooShort
	}
	parseSide := func(buf []byte, n int) common.L2SnapshotSide {
		side := make(common.L2SnapshotSide, 0, n)
		for i := 0; i < n; i++ {
			off := i * levelLen
			side = append(side, common.L2PriceLevel{
				Price:    priceFromWire(binary.BigEndian.Uint64(buf[off : off+8])),
				Quantity: int64(binary.BigEndian.Uint64(buf[off+8 : off+16])),
			})
		}
		return side
	}
	return SnapshotFrame{Msg: common.SnapshotMessage{
		BidLevels: parseSide(body, nBids),
		AskLevels: parseSide(body[nBids*levelLen:], nAsks),
	}}, nil
}

// EncodeOrderMessage serializes an order message for the wire. Used by feed
// producers and tests.
func EncodeOrderMessage(msg common.OrderMessage) []byte {
	buf := make([]byte, orderMessageLen)
	t := wireAdd
	switch msg.Type {
	case common.MessageCancel:
		t = wireCancel
	case common.MessageModify:
		t = wireModify
	}
	binary.BigEndian.PutUint16(buf[0:2], uint16(t))
	binary.BigEndian.PutUint64(buf[2:10], uint64(msg.ID))
	if msg.IsSell {
		buf[10] = 1
	}
	binary.BigEndian.PutUint64(buf[11:19], uint64(msg.Quantity))
	binary.BigEndian.PutUint64(buf[19:27], priceToWire(msg.Price))
	return buf
}

func EncodeTradeMessage(msg common.TradeMessage) []byte {
	buf := make([]byte, tradeMessageLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(wireTrade))
	binary.BigEndian.PutUint64(buf[2:10], uint64(msg.Quantity))
	binary.BigEndian.PutUint64(buf[10:18], priceToWire(msg.Price))
	return buf
}

func EncodeSnapshotMessage(msg common.SnapshotMessage) []byte {
	buf := make([]byte, snapshotFixedLen+(len(msg.BidLevels)+len(msg.AskLevels))*levelLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(wireSnapshot))
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(msg.BidLevels)))
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(msg.AskLevels)))
	off := snapshotFixedLen
	writeSide := func(side common.L2SnapshotSide) {
		for _, level := range side {
			binary.BigEndian.PutUint64(buf[off:off+8], priceToWire(level.Price))
			binary.BigEndian.PutUint64(buf[off+8:off+16], uint64(level.Quantity))
			off += levelLen
		}
	}
	writeSide(msg.BidLevels)
	writeSide(msg.AskLevels)
	return buf
}
