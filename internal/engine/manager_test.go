package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heimdall/internal/book"
	"heimdall/internal/common"
)

func px(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// recordingHandler captures flushed events in dispatch order.
type recordingHandler struct {
	events []common.OrderInfo
}

func (h *recordingHandler) OnOrderAdd(info common.OrderInfo)       { h.events = append(h.events, info) }
func (h *recordingHandler) OnOrderCancel(info common.OrderInfo)    { h.events = append(h.events, info) }
func (h *recordingHandler) OnOrderExecution(info common.OrderInfo) { h.events = append(h.events, info) }
func (h *recordingHandler) OnOrderModify(info common.OrderInfo)    { h.events = append(h.events, info) }

func newTestManager() (*BookManager, *recordingHandler) {
	m := NewBookManager()
	h := &recordingHandler{}
	m.SetHandler(h)
	return m, h
}

func seedAskSide(m *BookManager) {
	for i, qp := range []struct {
		qty   int64
		price float64
	}{{40, 104}, {80, 103}, {60, 102}, {50, 101}, {60, 100}} {
		m.ProcessOrderMessage(common.OrderMessage{
			Type: common.MessageAdd, ID: int64(i + 1), IsSell: true, Quantity: qp.qty, Price: px(qp.price),
		})
	}
}

func TestBookManager_BuffersAndFlushes(t *testing.T) {
	m, h := newTestManager()
	seedAskSide(m)
	assert.Equal(t, 5, m.PendingEvents())
	assert.Empty(t, h.events)

	m.FlushEvents()
	require.Len(t, h.events, 5)
	assert.Equal(t, 0, m.PendingEvents())

	// Events arrive at the handler in emission order.
	assert.True(t, h.events[0].Equal(common.NewOrderInfo(common.EventAdd, 1, true, 40, px(104))))
	assert.True(t, h.events[4].Equal(common.NewOrderInfo(common.EventAdd, 5, true, 60, px(100))))

	// A second flush with nothing buffered delivers nothing.
	h.events = nil
	m.FlushEvents()
	assert.Empty(t, h.events)
}

func TestBookManager_AggressiveOrderEventOrder(t *testing.T) {
	m, h := newTestManager()
	seedAskSide(m)
	m.FlushEvents()
	h.events = nil

	// Aggressive buy 100@102 produces two executions, contiguous and ordered.
	m.ProcessOrderMessage(common.OrderMessage{
		Type: common.MessageAdd, ID: 6, IsSell: false, Quantity: 100, Price: px(102),
	})
	m.FlushEvents()
	require.Len(t, h.events, 2)
	assert.True(t, h.events[0].Equal(common.NewOrderInfo(common.EventExec, 5, true, 60, px(100))))
	assert.True(t, h.events[1].Equal(common.NewOrderInfo(common.EventExec, 4, true, 40, px(101))))
}

func TestBookManager_InvalidOrderType(t *testing.T) {
	m, h := newTestManager()
	seedAskSide(m)
	m.FlushEvents()
	h.events = nil
	before := m.GetL2Book().String()

	// A trade-typed message through the order entry point: logged, dropped.
	m.ProcessOrderMessage(common.OrderMessage{
		Type: common.MessageTrade, ID: 9, IsSell: true, Quantity: 10, Price: px(100),
	})
	assert.Equal(t, 0, m.PendingEvents())
	assert.Equal(t, before, m.GetL2Book().String())
}

func TestBookManager_TradeAndSnapshotRouting(t *testing.T) {
	m, h := newTestManager()
	seedAskSide(m)
	m.FlushEvents()
	h.events = nil

	// The bid side is empty, so the print also implies an unseen bid
	// aggressor: two synthetic events ahead of the ask-side execution.
	m.ProcessTradeMessage(common.TradeMessage{Quantity: 20, Price: px(100)})
	m.FlushEvents()
	require.Len(t, h.events, 3)
	assert.True(t, h.events[0].Equal(common.NewOrderInfo(common.EventAdd, common.SyntheticOrderID, false, 20, px(100))))
	assert.True(t, h.events[1].Equal(common.NewOrderInfo(common.EventExec, common.SyntheticOrderID, false, 20, px(100))))
	assert.True(t, h.events[2].Equal(common.NewOrderInfo(common.EventExec, 5, true, 20, px(100))))

	// The snapshot confirming that state is absorbed silently.
	h.events = nil
	m.ProcessSnapshotMessage(common.SnapshotMessage{
		AskLevels: common.L2SnapshotSide{
			{Price: px(100), Quantity: 40},
			{Price: px(101), Quantity: 50},
			{Price: px(102), Quantity: 60},
			{Price: px(103), Quantity: 80},
			{Price: px(104), Quantity: 40},
		},
	})
	m.FlushEvents()
	assert.Empty(t, h.events)
}

func TestBookManager_GetL2Book(t *testing.T) {
	m, _ := newTestManager()
	seedAskSide(m)

	l2 := m.GetL2Book()
	asks := l2.AskLevels()
	require.Len(t, asks, 5)
	assert.True(t, asks[0].Equal(common.L2PriceLevel{Price: px(100), Quantity: 60}))
	assert.Empty(t, l2.BidLevels())
}

// replayEvents applies flushed events to a book, checking that the event
// stream alone reproduces the engine's state transitions.
func replayEvents(b *book.Book, events []common.OrderInfo) {
	for _, e := range events {
		if e.OrderID == common.SyntheticOrderID {
			continue
		}
		side := b.Side(e.IsSell)
		switch e.Event {
		case common.EventAdd:
			side.AddOrder(common.NewOrder(e.OrderID, e.IsSell, e.Quantity, e.Price))
		case common.EventCancel:
			side.RemoveOrder(e.OrderID)
		case common.EventExec:
			if handler, ok := side.GetOrderHandler(e.OrderID); ok {
				if level, lok := side.GetL3Level(handler.Order.Price); lok {
					level.FillOrder(handler.Order, e.Quantity)
					if handler.Order.RemainingQuantity() == 0 {
						side.RemoveOrder(e.OrderID)
					}
				}
			}
		}
	}
}

func TestBookManager_EventRoundTrip(t *testing.T) {
	m, h := newTestManager()
	seedAskSide(m)
	m.FlushEvents()

	h.events = nil
	m.ProcessOrderMessage(common.OrderMessage{
		Type: common.MessageAdd, ID: 6, IsSell: false, Quantity: 100, Price: px(102),
	})
	m.ProcessTradeMessage(common.TradeMessage{Quantity: 10, Price: px(101)})
	m.FlushEvents()

	// Replaying the flushed events against the pre-state reproduces the
	// engine's post-state L2 view.
	replay := book.New()
	for i, qp := range []struct {
		qty   int64
		price float64
	}{{40, 104}, {80, 103}, {60, 102}, {50, 101}, {60, 100}} {
		replay.Side(true).AddOrder(common.NewOrder(int64(i+1), true, qp.qty, px(qp.price)))
	}
	replayEvents(replay, h.events)

	assert.Equal(t, m.GetL2Book().String(), replay.L2Book().String())
}
