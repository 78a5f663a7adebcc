package engine

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"heimdall/internal/book"
	"heimdall/internal/common"
	"heimdall/internal/metrics"
)

// EventHandler receives the engine's normalized order events when the
// manager flushes its buffer.
type EventHandler interface {
	OnOrderAdd(info common.OrderInfo)
	OnOrderCancel(info common.OrderInfo)
	OnOrderExecution(info common.OrderInfo)
	OnOrderModify(info common.OrderInfo)
}

// BookManager is the engine facade. It accepts inbound feed messages,
// maintains the reconciled book, buffers emitted events and flushes them to
// the configured handler. All methods must be called from a single
// goroutine; the manager does no internal locking.
type BookManager struct {
	book    *book.Book
	events  []common.OrderInfo
	handler EventHandler
	log     zerolog.Logger
}

func NewBookManager() *BookManager {
	m := &BookManager{
		book:   book.New(),
		events: make([]common.OrderInfo, 0, 1024),
		log:    log.With().Str("component", "book_manager").Logger(),
	}
	m.handler = &LoggingHandler{log: m.log}
	return m
}

// SetHandler replaces the flush target. Passing nil restores the default
// logging handler.
func (m *BookManager) SetHandler(h EventHandler) {
	if h == nil {
		h = &LoggingHandler{log: m.log}
	}
	m.handler = h
}

// ProcessOrderMessage routes an ADD, CANCEL or MODIFY into the book. Other
// types are logged and dropped without touching state.
func (m *BookManager) ProcessOrderMessage(msg common.OrderMessage) {
	switch msg.Type {
	case common.MessageAdd:
		m.ingest(msg.Type, m.book.ProcessOrderAddMessage(msg))
	case common.MessageCancel:
		m.ingest(msg.Type, m.book.ProcessOrderCancelMessage(msg))
	case common.MessageModify:
		m.ingest(msg.Type, m.book.ProcessOrderModifyMessage(msg))
	default:
		m.log.Error().
			Stringer("type", msg.Type).
			Int64("id", msg.ID).
			Msg("invalid order message type")
	}
}

func (m *BookManager) ProcessTradeMessage(msg common.TradeMessage) {
	m.ingest(common.MessageTrade, m.book.ProcessTradeMessage(msg))
}

func (m *BookManager) ProcessSnapshotMessage(msg common.SnapshotMessage) {
	m.ingest(common.MessageSnapshot, m.book.ProcessSnapshotMessage(msg))
}

func (m *BookManager) ingest(msgType common.MessageType, events []common.OrderInfo) {
	metrics.MessagesTotal.WithLabelValues(msgType.String()).Inc()
	for _, e := range events {
		metrics.EventsTotal.WithLabelValues(e.Event.String()).Inc()
		if e.OrderID == common.SyntheticOrderID {
			metrics.SyntheticEventsTotal.Inc()
		}
	}
	m.events = common.MergeEvents(m.events, events)
	m.observeDepth()
}

func (m *BookManager) observeDepth() {
	for _, isSell := range []bool{false, true} {
		side := m.book.Side(isSell)
		name := "bid"
		if isSell {
			name = "ask"
		}
		metrics.BookDepth.WithLabelValues(name).Set(float64(side.Depth()))
		metrics.PendingLiquidity.WithLabelValues(name, "add").Set(float64(side.PendingAddDepth()))
		metrics.PendingLiquidity.WithLabelValues(name, "remove").Set(float64(side.PendingRemoveDepth()))
	}
}

// FlushEvents dispatches every buffered event to the handler in emission
// order, then clears the buffer. No reordering, no deduplication.
func (m *BookManager) FlushEvents() {
	for _, info := range m.events {
		switch info.Event {
		case common.EventAdd:
			m.handler.OnOrderAdd(info)
		case common.EventCancel:
			m.handler.OnOrderCancel(info)
		case common.EventExec:
			m.handler.OnOrderExecution(info)
		case common.EventModify:
			m.handler.OnOrderModify(info)
		default:
			m.log.Error().Stringer("event", info.Event).Msg("invalid order event type")
		}
	}
	m.events = m.events[:0]
}

// PendingEvents is the number of buffered, not yet flushed events.
func (m *BookManager) PendingEvents() int {
	return len(m.events)
}

// GetL2Book materializes the current aggregated depth view.
func (m *BookManager) GetL2Book() *book.L2Book {
	return m.book.L2Book()
}

// Book exposes the underlying L3 book for read access.
func (m *BookManager) Book() *book.Book {
	return m.book
}

// LogBook dumps the aggregated book through the structured logger.
func (m *BookManager) LogBook() {
	m.log.Info().Str("book", m.book.L2Book().String()).Msg("book state")
}

// LoggingHandler is the default flush target: each event is written to the
// structured log.
type LoggingHandler struct {
	log zerolog.Logger
}

func NewLoggingHandler(logger zerolog.Logger) *LoggingHandler {
	return &LoggingHandler{log: logger}
}

func (h *LoggingHandler) OnOrderAdd(info common.OrderInfo)       { h.logEvent(info) }
func (h *LoggingHandler) OnOrderCancel(info common.OrderInfo)    { h.logEvent(info) }
func (h *LoggingHandler) OnOrderExecution(info common.OrderInfo) { h.logEvent(info) }
func (h *LoggingHandler) OnOrderModify(info common.OrderInfo)    { h.logEvent(info) }

func (h *LoggingHandler) logEvent(info common.OrderInfo) {
	h.log.Info().
		Stringer("event", info.Event).
		Int64("id", info.OrderID).
		Bool("isSell", info.IsSell).
		Int64("quantity", info.Quantity).
		Str("price", info.Price.String()).
		Msg("order event")
}
