package book

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"heimdall/internal/common"
)

// defaultExecShare is the share of staged removal entries from a leading
// snapshot that is attributed to executions (counted per entry, not per unit
// of quantity, and rounded up); the rest is attributed to cancellations.
const defaultExecShare = 0.3

// pendingQty tracks quantity the engine expects future feed messages to
// confirm at (or through) a price.
type pendingQty struct {
	price decimal.Decimal
	qty   int64
}

// Side holds all reconciliation state for one side of the book. Bids keep
// their structures sorted descending, asks ascending, so the best price is
// always the btree minimum.
type Side struct {
	isSell bool

	levels *btree.BTreeG[*L3PriceLevel]
	orders map[int64]*OrderHandler

	// Exact-price quantities already deducted from the book, waiting for the
	// trade or cancel messages that confirm them.
	pendingLiqRemove *btree.BTreeG[*pendingQty]

	// Quantities a future order message is expected to bring. Keyed in side
	// priority order: an order priced at or better than an entry consumes it.
	pendingLiqAdd *btree.BTreeG[*pendingQty]

	// Snapshots we predict the venue will publish, one per observable
	// intermediate state. Front is the oldest prediction.
	snapQueue []common.L2SnapshotSide

	execShare   float64
	syntheticID int64
}

func bidLevelLess(a, b *L3PriceLevel) bool { return a.Price.GreaterThan(b.Price) }
func askLevelLess(a, b *L3PriceLevel) bool { return a.Price.LessThan(b.Price) }

func bidPendingLess(a, b *pendingQty) bool { return a.price.GreaterThan(b.price) }
func askPendingLess(a, b *pendingQty) bool { return a.price.LessThan(b.price) }

func NewSide(isSell bool) *Side {
	levelLess, pendingLess := bidLevelLess, bidPendingLess
	if isSell {
		levelLess, pendingLess = askLevelLess, askPendingLess
	}
	return &Side{
		isSell:           isSell,
		levels:           btree.NewBTreeG(levelLess),
		orders:           make(map[int64]*OrderHandler, 1024),
		pendingLiqRemove: btree.NewBTreeG(pendingLess),
		pendingLiqAdd:    btree.NewBTreeG(pendingLess),
		execShare:        defaultExecShare,
		syntheticID:      common.SyntheticOrderID - 1,
	}
}

// SetExecShare overrides the execution share used when attributing snapshot
// liquidity removal.
func (s *Side) SetExecShare(share float64) {
	s.execShare = share
}

func (s *Side) IsSell() bool { return s.isSell }

func (s *Side) ExistOrder(id int64) bool {
	_, ok := s.orders[id]
	return ok
}

func (s *Side) GetOrderHandler(id int64) (*OrderHandler, bool) {
	h, ok := s.orders[id]
	return h, ok
}

func (s *Side) ExistLevel(price decimal.Decimal) bool {
	_, ok := s.levels.Get(&L3PriceLevel{Price: price})
	return ok
}

func (s *Side) GetL3Level(price decimal.Decimal) (*L3PriceLevel, bool) {
	return s.levels.GetMut(&L3PriceLevel{Price: price})
}

// AddOrder inserts the order at its price level, creating the level if
// absent. Duplicate ids are ignored.
func (s *Side) AddOrder(order *common.Order) {
	if order.IsSell != s.isSell {
		return
	}
	if s.ExistOrder(order.ID) {
		return
	}
	level, ok := s.levels.GetMut(&L3PriceLevel{Price: order.Price})
	if !ok {
		level = newL3PriceLevel(order.Price)
		s.levels.Set(level)
	}
	elem := level.AddOrder(order)
	s.orders[order.ID] = &OrderHandler{Order: order, elem: elem}
}

// RemoveOrder drops the order and erases its level if that empties it.
// Unknown ids are ignored.
func (s *Side) RemoveOrder(id int64) {
	handler, ok := s.orders[id]
	if !ok {
		return
	}
	level, ok := s.levels.GetMut(&L3PriceLevel{Price: handler.Order.Price})
	if !ok {
		return
	}
	level.RemoveOrder(handler)
	delete(s.orders, id)
	if level.NumOrders == 0 {
		s.levels.Delete(level)
	}
}

// ModifyOrder changes quantity in place when the price is unchanged,
// otherwise re-queues a fresh order carrying over the filled quantity.
func (s *Side) ModifyOrder(id int64, quantity int64, price decimal.Decimal) {
	handler, ok := s.orders[id]
	if !ok {
		return
	}
	order := handler.Order
	if order.Price.Equal(price) {
		if level, ok := s.GetL3Level(price); ok {
			level.ModifyOrder(order, quantity, price)
		}
		return
	}
	replacement := common.NewOrder(order.ID, order.IsSell, quantity, price)
	replacement.Filled = order.Filled
	s.RemoveOrder(id)
	s.AddOrder(replacement)
}

// BookCrossedWithPrice reports whether an opposite-side order at price would
// cross this side's top of book.
func (s *Side) BookCrossedWithPrice(price decimal.Decimal) bool {
	top, ok := s.levels.Min()
	if !ok {
		return false
	}
	if s.isSell {
		return price.GreaterThanOrEqual(top.Price)
	}
	return top.Price.GreaterThanOrEqual(price)
}

// ProcessCrossedOrder uncrosses this side against an aggressive opposite-side
// order: top levels are swept in price-time priority, each fill emits an EXEC
// and raises the pending-removal quantity since trade prints confirming the
// fills are expected. The aggressor's filled quantity is advanced in place.
func (s *Side) ProcessCrossedOrder(order *common.Order) []common.OrderInfo {
	if order.IsSell == s.isSell {
		return nil
	}
	var events []common.OrderInfo
	remaining := order.RemainingQuantity()
	for remaining > 0 && s.BookCrossedWithPrice(order.Price) {
		level, ok := s.levels.MinMut()
		if !ok {
			break
		}
		var exhausted []int64
		for e := level.Orders.Front(); e != nil; e = e.Next() {
			if remaining == 0 {
				break
			}
			resting := e.Value.(*common.Order)
			fillable := min(remaining, resting.RemainingQuantity())
			level.FillOrder(resting, fillable)
			s.saveL2SnapshotSide()
			remaining -= fillable
			if resting.RemainingQuantity() == 0 {
				exhausted = append(exhausted, resting.ID)
			}
			events = append(events, common.NewOrderInfo(common.EventExec, resting.ID, s.isSell, fillable, resting.Price))
			s.addPendingRemove(resting.Price, fillable)
			order.Filled += fillable
		}
		for _, id := range exhausted {
			s.RemoveOrder(id)
		}
	}
	return events
}

// ProcessOrderCancel absorbs the cancel against predicted removals first; any
// residual that still maps to a live order emits one CANCEL and removes it.
func (s *Side) ProcessOrderCancel(id int64, quantity int64, price decimal.Decimal) []common.OrderInfo {
	var events []common.OrderInfo
	rest := quantity - s.MatchPendingLiqRemove(quantity, price)
	if rest > 0 && s.ExistOrder(id) {
		events = append(events, common.NewOrderInfo(common.EventCancel, id, s.isSell, rest, price))
		s.RemoveOrder(id)
	}
	return events
}

// ProcessTrade reconciles a trade print against this side.
//
// A: absorb quantity already predicted for removal at this price.
// B: a print through a strictly better level means that level is gone;
//    cancel every order on it.
// C: fill the level at the trade price in FIFO order.
// D: any residual printed better than our book implies an aggressor we have
//    not seen; record it as pending addition and emit synthetic ADD+EXEC.
func (s *Side) ProcessTrade(trade common.Trade) []common.OrderInfo {
	rest := trade.Quantity - s.MatchPendingLiqRemove(trade.Quantity, trade.Price)

	var events []common.OrderInfo
	for {
		top, ok := s.levels.Min()
		if !ok {
			break
		}
		shouldCancel := top.Price.GreaterThan(trade.Price)
		if s.isSell {
			shouldCancel = top.Price.LessThan(trade.Price)
		}
		if !shouldCancel {
			break
		}
		var stale []int64
		for e := top.Orders.Front(); e != nil; e = e.Next() {
			o := e.Value.(*common.Order)
			stale = append(stale, o.ID)
			events = append(events, common.NewOrderInfo(common.EventCancel, o.ID, s.isSell, o.Quantity, o.Price))
		}
		for _, id := range stale {
			s.RemoveOrder(id)
			s.saveL2SnapshotSide()
		}
	}

	if level, ok := s.GetL3Level(trade.Price); ok {
		var exhausted []int64
		for e := level.Orders.Front(); e != nil; e = e.Next() {
			if rest == 0 {
				break
			}
			resting := e.Value.(*common.Order)
			fillable := min(rest, resting.RemainingQuantity())
			level.FillOrder(resting, fillable)
			s.saveL2SnapshotSide()
			rest -= fillable
			if resting.RemainingQuantity() == 0 {
				exhausted = append(exhausted, resting.ID)
			}
			events = append(events, common.NewOrderInfo(common.EventExec, resting.ID, s.isSell, fillable, resting.Price))
		}
		for _, id := range exhausted {
			s.RemoveOrder(id)
			s.saveL2SnapshotSide()
		}
	}

	if rest > 0 {
		s.addPendingAdd(trade.Price, rest)
		events = append(events, common.NewOrderInfo(common.EventAdd, common.SyntheticOrderID, s.isSell, rest, trade.Price))
		events = append(events, common.NewOrderInfo(common.EventExec, common.SyntheticOrderID, s.isSell, rest, trade.Price))
	}
	return events
}

// stagedRemoval is one order's contribution to liquidity that a leading
// snapshot says has vanished.
type stagedRemoval struct {
	order *common.Order
	qty   int64
}

// ProcessL2Snapshot reconciles this side against an authoritative depth
// snapshot. A snapshot matching the front of the prediction queue confirms
// our state and is absorbed silently. With no predictions outstanding the
// snapshot leads: L3 state is forced to match it, synthesizing orders for
// revealed liquidity and attributing removed liquidity to EXEC and CANCEL
// by the configured share. Anything else is a corrupted snapshot and is
// dropped without touching state.
func (s *Side) ProcessL2Snapshot(side common.L2SnapshotSide) []common.OrderInfo {
	if len(s.snapQueue) > 0 {
		if common.L2SideEqual(s.snapQueue[0], side) {
			s.snapQueue = s.snapQueue[1:]
		}
		return nil
	}

	var events []common.OrderInfo
	var staged []stagedRemoval
	snapPrices := make(map[string]struct{}, len(side))
	for _, l2 := range side {
		snapPrices[l2.Price.String()] = struct{}{}
		level, ok := s.GetL3Level(l2.Price)
		if !ok {
			// Liquidity we have never seen; represent it with one synthetic order.
			events = append(events, common.NewOrderInfo(common.EventAdd, common.SyntheticOrderID, s.isSell, l2.Quantity, l2.Price))
			s.addPendingAdd(l2.Price, l2.Quantity)
			s.addSyntheticOrder(l2.Quantity, l2.Price)
			continue
		}
		switch {
		case l2.Quantity < level.Quantity:
			// The difference must disappear; stage orders from the front.
			deficit := level.Quantity - l2.Quantity
			for e := level.Orders.Front(); e != nil && deficit > 0; e = e.Next() {
				o := e.Value.(*common.Order)
				take := min(deficit, o.RemainingQuantity())
				deficit -= take
				staged = append(staged, stagedRemoval{order: o, qty: take})
			}
		case l2.Quantity > level.Quantity:
			diff := l2.Quantity - level.Quantity
			events = append(events, common.NewOrderInfo(common.EventAdd, common.SyntheticOrderID, s.isSell, diff, l2.Price))
			s.addPendingAdd(l2.Price, diff)
			s.addSyntheticOrder(diff, l2.Price)
		}
	}

	// Levels the snapshot no longer shows are fully gone.
	s.levels.Scan(func(level *L3PriceLevel) bool {
		if _, ok := snapPrices[level.Price.String()]; ok {
			return true
		}
		for e := level.Orders.Front(); e != nil; e = e.Next() {
			o := e.Value.(*common.Order)
			staged = append(staged, stagedRemoval{order: o, qty: o.RemainingQuantity()})
		}
		return true
	})

	execCount := int(math.Ceil(s.execShare * float64(len(staged))))
	for i, st := range staged {
		event := common.EventCancel
		if i < execCount {
			event = common.EventExec
		}
		events = append(events, common.NewOrderInfo(event, st.order.ID, s.isSell, st.qty, st.order.Price))
		if st.order.RemainingQuantity() == st.qty {
			s.RemoveOrder(st.order.ID)
		} else if level, ok := s.GetL3Level(st.order.Price); ok {
			level.FillOrder(st.order, st.qty)
		}
	}
	return events
}

func (s *Side) addSyntheticOrder(quantity int64, price decimal.Decimal) {
	s.AddOrder(common.NewOrder(s.syntheticID, s.isSell, quantity, price))
	s.syntheticID--
}

// MatchPendingLiqAdd consumes predicted additions that the given price beats
// or equals under this side's priority, best entries first. Returns the
// matched quantity.
func (s *Side) MatchPendingLiqAdd(quantity int64, price decimal.Decimal) int64 {
	var matched int64
	for matched < quantity {
		entry, ok := s.pendingLiqAdd.MinMut()
		if !ok {
			break
		}
		canMatch := price.GreaterThanOrEqual(entry.price)
		if s.isSell {
			canMatch = price.LessThanOrEqual(entry.price)
		}
		if !canMatch {
			break
		}
		take := min(entry.qty, quantity-matched)
		matched += take
		entry.qty -= take
		if entry.qty == 0 {
			s.pendingLiqAdd.Delete(entry)
		}
	}
	return matched
}

// MatchPendingLiqRemove consumes a predicted removal at exactly this price.
// Returns the matched quantity.
func (s *Side) MatchPendingLiqRemove(quantity int64, price decimal.Decimal) int64 {
	entry, ok := s.pendingLiqRemove.GetMut(&pendingQty{price: price})
	if !ok {
		return 0
	}
	matched := min(entry.qty, quantity)
	entry.qty -= matched
	if entry.qty == 0 {
		s.pendingLiqRemove.Delete(entry)
	}
	return matched
}

// AddPendingLiqRemoveQty registers the EXEC events of an uncrossing on this
// side's pending-removal map; this is the taker side, where the venue's trade
// prints will be matched.
func (s *Side) AddPendingLiqRemoveQty(events []common.OrderInfo) {
	for _, e := range events {
		if e.Event == common.EventExec {
			s.addPendingRemove(e.Price, e.Quantity)
		}
	}
}

func (s *Side) addPendingRemove(price decimal.Decimal, qty int64) {
	if entry, ok := s.pendingLiqRemove.GetMut(&pendingQty{price: price}); ok {
		entry.qty += qty
		return
	}
	s.pendingLiqRemove.Set(&pendingQty{price: price, qty: qty})
}

func (s *Side) addPendingAdd(price decimal.Decimal, qty int64) {
	if entry, ok := s.pendingLiqAdd.GetMut(&pendingQty{price: price}); ok {
		entry.qty += qty
		return
	}
	s.pendingLiqAdd.Set(&pendingQty{price: price, qty: qty})
}

// saveL2SnapshotSide queues the current aggregated view as a predicted
// venue snapshot. Trade handling calls it after each fill and each order
// removal; uncrossing calls it after each fill only, not after removing the
// exhausted orders.
func (s *Side) saveL2SnapshotSide() {
	s.snapQueue = append(s.snapQueue, s.L2Side())
}

// L2Side returns the aggregated levels in this side's priority order.
func (s *Side) L2Side() common.L2SnapshotSide {
	l2 := make(common.L2SnapshotSide, 0, s.levels.Len())
	s.levels.Scan(func(level *L3PriceLevel) bool {
		l2 = append(l2, level.L2())
		return true
	})
	return l2
}

// Depth is the number of populated price levels.
func (s *Side) Depth() int {
	return s.levels.Len()
}

// PendingAddDepth and PendingRemoveDepth report outstanding prediction
// entries, for instrumentation.
func (s *Side) PendingAddDepth() int    { return s.pendingLiqAdd.Len() }
func (s *Side) PendingRemoveDepth() int { return s.pendingLiqRemove.Len() }

// SnapshotQueueLen is the number of queued snapshot predictions.
func (s *Side) SnapshotQueueLen() int { return len(s.snapQueue) }
