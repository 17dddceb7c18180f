package orderbook

import (
	"container/heap"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
)

// bookEntry wraps a resting order inside a price level. Cancellation marks
// the entry removed in O(1); the matching loop and level accounting skip
// tombstoned entries, so FIFO order of the survivors is preserved.
type bookEntry struct {
	order   *Order
	removed bool
}

type priceLevel struct {
	queue deque.Deque[*bookEntry]
	qty   int64 // sum of live leaves at this level
	count int   // live orders at this level
}

type Level struct {
	Price int64
	Qty   int64
	Count int
}

type BookSnapshot struct {
	Symbol         string
	Bids           []Level
	Asks           []Level
	TotalBidQty    int64
	TotalAskQty    int64
	LastTradePrice int64
}

// orderBook holds the resting interest of a single symbol. Every mutation
// and query runs under mu, so exactly one mutation per symbol is in flight
// at a time; books of different symbols share nothing.
type orderBook struct {
	symbol string

	bids map[int64]*priceLevel
	asks map[int64]*priceLevel

	bidHeap *PriceHeap
	askHeap *PriceHeap

	index map[int64]*bookEntry // order id -> resting entry

	bidQty int64
	askQty int64

	lastTradePrice int64

	tradeSeq *atomic.Int64

	mu sync.Mutex
}

func newOrderBook(symbol string, tradeSeq *atomic.Int64) *orderBook {
	bidHeap := NewPriceHeap(func(i, j int64) bool { return i > j }) // Max-heap
	askHeap := NewPriceHeap(func(i, j int64) bool { return i < j }) // Min-heap

	return &orderBook{
		symbol:   symbol,
		bids:     make(map[int64]*priceLevel),
		asks:     make(map[int64]*priceLevel),
		bidHeap:  bidHeap,
		askHeap:  askHeap,
		index:    make(map[int64]*bookEntry),
		tradeSeq: tradeSeq,
	}
}

func (ob *orderBook) sideBook(side Side) (map[int64]*priceLevel, *PriceHeap) {
	if side == BUY {
		return ob.bids, ob.bidHeap
	}
	return ob.asks, ob.askHeap
}

// submit matches the incoming order against the opposite side and, for a
// limit order with remaining quantity, rests it on its own side. A market
// order never rests: its remainder is reported cancelled.
func (ob *orderBook) submit(order *Order) (*SubmitResult, error) {
	return ob.submitWith(order, nil)
}

// submitWith is submit with a match hook: onMatch runs with the resulting
// trades before the book lock is released. A caller that applies fills to
// lifecycle state inside the hook is guaranteed that any later successful
// remove of the same orders observes those fills.
func (ob *orderBook) submitWith(order *Order, onMatch func([]*Trade)) (*SubmitResult, error) {
	if order == nil {
		return nil, errNilOrder
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	if order.Qty <= 0 || order.Leaves <= 0 {
		return nil, errInvalidOrderQty
	}
	if order.Type == LIMIT && order.Price <= 0 {
		return nil, errInvalidOrderPrice
	}

	trades := ob.match(order)
	if onMatch != nil && len(trades) > 0 {
		onMatch(trades)
	}

	res := &SubmitResult{Trades: trades}
	switch {
	case order.Leaves == 0:
		res.Status = StatusFilled
	case order.Type == MARKET:
		res.Status = StatusCancelled
	default:
		if err := ob.insert(order); err != nil {
			return nil, err
		}
		if len(trades) > 0 {
			res.Status = StatusPartiallyFilled
		} else {
			res.Status = StatusBooked
		}
	}
	return res, nil
}

// restore rests a reloaded limit order without matching. Used on startup
// reload, where orders arrive in original server-id order.
func (ob *orderBook) restore(order *Order) error {
	if order == nil {
		return errNilOrder
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	if order.Leaves <= 0 {
		return errInvalidOrderQty
	}
	return ob.insert(order)
}

func (ob *orderBook) match(incoming *Order) []*Trade {
	var trades []*Trade

	opposite := incoming.Side.Opposite()
	for incoming.Leaves > 0 {
		price, lvl, ok := ob.bestLevel(opposite)
		if !ok || !crosses(incoming, price) {
			break
		}

		entry := lvl.queue.Front()
		if entry.removed {
			lvl.queue.PopFront()
			continue
		}

		resting := entry.order
		execQty := min(incoming.Leaves, resting.Leaves)

		trades = append(trades, &Trade{
			ID:            ob.tradeSeq.Add(1),
			Symbol:        ob.symbol,
			Price:         price, // maker's price always prevails
			Qty:           execQty,
			TakerOrderID:  incoming.ID,
			TakerClientID: incoming.ClientID,
			MakerOrderID:  resting.ID,
			MakerClientID: resting.ClientID,
			TakerSide:     incoming.Side,
			ExecutedAt:    time.Now(),
		})

		incoming.fill(execQty)
		resting.fill(execQty)
		lvl.qty -= execQty
		ob.addSideQty(opposite, -execQty)
		ob.lastTradePrice = price

		if resting.Leaves == 0 {
			lvl.queue.PopFront()
			lvl.count--
			delete(ob.index, resting.ID)
			if lvl.count == 0 {
				book, _ := ob.sideBook(opposite)
				delete(book, price)
			}
		}
	}

	return trades
}

// crosses reports whether the incoming order can trade at the given resting
// price. A market order always crosses; a missing price on a non-market
// order blocks matching.
func crosses(incoming *Order, restingPrice int64) bool {
	if incoming.Type == MARKET {
		return true
	}
	if incoming.Price <= 0 || restingPrice <= 0 {
		return false
	}
	if incoming.Side == BUY {
		return incoming.Price >= restingPrice
	}
	return incoming.Price <= restingPrice
}

// bestLevel peeks the best price on a side, discarding heap entries whose
// level has drained. Caller holds ob.mu.
func (ob *orderBook) bestLevel(side Side) (int64, *priceLevel, bool) {
	book, h := ob.sideBook(side)
	for {
		price, ok := h.Peek()
		if !ok {
			return 0, nil, false
		}
		lvl := book[price]
		if lvl == nil || lvl.count == 0 {
			heap.Pop(h)
			delete(book, price)
			continue
		}
		return price, lvl, true
	}
}

func (ob *orderBook) insert(order *Order) error {
	if order.Type != LIMIT {
		return errMarketOrderRest
	}
	if order.Price <= 0 {
		return errInvalidOrderPrice
	}
	if _, ok := ob.index[order.ID]; ok {
		return errDuplicateOrderID
	}

	book, h := ob.sideBook(order.Side)
	lvl := book[order.Price]
	if lvl == nil {
		lvl = &priceLevel{}
		book[order.Price] = lvl
		heap.Push(h, order.Price)
	}

	entry := &bookEntry{order: order}
	lvl.queue.PushBack(entry)
	lvl.qty += order.Leaves
	lvl.count++
	ob.index[order.ID] = entry
	ob.addSideQty(order.Side, order.Leaves)
	return nil
}

// remove cancels a resting order by identity. Returns false when the order
// is not (or no longer) in the book; losing a race against matching is a
// normal outcome, not an error.
func (ob *orderBook) remove(orderID int64) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	entry, ok := ob.index[orderID]
	if !ok || entry.removed {
		return false
	}

	entry.removed = true
	delete(ob.index, orderID)

	book, _ := ob.sideBook(entry.order.Side)
	if lvl := book[entry.order.Price]; lvl != nil {
		lvl.qty -= entry.order.Leaves
		lvl.count--
		if lvl.count == 0 {
			delete(book, entry.order.Price)
		}
	}
	ob.addSideQty(entry.order.Side, -entry.order.Leaves)
	return true
}

func (ob *orderBook) addSideQty(side Side, delta int64) {
	if side == BUY {
		ob.bidQty += delta
	} else {
		ob.askQty += delta
	}
}

func (ob *orderBook) bestBid() (int64, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	price, _, ok := ob.bestLevel(BUY)
	return price, ok
}

func (ob *orderBook) bestAsk() (int64, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	price, _, ok := ob.bestLevel(SELL)
	return price, ok
}

func (ob *orderBook) spread() (int64, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	bid, _, okB := ob.bestLevel(BUY)
	ask, _, okA := ob.bestLevel(SELL)
	if !okB || !okA {
		return 0, false
	}
	return ask - bid, true
}

func (ob *orderBook) midPrice() (float64, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	bid, _, okB := ob.bestLevel(BUY)
	ask, _, okA := ob.bestLevel(SELL)
	if !okB || !okA {
		return 0, false
	}
	return float64(bid+ask) / 2, true
}

func (ob *orderBook) snapshot(depth int) *BookSnapshot {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	return &BookSnapshot{
		Symbol:         ob.symbol,
		Bids:           sideLevels(ob.bids, depth, func(i, j int64) bool { return i > j }),
		Asks:           sideLevels(ob.asks, depth, func(i, j int64) bool { return i < j }),
		TotalBidQty:    ob.bidQty,
		TotalAskQty:    ob.askQty,
		LastTradePrice: ob.lastTradePrice,
	}
}

func sideLevels(book map[int64]*priceLevel, depth int, better func(i, j int64) bool) []Level {
	prices := make([]int64, 0, len(book))
	for price, lvl := range book {
		if lvl.count > 0 {
			prices = append(prices, price)
		}
	}
	sort.Slice(prices, func(i, j int) bool { return better(prices[i], prices[j]) })
	if depth > 0 && len(prices) > depth {
		prices = prices[:depth]
	}

	levels := make([]Level, 0, len(prices))
	for _, price := range prices {
		lvl := book[price]
		levels = append(levels, Level{Price: price, Qty: lvl.qty, Count: lvl.count})
	}
	return levels
}
