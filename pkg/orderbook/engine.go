package orderbook

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// MatchingEngine owns the per-symbol order books. It is an explicit value:
// callers hold a reference, there is no package-level instance.
type MatchingEngine struct {
	books sync.Map // symbol -> *orderBook

	listeners   []func([]*Trade)
	listenersMu sync.RWMutex

	tradeSeq   atomic.Int64
	matchCount atomic.Int64
	matchQty   atomic.Int64
}

type EngineStats struct {
	MatchCount int64
	MatchQty   int64
}

func NewMatchingEngine() *MatchingEngine {
	return &MatchingEngine{}
}

// Submit runs the incoming order through its symbol's book and notifies
// trade listeners synchronously with any resulting trades.
func (e *MatchingEngine) Submit(order *Order) (*SubmitResult, error) {
	return e.SubmitWith(order, nil)
}

// SubmitWith is Submit with a match hook: onMatch runs with the resulting
// trades while the symbol's book is still locked, ahead of any concurrent
// Cancel for the same orders. Trade listeners fire after the lock is
// released.
func (e *MatchingEngine) SubmitWith(order *Order, onMatch func([]*Trade)) (*SubmitResult, error) {
	if order == nil {
		return nil, errNilOrder
	}

	book := e.getOrCreateBook(order.Symbol)
	res, err := book.submitWith(order, onMatch)
	if err != nil {
		return nil, err
	}

	if len(res.Trades) > 0 {
		e.matchCount.Add(int64(len(res.Trades)))
		for _, t := range res.Trades {
			e.matchQty.Add(t.Qty)
		}
		e.notify(res.Trades)
	}
	return res, nil
}

// Cancel removes a resting order. Returns false when the order is not in
// the book anymore, which is expected when cancellation races matching.
func (e *MatchingEngine) Cancel(symbol string, orderID int64) bool {
	v, ok := e.books.Load(symbol)
	if !ok {
		return false
	}
	return v.(*orderBook).remove(orderID)
}

// Restore rests a reloaded limit order without matching it. Startup only.
func (e *MatchingEngine) Restore(order *Order) error {
	if order == nil {
		return errNilOrder
	}
	return e.getOrCreateBook(order.Symbol).restore(order)
}

func (e *MatchingEngine) Snapshot(symbol string, depth int) *BookSnapshot {
	v, ok := e.books.Load(symbol)
	if !ok {
		return &BookSnapshot{Symbol: symbol}
	}
	return v.(*orderBook).snapshot(depth)
}

func (e *MatchingEngine) BestBid(symbol string) (int64, bool) {
	v, ok := e.books.Load(symbol)
	if !ok {
		return 0, false
	}
	return v.(*orderBook).bestBid()
}

func (e *MatchingEngine) BestAsk(symbol string) (int64, bool) {
	v, ok := e.books.Load(symbol)
	if !ok {
		return 0, false
	}
	return v.(*orderBook).bestAsk()
}

func (e *MatchingEngine) Spread(symbol string) (int64, bool) {
	v, ok := e.books.Load(symbol)
	if !ok {
		return 0, false
	}
	return v.(*orderBook).spread()
}

func (e *MatchingEngine) MidPrice(symbol string) (float64, bool) {
	v, ok := e.books.Load(symbol)
	if !ok {
		return 0, false
	}
	return v.(*orderBook).midPrice()
}

func (e *MatchingEngine) Symbols() []string {
	var symbols []string
	e.books.Range(func(k, _ any) bool {
		symbols = append(symbols, k.(string))
		return true
	})
	return symbols
}

func (e *MatchingEngine) RegisterTradeListener(fn func([]*Trade)) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

func (e *MatchingEngine) Stats() EngineStats {
	return EngineStats{
		MatchCount: e.matchCount.Load(),
		MatchQty:   e.matchQty.Load(),
	}
}

// notify fans trades out to listeners. A panicking listener is isolated and
// logged; it never aborts the match that produced the trades.
func (e *MatchingEngine) notify(trades []*Trade) {
	e.listenersMu.RLock()
	listeners := e.listeners
	e.listenersMu.RUnlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					zap.S().Errorw("trade listener panic", "recover", r, "trades", len(trades))
				}
			}()
			fn(trades)
		}()
	}
}

func (e *MatchingEngine) getOrCreateBook(symbol string) *orderBook {
	if val, ok := e.books.Load(symbol); ok {
		return val.(*orderBook)
	}

	book := newOrderBook(symbol, &e.tradeSeq)
	actual, _ := e.books.LoadOrStore(symbol, book)
	return actual.(*orderBook)
}
