package orderbook

type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

func (s Side) Opposite() Side {
	if s == BUY {
		return SELL
	}
	return BUY
}

type OrderType string

const (
	LIMIT  OrderType = "LIMIT"
	MARKET OrderType = "MARKET"
)

// Prices inside the book are integer ticks, 1 tick = 0.0001.
const TickScale = 4

// Order is the book-side view of an order. The matching loop mutates
// Leaves/Cum in place; the lifecycle layer keeps its own entity and applies
// fills from the emitted trades.
type Order struct {
	ID       int64 // server-assigned, unique across symbols
	ClientID string
	Symbol   string
	Side     Side
	Type     OrderType
	Price    int64 // ticks; 0 for market orders
	Qty      int64 // original quantity
	Leaves   int64
	Cum      int64
}

func (o *Order) fill(qty int64) {
	o.Leaves -= qty
	o.Cum += qty
}
