package orderbook

import "time"

// Trade is an immutable execution record. Taker is the incoming order that
// caused the match, maker is the resting order matched against; their sides
// are always opposite and the price is always the maker's level price.
type Trade struct {
	ID            int64
	Symbol        string
	Price         int64 // ticks
	Qty           int64
	TakerOrderID  int64
	TakerClientID string
	MakerOrderID  int64
	MakerClientID string
	TakerSide     Side
	ExecutedAt    time.Time
}

// SubmitStatus is the book's verdict on an incoming order after matching.
type SubmitStatus string

const (
	StatusBooked          SubmitStatus = "BOOKED"
	StatusPartiallyFilled SubmitStatus = "PARTIALLY_FILLED"
	StatusFilled          SubmitStatus = "FILLED"
	StatusCancelled       SubmitStatus = "CANCELLED" // market remainder, never rests
)

type SubmitResult struct {
	Status SubmitStatus
	Trades []*Trade
}
