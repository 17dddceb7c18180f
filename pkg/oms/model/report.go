package model

import "github.com/shopspring/decimal"

type RejectReason string

const (
	RejectDuplicateID          RejectReason = "DUPLICATE_ID"
	RejectInvalidSymbol        RejectReason = "INVALID_SYMBOL"
	RejectInvalidPrice         RejectReason = "INVALID_PRICE"
	RejectInvalidQuantity      RejectReason = "INVALID_QUANTITY"
	RejectMissingRequiredField RejectReason = "MISSING_REQUIRED_FIELD"
	RejectUnauthorized         RejectReason = "UNAUTHORIZED"
	RejectUnknownError         RejectReason = "UNKNOWN_ERROR"
	RejectInvalidCapacity      RejectReason = "INVALID_CAPACITY"
	RejectRateLimitExceeded    RejectReason = "RATE_LIMIT_EXCEEDED"
	RejectNotAuthenticated     RejectReason = "NOT_AUTHENTICATED"
)

type CancelReason string

const (
	CancelUserRequested CancelReason = "USER_REQUESTED"
	CancelMassCancel    CancelReason = "MASS_CANCEL"
	CancelTimeout       CancelReason = "TIMEOUT"
	CancelSupervisor    CancelReason = "SUPERVISOR"
)

type LiquidityFlag string

const (
	LiquidityAdded   LiquidityFlag = "ADDED"   // resting/maker side
	LiquidityRemoved LiquidityFlag = "REMOVED" // aggressor/taker side
)

type Acknowledgement struct {
	ClOrdID   string
	OrderID   int64
	Side      OrderSide
	Quantity  int64
	LeavesQty int64
	OrderType OrderType
	Symbol    string
	Price     decimal.Decimal
}

type Rejection struct {
	ClOrdID string
	Reason  RejectReason
	Text    string
}

type Cancellation struct {
	ClOrdID   string
	OrderID   int64
	Reason    CancelReason
	LeavesQty int64
}

type MassCancellation struct {
	Count         int
	CorrelationID string
}

// Execution is emitted once per trade per side. It doubles as the row the
// downstream worker persists, hence the gorm tags.
type Execution struct {
	ExecID    string          `gorm:"primaryKey;column:exec_id" json:"exec_id"`
	ClOrdID   string          `gorm:"column:cl_ord_id" json:"cl_ord_id"`
	OrderID   int64           `gorm:"column:order_id;index" json:"order_id"`
	Symbol    string          `gorm:"column:symbol" json:"symbol"`
	Side      OrderSide       `gorm:"column:side" json:"side"`
	LastQty   int64           `gorm:"column:last_qty" json:"last_qty"`
	LastPrice decimal.Decimal `gorm:"column:last_price;type:numeric(14,4)" json:"last_price"`
	LeavesQty int64           `gorm:"column:leaves_qty" json:"leaves_qty"`
	CumQty    int64           `gorm:"column:cum_qty" json:"cum_qty"`
	Liquidity LiquidityFlag   `gorm:"column:liquidity" json:"liquidity"`
}

func (Execution) TableName() string {
	return "executions"
}
