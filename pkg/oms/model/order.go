package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPendingNew      OrderStatus = "PendingNew"
	OrderStatusLive            OrderStatus = "Live"
	OrderStatusPartiallyFilled OrderStatus = "PartiallyFilled"
	OrderStatusFilled          OrderStatus = "Filled"
	OrderStatusCancelled       OrderStatus = "Cancelled"
	OrderStatusRejected        OrderStatus = "Rejected"
	OrderStatusExpired         OrderStatus = "Expired"
	OrderStatusPendingCancel   OrderStatus = "PendingCancel"
	OrderStatusPendingReplace  OrderStatus = "PendingReplace"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

type Capacity string

const (
	CapacityCustomer             Capacity = "Customer"
	CapacityMarketMaker          Capacity = "MarketMaker"
	CapacityFirm                 Capacity = "Firm"
	CapacityProfessionalCustomer Capacity = "ProfessionalCustomer"
	CapacityAwayMarketMaker      Capacity = "AwayMarketMaker"
	CapacityBrokerDealer         Capacity = "BrokerDealer"
	CapacityJointBackOffice      Capacity = "JointBackOffice"
)

type OpenClose string

const (
	OpenCloseOpen  OpenClose = "Open"
	OpenCloseClose OpenClose = "Close"
	OpenCloseNone  OpenClose = "None"
)

type PutOrCall string

const (
	PutOrCallPut  PutOrCall = "PUT"
	PutOrCallCall PutOrCall = "CALL"
)

// Order is the lifecycle entity. Identity and terms are set once at
// construction; execution state mutates only through the transition methods
// below, which keep originalQty == leavesQty + cumQty at all times.
type Order struct {
	OrderID int64  `gorm:"primaryKey;column:order_id"`
	ClOrdID string `gorm:"column:cl_ord_id;index"`

	Symbol   string          `gorm:"column:symbol"`
	Side     OrderSide       `gorm:"column:side"`
	Type     OrderType       `gorm:"column:order_type"`
	Price    decimal.Decimal `gorm:"column:price;type:numeric(14,4)"` // zero for market orders
	Quantity int64           `gorm:"column:quantity"`

	Owner           string    `gorm:"column:owner"`
	Account         string    `gorm:"column:account"`
	ClearingFirm    string    `gorm:"column:clearing_firm"`
	ClearingAccount string    `gorm:"column:clearing_account"`
	Capacity        Capacity  `gorm:"column:capacity"`
	OpenClose       OpenClose `gorm:"column:open_close"`

	MaturityDate string          `gorm:"column:maturity_date"`
	StrikePrice  decimal.Decimal `gorm:"column:strike_price;type:numeric(14,4)"`
	PutOrCall    PutOrCall       `gorm:"column:put_or_call"`

	LeavesQty int64           `gorm:"column:leaves_qty"`
	CumQty    int64           `gorm:"column:cum_qty"`
	LastQty   int64           `gorm:"column:last_qty"`
	LastPrice decimal.Decimal `gorm:"column:last_price;type:numeric(14,4)"`

	Status       OrderStatus `gorm:"column:status"`
	RejectReason string      `gorm:"column:reject_reason"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// NewOrder builds an order in PendingNew from an already validated request.
func NewOrder(orderID int64, req *NewOrderRequest, owner string) *Order {
	now := time.Now()
	return &Order{
		OrderID:         orderID,
		ClOrdID:         req.ClOrdID,
		Symbol:          req.Symbol,
		Side:            req.Side,
		Type:            req.OrderType,
		Price:           req.Price,
		Quantity:        req.Quantity,
		Owner:           owner,
		Account:         req.Account,
		ClearingFirm:    req.ClearingFirm,
		ClearingAccount: req.ClearingAccount,
		Capacity:        req.Capacity,
		OpenClose:       req.OpenClose,
		MaturityDate:    req.MaturityDate,
		StrikePrice:     req.StrikePrice,
		PutOrCall:       req.PutOrCall,
		LeavesQty:       req.Quantity,
		Status:          OrderStatusPendingNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

func (o *Order) CanCancel() bool {
	switch o.Status {
	case OrderStatusLive, OrderStatusPartiallyFilled, OrderStatusPendingCancel, OrderStatusPendingReplace:
		return true
	}
	return false
}

// Acknowledge moves PendingNew to Live. Any other starting state is an
// illegal transition.
func (o *Order) Acknowledge() error {
	if o.Status != OrderStatusPendingNew {
		return o.illegalTransition("acknowledge")
	}
	o.Status = OrderStatusLive
	o.touch()
	return nil
}

// Fill applies an execution of qty at price. Requires 0 < qty <= leavesQty.
func (o *Order) Fill(qty int64, price decimal.Decimal) error {
	switch o.Status {
	case OrderStatusLive, OrderStatusPartiallyFilled, OrderStatusPendingCancel, OrderStatusPendingReplace:
	default:
		return o.illegalTransition("fill")
	}
	if qty <= 0 || qty > o.LeavesQty {
		return fmt.Errorf("%w: fill qty %d, leaves %d", ErrInvalidFillQty, qty, o.LeavesQty)
	}

	o.LeavesQty -= qty
	o.CumQty += qty
	o.LastQty = qty
	o.LastPrice = price
	if o.LeavesQty == 0 {
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
	o.touch()
	return nil
}

// Cancel marks the order cancelled. Only cancellable states qualify.
func (o *Order) Cancel() error {
	if !o.CanCancel() {
		return o.illegalTransition("cancel")
	}
	o.Status = OrderStatusCancelled
	o.touch()
	return nil
}

// Reject terminates the order with a recorded reason.
func (o *Order) Reject(reason string) error {
	if o.IsTerminal() {
		return o.illegalTransition("reject")
	}
	o.Status = OrderStatusRejected
	o.RejectReason = reason
	o.touch()
	return nil
}

// Expire terminates remaining open quantity. Meaningless once leaves == 0.
func (o *Order) Expire() error {
	if o.IsTerminal() || o.LeavesQty <= 0 {
		return o.illegalTransition("expire")
	}
	o.Status = OrderStatusExpired
	o.touch()
	return nil
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now()
}

func (o *Order) illegalTransition(op string) error {
	return fmt.Errorf("%w: %s in state %s (order %d)", ErrIllegalTransition, op, o.Status, o.OrderID)
}
