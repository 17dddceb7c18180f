package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderExecType string

const (
	ExecTypeNew      OrderExecType = "New"
	ExecTypeTrade    OrderExecType = "Trade"
	ExecTypeCanceled OrderExecType = "Canceled"
	ExecTypeRejected OrderExecType = "Rejected"
	ExecTypeExpired  OrderExecType = "Expired"
)

// OrderEvent is the journal record written after every order mutation.
type OrderEvent struct {
	EventID   string          `gorm:"primaryKey;column:event_id" json:"event_id"`
	OrderID   int64           `gorm:"column:order_id;index" json:"order_id"`
	ClOrdID   string          `gorm:"column:cl_ord_id" json:"cl_ord_id"`
	ExecType  OrderExecType   `gorm:"column:exec_type" json:"exec_type"`
	Status    OrderStatus     `gorm:"column:status" json:"status"`
	LastQty   int64           `gorm:"column:last_qty" json:"last_qty"`
	LastPrice decimal.Decimal `gorm:"column:last_price;type:numeric(14,4)" json:"last_price"`
	LeavesQty int64           `gorm:"column:leaves_qty" json:"leaves_qty"`
	CumQty    int64           `gorm:"column:cum_qty" json:"cum_qty"`
	Timestamp time.Time       `gorm:"column:ts" json:"ts"`
}

func (OrderEvent) TableName() string {
	return "order_events"
}

// NewOrderEvent snapshots an order's state after a mutation. The event id is
// derived from the order id, status and cumulative quantity so a replayed
// event upserts instead of duplicating.
func NewOrderEvent(order Order, ts time.Time) *OrderEvent {
	return &OrderEvent{
		EventID:   fmt.Sprintf("%d-%s-%d", order.OrderID, order.Status, order.CumQty),
		OrderID:   order.OrderID,
		ClOrdID:   order.ClOrdID,
		ExecType:  execTypeFor(order.Status),
		Status:    order.Status,
		LastQty:   order.LastQty,
		LastPrice: order.LastPrice,
		LeavesQty: order.LeavesQty,
		CumQty:    order.CumQty,
		Timestamp: ts,
	}
}

func execTypeFor(status OrderStatus) OrderExecType {
	switch status {
	case OrderStatusPartiallyFilled, OrderStatusFilled:
		return ExecTypeTrade
	case OrderStatusCancelled:
		return ExecTypeCanceled
	case OrderStatusRejected:
		return ExecTypeRejected
	case OrderStatusExpired:
		return ExecTypeExpired
	default:
		return ExecTypeNew
	}
}
