package model

import "github.com/shopspring/decimal"

// Identity is the transport-level caller context. Only used for ownership
// checks and logging; authentication itself happens upstream.
type Identity struct {
	Username  string
	SessionID string
}

// NewOrderRequest is the inbound order as decoded by the protocol
// collaborator. A zero Price means "absent".
type NewOrderRequest struct {
	ClOrdID         string
	Side            OrderSide
	Quantity        int64
	Symbol          string
	Price           decimal.Decimal
	OrderType       OrderType
	Capacity        Capacity
	Account         string
	ClearingFirm    string
	ClearingAccount string
	OpenClose       OpenClose
	MaturityDate    string
	StrikePrice     decimal.Decimal
	PutOrCall       PutOrCall
	RoutingInst     string
	SequenceNumber  int64
}

type MassCancelType string

const (
	MassCancelFirm        MassCancelType = "FIRM"
	MassCancelSymbol      MassCancelType = "SYMBOL"
	MassCancelMarketMaker MassCancelType = "MARKETMAKER"
	MassCancelCustomer    MassCancelType = "CUSTOMER"
	MassCancelAll         MassCancelType = "ALL"
)

// CancelOrderRequest targets a single order via OrigClOrdID, or a filtered
// set when OrigClOrdID is empty (mass cancel).
type CancelOrderRequest struct {
	OrigClOrdID    string
	MassCancelType MassCancelType
	ClearingFirm   string
	RiskRoot       string
	MassCancelID   string
}
