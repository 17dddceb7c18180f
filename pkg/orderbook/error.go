package orderbook

import "errors"

var (
	errNilOrder          = errors.New("nil order")
	errInvalidOrderPrice = errors.New("invalid order price")
	errInvalidOrderQty   = errors.New("invalid order quantity")
	errMarketOrderRest   = errors.New("market order cannot rest in book")
	errDuplicateOrderID  = errors.New("order id already in book")
)
