package oms

import (
	"sync"

	"github.com/optexch/exchange-core/pkg/oms/model"
)

// activeIndex holds live orders by client id and by server id. Both maps are
// shared across symbols; LoadOrStore on the client-id map is the atomic
// insert-if-absent that closes the duplicate-id race.
type activeIndex struct {
	byClOrdID sync.Map // string -> *model.Order
	byOrderID sync.Map // int64  -> *model.Order
}

// reserve claims a clOrdID for the given order. Returns errDuplicateClOrdID
// when another active order already holds it.
func (idx *activeIndex) reserve(order *model.Order) error {
	if _, loaded := idx.byClOrdID.LoadOrStore(order.ClOrdID, order); loaded {
		return errDuplicateClOrdID
	}
	return nil
}

func (idx *activeIndex) commit(order *model.Order) {
	idx.byOrderID.Store(order.OrderID, order)
}

func (idx *activeIndex) getByClOrdID(clOrdID string) (*model.Order, bool) {
	v, ok := idx.byClOrdID.Load(clOrdID)
	if !ok {
		return nil, false
	}
	return v.(*model.Order), true
}

func (idx *activeIndex) getByOrderID(orderID int64) (*model.Order, bool) {
	v, ok := idx.byOrderID.Load(orderID)
	if !ok {
		return nil, false
	}
	return v.(*model.Order), true
}

// drop removes an order from both maps. Safe to call twice.
func (idx *activeIndex) drop(order *model.Order) {
	idx.byClOrdID.Delete(order.ClOrdID)
	idx.byOrderID.Delete(order.OrderID)
}

func (idx *activeIndex) rangeActive(fn func(order *model.Order) bool) {
	idx.byClOrdID.Range(func(_, v any) bool {
		return fn(v.(*model.Order))
	})
}
