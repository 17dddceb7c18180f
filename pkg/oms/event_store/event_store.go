package eventstore

import "github.com/optexch/exchange-core/pkg/oms/model"

// EventStore journals every order mutation. The in-memory implementation is
// the source of truth for intra-process queries; the JetStream one publishes
// each event for the persistence worker on top of it.
type EventStore interface {
	AddEvent(ev *model.OrderEvent)
	Events(orderID int64) []*model.OrderEvent
	GetOrderID(clOrdID string) int64
	DeleteByOrderID(orderID int64)
}
