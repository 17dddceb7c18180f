package eventstore

import (
	"sync"

	"github.com/optexch/exchange-core/pkg/oms/model"
)

type InMemoryEventStore struct {
	mu      sync.RWMutex
	events  map[int64][]*model.OrderEvent
	orderID map[string]int64 // clOrdID -> server order id
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		events:  make(map[int64][]*model.OrderEvent),
		orderID: make(map[string]int64),
	}
}

func (s *InMemoryEventStore) AddEvent(ev *model.OrderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[ev.OrderID] = append(s.events[ev.OrderID], ev)
	s.orderID[ev.ClOrdID] = ev.OrderID
}

func (s *InMemoryEventStore) Events(orderID int64) []*model.OrderEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.events[orderID]
	out := make([]*model.OrderEvent, len(evs))
	copy(out, evs)
	return out
}

func (s *InMemoryEventStore) GetOrderID(clOrdID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.orderID[clOrdID]
}

// DeleteByOrderID drops a terminal order's journal; the durable copy lives
// downstream of the worker.
func (s *InMemoryEventStore) DeleteByOrderID(orderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range s.events[orderID] {
		delete(s.orderID, ev.ClOrdID)
	}
	delete(s.events, orderID)
}
