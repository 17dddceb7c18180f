package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/optexch/exchange-core/pkg/oms/model"
)

// InMemoryOrderStore implements IOrder without a database. Used by tests and
// by deployments that accept losing lifecycle state on restart.
type InMemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[int64]model.Order // keyed by server order id, stored by value
}

func NewInMemoryOrderStore() *InMemoryOrderStore {
	return &InMemoryOrderStore{
		orders: make(map[int64]model.Order),
	}
}

func (s *InMemoryOrderStore) Save(_ context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.OrderID] = *order
	return nil
}

func (s *InMemoryOrderStore) GetByClOrdID(_ context.Context, clOrdID string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *model.Order
	for _, o := range s.orders {
		if o.ClOrdID != clOrdID {
			continue
		}
		o := o
		if found == nil || o.OrderID > found.OrderID {
			found = &o
		}
	}
	return found, nil
}

func (s *InMemoryOrderStore) ListNonTerminal(_ context.Context) ([]*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Order
	for _, o := range s.orders {
		if o.IsTerminal() {
			continue
		}
		o := o
		out = append(out, &o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}
