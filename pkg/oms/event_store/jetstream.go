package eventstore

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/optexch/exchange-core/pkg/oms/model"
	"go.uber.org/zap"
)

// JetStreamEventStore decorates an inner store and publishes every event to
// a JetStream subject for the persistence worker. Publishing is async and
// best-effort: a broker outage must not stall the matching path.
type JetStreamEventStore struct {
	inner   EventStore
	js      nats.JetStreamContext
	subject string
}

func NewJetStreamEventStore(js nats.JetStreamContext, subject string, inner EventStore) *JetStreamEventStore {
	return &JetStreamEventStore{
		inner:   inner,
		js:      js,
		subject: subject,
	}
}

func (s *JetStreamEventStore) AddEvent(ev *model.OrderEvent) {
	s.inner.AddEvent(ev)

	data, err := json.Marshal(ev)
	if err != nil {
		zap.S().Errorw("marshal order event", "event_id", ev.EventID, "err", err)
		return
	}
	if _, err := s.js.PublishAsync(s.subject, data); err != nil {
		zap.S().Errorw("publish order event", "event_id", ev.EventID, "err", err)
	}
}

func (s *JetStreamEventStore) Events(orderID int64) []*model.OrderEvent {
	return s.inner.Events(orderID)
}

func (s *JetStreamEventStore) GetOrderID(clOrdID string) int64 {
	return s.inner.GetOrderID(clOrdID)
}

func (s *JetStreamEventStore) DeleteByOrderID(orderID int64) {
	s.inner.DeleteByOrderID(orderID)
}
