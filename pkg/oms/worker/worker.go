package worker

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	kafkawrapper "github.com/optexch/exchange-core/pkg/kafka_wrapper"
	"github.com/optexch/exchange-core/pkg/oms/model"
	"github.com/optexch/exchange-core/pkg/oms/repo"
)

// Worker drains the order-event and execution streams into Postgres. It is
// the durable tail of the pipeline; the matching path never waits for it.
type Worker struct {
	orderEvent repo.IOrderEvent
	execution  repo.IExecution
}

func NewWorker(r repo.IRepo) *Worker {
	return &Worker{
		orderEvent: r.OrderEvent(),
		execution:  r.Execution(),
	}
}

// StartOrderEventConsumer pulls order events from a JetStream durable
// consumer and upserts them. Blocks until ctx is done.
func (w *Worker) StartOrderEventConsumer(ctx context.Context, js nats.JetStreamContext, subject, durable string) error {
	sub, err := js.PullSubscribe(subject, durable)
	if err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msgs, err := sub.Fetch(10, nats.Context(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue // fetch timeout or transient error
		}

		for _, msg := range msgs {
			var ev model.OrderEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				zap.S().Errorw("unmarshal order event", "err", err)
				_ = msg.Ack()
				continue
			}
			if _, err := w.orderEvent.Create(ctx, &ev); err != nil {
				zap.S().Errorw("persist order event", "event_id", ev.EventID, "err", err)
				continue // redelivered
			}
			_ = msg.Ack()
		}
	}
}

// StartExecutionConsumer drains execution batches from Kafka into the
// executions table.
func (w *Worker) StartExecutionConsumer(ctx context.Context, cg *kafkawrapper.ConsumerGroup) error {
	return cg.Run(ctx, func(ctx context.Context, msgs []kafkawrapper.Message) error {
		records := make([]*model.Execution, 0, len(msgs))
		for _, m := range msgs {
			var exec model.Execution
			if err := json.Unmarshal(m.Value, &exec); err != nil {
				zap.S().Errorw("unmarshal execution", "offset", m.Offset, "err", err)
				continue
			}
			records = append(records, &exec)
		}
		if len(records) == 0 {
			return nil
		}
		_, err := w.execution.BulkCreate(ctx, records)
		return err
	})
}
