package repo

import (
	"context"

	"github.com/optexch/exchange-core/pkg/oms/model"
)

// IOrder is the persistence contract the lifecycle layer depends on: durable
// upsert keyed by order identity, point lookup by client id, and a scan of
// non-terminal orders for startup reload. Storage encoding is the
// implementation's business.
type IOrder interface {
	Save(ctx context.Context, order *model.Order) error
	GetByClOrdID(ctx context.Context, clOrdID string) (*model.Order, error)
	ListNonTerminal(ctx context.Context) ([]*model.Order, error)
}

type IOrderEvent interface {
	Create(ctx context.Context, record *model.OrderEvent) (*model.OrderEvent, error)
	BulkCreate(ctx context.Context, records []*model.OrderEvent) ([]*model.OrderEvent, error)
}

type IExecution interface {
	Create(ctx context.Context, record *model.Execution) (*model.Execution, error)
	BulkCreate(ctx context.Context, records []*model.Execution) ([]*model.Execution, error)
}
