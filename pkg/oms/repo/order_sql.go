package repo

import (
	"context"
	"errors"

	"github.com/optexch/exchange-core/pkg/oms/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var terminalStatuses = []model.OrderStatus{
	model.OrderStatusFilled,
	model.OrderStatusCancelled,
	model.OrderStatusRejected,
	model.OrderStatusExpired,
}

type OrderSQLRepo struct {
	db *gorm.DB
}

func NewOrderSQLRepo(db *gorm.DB) *OrderSQLRepo {
	return &OrderSQLRepo{
		db: db,
	}
}

func (s *OrderSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *OrderSQLRepo) Save(ctx context.Context, order *model.Order) error {
	return s.dbWithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			UpdateAll: true,
		}).
		Create(order).Error
}

func (s *OrderSQLRepo) GetByClOrdID(ctx context.Context, clOrdID string) (*model.Order, error) {
	var order model.Order
	err := s.dbWithContext(ctx).
		Where("cl_ord_id = ?", clOrdID).
		Order("order_id DESC").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListNonTerminal returns live orders in server-id order, which is arrival
// order. The reload path relies on that ordering to rebuild FIFO priority.
func (s *OrderSQLRepo) ListNonTerminal(ctx context.Context) ([]*model.Order, error) {
	var orders []*model.Order
	err := s.dbWithContext(ctx).
		Where("status NOT IN ?", terminalStatuses).
		Order("order_id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
