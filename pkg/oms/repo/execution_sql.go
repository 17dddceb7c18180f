package repo

import (
	"context"

	"github.com/optexch/exchange-core/pkg/oms/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExecutionSQLRepo struct {
	db *gorm.DB
}

func NewExecutionSQLRepo(db *gorm.DB) *ExecutionSQLRepo {
	return &ExecutionSQLRepo{
		db: db,
	}
}

func (s *ExecutionSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (r *ExecutionSQLRepo) Create(ctx context.Context, record *model.Execution) (*model.Execution, error) {
	return record, r.dbWithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record).Error
}

func (r *ExecutionSQLRepo) BulkCreate(ctx context.Context, records []*model.Execution) ([]*model.Execution, error) {
	return records, r.dbWithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(records).Error
}
