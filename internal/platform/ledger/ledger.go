package ledger

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/dailybrew/replenish/internal/models"
	"github.com/dailybrew/replenish/pkg/tool"
)

// Ledger accepts materialized orders. Creating an order is the only write the
// lifecycle engine performs outside its own tables.
type Ledger interface {
	CreateOrder(ctx context.Context, order *models.Order) (string, error)
}

type gormLedger struct {
	db *gorm.DB
}

func New(db *gorm.DB) Ledger {
	return &gormLedger{db: db}
}

func (l *gormLedger) CreateOrder(ctx context.Context, order *models.Order) (string, error) {
	if order.ID == "" {
		order.ID = tool.GenerateUUIDV7()
	}
	if err := l.db.WithContext(ctx).Create(order).Error; err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}
	return order.ID, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
