package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/dailybrew/replenish/pkg/types"
)

// Order is a materialized delivery cycle. Rows are append-only once created;
// payment capture and fulfilment happen outside this service.
type Order struct {
	ID             string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SubscriptionID string `gorm:"column:subscription_id;type:uuid;not null;uniqueIndex:idx_order_cycle,priority:1" json:"subscription_id"`
	CustomerID     string `gorm:"column:customer_id;type:varchar(64);not null;index" json:"customer_id"`
	ProductID      string `gorm:"column:product_id;type:varchar(64);not null" json:"product_id"`

	Quantity int `gorm:"column:quantity;not null" json:"quantity"`
	// UnitPrice is the per-unit price after the subscription's creation-time
	// discount, in minor currency units.
	UnitPrice       int64  `gorm:"column:unit_price;type:bigint;not null" json:"unit_price"`
	DiscountPercent int    `gorm:"column:discount_percent;not null" json:"discount_percent"`
	TotalPrice      int64  `gorm:"column:total_price;type:bigint;not null" json:"total_price"`
	Currency        string `gorm:"column:currency;type:varchar(16);not null" json:"currency"`

	FrequencyLabel string `gorm:"column:frequency_label;type:varchar(64);not null" json:"frequency_label"`
	// ScheduledDate is the cycle this order materialized (YYYY-MM-DD). The
	// unique index with subscription_id guards against double-billing a cycle.
	ScheduledDate string `gorm:"column:scheduled_date;type:varchar(10);not null;uniqueIndex:idx_order_cycle,priority:2" json:"scheduled_date"`

	// ProductSnapshot preserves the catalog entry as seen at materialization.
	ProductSnapshot datatypes.JSONType[*types.Product] `gorm:"column:product_snapshot;type:jsonb;default:'null'" json:"product_snapshot"`

	CreatedAt time.Time `json:"created_at"`
}

func (Order) TableName() string {
	return "subscription_order"
}
