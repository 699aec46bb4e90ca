package models

import (
	"fmt"
	"time"

	"github.com/dailybrew/replenish/pkg/types"
)

// Subscription is a customer's standing order for one product. Its lifecycle
// is active -> paused -> active and active/paused -> cancelled (terminal).
type Subscription struct {
	ID         string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	CustomerID string `gorm:"column:customer_id;type:varchar(64);not null;index" json:"customer_id"`
	ProductID  string `gorm:"column:product_id;type:varchar(64);not null" json:"product_id"`

	Frequency types.Frequency `gorm:"column:frequency;type:varchar(32);not null" json:"frequency"`
	// CustomValue/CustomUnit are set only when Frequency is custom.
	CustomValue int                `gorm:"column:custom_value;default:0" json:"custom_value,omitempty"`
	CustomUnit  types.IntervalUnit `gorm:"column:custom_unit;type:varchar(16);default:''" json:"custom_unit,omitempty"`

	Quantity int `gorm:"column:quantity;not null" json:"quantity"`
	// DiscountPercent is snapshotted at creation time; later catalog discount
	// changes never affect cycles of an existing subscription.
	DiscountPercent int `gorm:"column:discount_percent;not null" json:"discount_percent"`

	Status types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	// NextDeliveryDate is always UTC midnight of the scheduled day.
	NextDeliveryDate time.Time `gorm:"column:next_delivery_date;not null;index" json:"next_delivery_date"`
	// PauseUntil is set iff Status is paused.
	PauseUntil  *time.Time `gorm:"column:pause_until;default:null" json:"pause_until,omitempty"`
	CancelledAt *time.Time `gorm:"column:cancelled_at;default:null" json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

func (s *Subscription) Active() bool {
	return s != nil && s.Status == types.SubscriptionStatusActive
}

// FrequencyLabel is the human-readable cadence carried onto materialized orders.
func (s *Subscription) FrequencyLabel() string {
	switch s.Frequency {
	case types.FrequencyWeekly:
		return "weekly"
	case types.FrequencyBiWeekly:
		return "every 2 weeks"
	case types.FrequencyMonthly:
		return "monthly"
	case types.FrequencyCustom:
		return fmt.Sprintf("every %d %s", s.CustomValue, s.CustomUnit)
	}
	return string(s.Frequency)
}

// CycleDate identifies the current delivery cycle of this subscription.
// Every token, reminder record and order for a due date keys off it.
func (s *Subscription) CycleDate() string {
	return s.NextDeliveryDate.UTC().Format(time.DateOnly)
}
