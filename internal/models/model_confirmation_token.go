package models

import (
	"time"

	"github.com/dailybrew/replenish/pkg/types"
)

// ConfirmationToken is a single-use credential letting an unauthenticated
// customer act on one delivery cycle. At most one live (unexpired, unconsumed)
// token exists per (subscription_id, cycle_date): the partial unique index on
// unconsumed rows enforces it even across concurrent issuers, with the token
// service purging expired unconsumed rows before each mint.
type ConfirmationToken struct {
	Token          string `gorm:"column:token;type:varchar(64);primary_key" json:"token"`
	SubscriptionID string `gorm:"column:subscription_id;type:uuid;not null;index:idx_token_cycle,priority:1;uniqueIndex:udx_token_unconsumed,priority:1,where:consumed_at IS NULL" json:"subscription_id"`
	// CycleDate is the scheduled delivery date (YYYY-MM-DD) this token is bound to.
	CycleDate string `gorm:"column:cycle_date;type:varchar(10);not null;index:idx_token_cycle,priority:2;uniqueIndex:udx_token_unconsumed,priority:2,where:consumed_at IS NULL" json:"cycle_date"`

	IssuedAt  time.Time `gorm:"column:issued_at;not null" json:"issued_at"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	// ConsumedAt and Action are set together by the one successful redemption.
	ConsumedAt *time.Time            `gorm:"column:consumed_at;default:null" json:"consumed_at,omitempty"`
	Action     *types.DecisionAction `gorm:"column:action;type:varchar(16);default:null" json:"action,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (ConfirmationToken) TableName() string {
	return "confirmation_token"
}

func (t *ConfirmationToken) Consumed() bool {
	return t != nil && t.ConsumedAt != nil
}

func (t *ConfirmationToken) Expired(now time.Time) bool {
	return t != nil && !now.Before(t.ExpiresAt)
}

// Live reports whether the token can still be redeemed.
func (t *ConfirmationToken) Live(now time.Time) bool {
	return t != nil && !t.Consumed() && !t.Expired(now)
}
