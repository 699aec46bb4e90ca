package models

import "time"

// ReminderLog records that a reminder was sent for a delivery cycle. Its
// unique (subscription_id, cycle_date) index is what makes the reminder scan
// idempotent: a cycle with a row here is never picked up again.
type ReminderLog struct {
	ID             string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SubscriptionID string    `gorm:"column:subscription_id;type:uuid;not null;uniqueIndex:idx_reminder_cycle,priority:1" json:"subscription_id"`
	CycleDate      string    `gorm:"column:cycle_date;type:varchar(10);not null;uniqueIndex:idx_reminder_cycle,priority:2" json:"cycle_date"`
	Token          string    `gorm:"column:token;type:varchar(64);not null" json:"token"`
	SentAt         time.Time `gorm:"column:sent_at;not null" json:"sent_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ReminderLog) TableName() string {
	return "reminder_log"
}
