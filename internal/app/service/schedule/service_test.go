package schedule

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dailybrew/replenish/internal/models"
	"github.com/dailybrew/replenish/pkg/tool"
	"github.com/dailybrew/replenish/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:schedulesvc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Subscription{},
		&models.ReminderLog{},
		&models.SubscriptionLog{},
	))
	return db
}

func seedSub(t *testing.T, db *gorm.DB, status types.SubscriptionStatus, next time.Time, mut ...func(*models.Subscription)) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{
		ID:               tool.GenerateUUIDV7(),
		CustomerID:       "cust-1",
		ProductID:        "beans-dark",
		Frequency:        types.FrequencyWeekly,
		Quantity:         1,
		DiscountPercent:  10,
		Status:           status,
		NextDeliveryDate: DateOnly(next),
	}
	for _, m := range mut {
		m(sub)
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func TestDueForReminder(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop().Sugar())
	now := time.Now()
	target := DateOnly(now).AddDate(0, 0, 3)

	due := seedSub(t, db, types.SubscriptionStatusActive, target)
	seedSub(t, db, types.SubscriptionStatusActive, target.AddDate(0, 0, -1))
	seedSub(t, db, types.SubscriptionStatusActive, target.AddDate(0, 0, 1))
	past := now.Add(-time.Hour)
	seedSub(t, db, types.SubscriptionStatusPaused, target, func(s *models.Subscription) {
		until := now.Add(240 * time.Hour)
		s.PauseUntil = &until
	})
	seedSub(t, db, types.SubscriptionStatusCancelled, target, func(s *models.Subscription) {
		s.CancelledAt = &past
	})

	got, err := svc.DueForReminder(context.Background(), now, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)
}

func TestDueForReminder_AlreadyRemindedCycleExcluded(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop().Sugar())
	now := time.Now()
	target := DateOnly(now).AddDate(0, 0, 3)

	sub := seedSub(t, db, types.SubscriptionStatusActive, target)
	require.NoError(t, db.Create(&models.ReminderLog{
		ID:             tool.GenerateUUIDV7(),
		SubscriptionID: sub.ID,
		CycleDate:      target.Format(time.DateOnly),
		Token:          "tok",
		SentAt:         now,
	}).Error)

	got, err := svc.DueForReminder(context.Background(), now, 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	// a reminder for an earlier cycle does not mask the current one
	other := seedSub(t, db, types.SubscriptionStatusActive, target)
	require.NoError(t, db.Create(&models.ReminderLog{
		ID:             tool.GenerateUUIDV7(),
		SubscriptionID: other.ID,
		CycleDate:      target.AddDate(0, 0, -7).Format(time.DateOnly),
		Token:          "tok2",
		SentAt:         now.AddDate(0, 0, -7),
	}).Error)

	got, err = svc.DueForReminder(context.Background(), now, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, other.ID, got[0].ID)
}

func TestDueForMaterialization(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop().Sugar())
	now := time.Now()
	today := DateOnly(now)

	overdue := seedSub(t, db, types.SubscriptionStatusActive, today.AddDate(0, 0, -5))
	dueToday := seedSub(t, db, types.SubscriptionStatusActive, today)
	seedSub(t, db, types.SubscriptionStatusActive, today.AddDate(0, 0, 1))
	seedSub(t, db, types.SubscriptionStatusPaused, today, func(s *models.Subscription) {
		until := now.Add(240 * time.Hour)
		s.PauseUntil = &until
	})

	got, err := svc.DueForMaterialization(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// oldest cycle first
	assert.Equal(t, overdue.ID, got[0].ID)
	assert.Equal(t, dueToday.ID, got[1].ID)
}

func TestReactivateElapsed(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop().Sugar())
	now := time.Now()

	elapsed := seedSub(t, db, types.SubscriptionStatusPaused, DateOnly(now).AddDate(0, 0, -10), func(s *models.Subscription) {
		until := now.Add(-time.Hour)
		s.PauseUntil = &until
	})
	still := seedSub(t, db, types.SubscriptionStatusPaused, DateOnly(now), func(s *models.Subscription) {
		until := now.Add(240 * time.Hour)
		s.PauseUntil = &until
	})

	n, err := svc.ReactivateElapsed(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var got models.Subscription
	require.NoError(t, db.Where("id = ?", elapsed.ID).First(&got).Error)
	assert.Equal(t, types.SubscriptionStatusActive, got.Status)
	assert.Nil(t, got.PauseUntil)
	// schedule restarts from now, not from the pre-pause date
	assert.Equal(t, DateOnly(now).AddDate(0, 0, 7), got.NextDeliveryDate.UTC())

	require.NoError(t, db.Where("id = ?", still.ID).First(&got).Error)
	assert.Equal(t, types.SubscriptionStatusPaused, got.Status)

	// second pass is a no-op
	n, err = svc.ReactivateElapsed(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
