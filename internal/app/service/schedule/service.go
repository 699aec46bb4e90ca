package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dailybrew/replenish/internal/models"
	"github.com/dailybrew/replenish/pkg/logctx"
	"github.com/dailybrew/replenish/pkg/tool"
	"github.com/dailybrew/replenish/pkg/types"
)

// Service answers "which subscriptions are due" for the reminder dispatcher
// and the order materializer. It owns no state transition except the
// paused -> active flip when a pause window elapses.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// DueForReminder returns active subscriptions whose delivery is exactly
// leadDays away and whose cycle has no reminder record yet. Repeated calls in
// the same day return nothing new once reminders are recorded.
func (s *Service) DueForReminder(ctx context.Context, now time.Time, leadDays int) ([]*models.Subscription, error) {
	target := DateOnly(now).AddDate(0, 0, leadDays)
	var subs []*models.Subscription
	err := s.db.WithContext(ctx).
		Where("status = ?", types.SubscriptionStatusActive).
		Where("next_delivery_date = ?", target).
		Where("pause_until IS NULL OR pause_until <= ?", now).
		Where("NOT EXISTS (SELECT 1 FROM reminder_log r WHERE r.subscription_id = subscription.id AND r.cycle_date = ?)",
			target.Format(time.DateOnly)).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query due-for-reminder subscriptions: %w", err)
	}
	return subs, nil
}

// DueForMaterialization returns active subscriptions whose delivery date has
// arrived. Paused rows never appear here; call ReactivateElapsed first so
// expired pauses rejoin the schedule with a fresh date.
func (s *Service) DueForMaterialization(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	err := s.db.WithContext(ctx).
		Where("status = ?", types.SubscriptionStatusActive).
		Where("next_delivery_date <= ?", DateOnly(now)).
		Where("pause_until IS NULL OR pause_until <= ?", now).
		Order("next_delivery_date").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query due-for-materialization subscriptions: %w", err)
	}
	return subs, nil
}

// ReactivateElapsed flips paused subscriptions whose pause window has passed
// back to active. The next delivery date is recomputed from now, not replayed
// from the pre-pause schedule, so a long pause cannot produce a burst of
// overdue deliveries.
func (s *Service) ReactivateElapsed(ctx context.Context, now time.Time) (int, error) {
	var paused []*models.Subscription
	err := s.db.WithContext(ctx).
		Where("status = ?", types.SubscriptionStatusPaused).
		Where("pause_until IS NOT NULL AND pause_until <= ?", now).
		Find(&paused).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query elapsed pauses: %w", err)
	}

	reactivated := 0
	for _, sub := range paused {
		before := *sub
		next := NextDeliveryDate(sub.Frequency, sub.CustomValue, sub.CustomUnit, now)
		res := s.db.WithContext(ctx).Model(&models.Subscription{}).
			Where("id = ? AND status = ?", sub.ID, types.SubscriptionStatusPaused).
			Updates(map[string]any{
				"status":             types.SubscriptionStatusActive,
				"pause_until":        nil,
				"next_delivery_date": next,
			})
		if res.Error != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to reactivate subscription %s: %v", sub.ID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			// lost to a concurrent cancel; nothing to do
			continue
		}
		reactivated++

		after := *sub
		after.Status = types.SubscriptionStatusActive
		after.PauseUntil = nil
		after.NextDeliveryDate = next
		s.auditLog(ctx, &before, &after)
	}
	return reactivated, nil
}

func (s *Service) auditLog(ctx context.Context, before, after *models.Subscription) {
	go func() {
		entry := &models.SubscriptionLog{
			ID:             tool.GenerateUUIDV7(),
			SubscriptionID: after.ID,
			CustomerID:     after.CustomerID,
			Reason:         types.SubscriptionChangeReasonPauseElapsed,
			Before:         datatypes.NewJSONType(before),
			After:          datatypes.NewJSONType(after),
			Extra:          datatypes.JSONMap{},
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}()
}
