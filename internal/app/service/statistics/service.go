package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/dailybrew/replenish/internal/models"
	"github.com/dailybrew/replenish/pkg/types"
)

// StatisticType enumerates the lifecycle rollups operators can request.
type StatisticType string

const (
	StatisticTypeActiveSubscriptions    StatisticType = "active_subscriptions"
	StatisticTypePausedSubscriptions    StatisticType = "paused_subscriptions"
	StatisticTypeCancelledSubscriptions StatisticType = "cancelled_subscriptions"
	StatisticTypeRemindersToday         StatisticType = "reminders_today"
	StatisticTypePendingDecisions       StatisticType = "pending_decisions"
	StatisticTypeConfirmedToday         StatisticType = "confirmed_today"
	StatisticTypeOrdersToday            StatisticType = "orders_today"
)

var allStatisticTypes = []StatisticType{
	StatisticTypeActiveSubscriptions,
	StatisticTypePausedSubscriptions,
	StatisticTypeCancelledSubscriptions,
	StatisticTypeRemindersToday,
	StatisticTypePendingDecisions,
	StatisticTypeConfirmedToday,
	StatisticTypeOrdersToday,
}

type LifecycleStatisticRequest struct {
	// DataItems selects which rollups to compute; empty means all.
	DataItems []StatisticType `json:"data_items"`
}

type LifecycleStatisticResponse struct {
	DataItems map[StatisticType]int64 `json:"data_items"`
}

// Service is a read-only rollup over the subscription store for operational
// visibility. It contributes no write behavior.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) countByStatus(ctx context.Context, status types.SubscriptionStatus) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ?", status).Count(&n).Error
	return n, err
}

func (s *Service) remindersToday(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ReminderLog{}).
		Where("sent_at >= ?", dayStart(now)).Count(&n).Error
	return n, err
}

// pendingDecisions counts live tokens: cycles awaiting a customer answer.
func (s *Service) pendingDecisions(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ConfirmationToken{}).
		Where("consumed_at IS NULL AND expires_at > ?", now).Count(&n).Error
	return n, err
}

func (s *Service) confirmedToday(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ConfirmationToken{}).
		Where("consumed_at >= ? AND action = ?", dayStart(now), types.DecisionActionContinue).
		Count(&n).Error
	return n, err
}

func (s *Service) ordersToday(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("created_at >= ?", dayStart(now)).Count(&n).Error
	return n, err
}

func (s *Service) getStatistic(ctx context.Context, item StatisticType, now time.Time) (int64, error) {
	switch item {
	case StatisticTypeActiveSubscriptions:
		return s.countByStatus(ctx, types.SubscriptionStatusActive)
	case StatisticTypePausedSubscriptions:
		return s.countByStatus(ctx, types.SubscriptionStatusPaused)
	case StatisticTypeCancelledSubscriptions:
		return s.countByStatus(ctx, types.SubscriptionStatusCancelled)
	case StatisticTypeRemindersToday:
		return s.remindersToday(ctx, now)
	case StatisticTypePendingDecisions:
		return s.pendingDecisions(ctx, now)
	case StatisticTypeConfirmedToday:
		return s.confirmedToday(ctx, now)
	case StatisticTypeOrdersToday:
		return s.ordersToday(ctx, now)
	default:
		return 0, fmt.Errorf("invalid data item id: %s", item)
	}
}

// GetLifecycleStatistic computes the requested rollups concurrently.
func (s *Service) GetLifecycleStatistic(ctx context.Context, request *LifecycleStatisticRequest) (*LifecycleStatisticResponse, error) {
	items := request.DataItems
	if len(items) == 0 {
		items = allStatisticTypes
	}
	now := time.Now()

	var wg sync.WaitGroup
	errChan := make(chan error, len(items))
	resChan := make(chan *lo.Entry[StatisticType, int64], len(items))

	for _, item := range items {
		wg.Add(1)
		go func(it StatisticType) {
			defer wg.Done()
			v, err := s.getStatistic(ctx, it, now)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[StatisticType, int64]{Key: it, Value: v}
		}(item)
	}

	// channels are buffered to len(items), so waiting here cannot deadlock;
	// draining resChan fully before looking at errChan guarantees no computed
	// count is dropped
	wg.Wait()
	close(errChan)
	close(resChan)

	results := make(map[StatisticType]int64)
	for entry := range resChan {
		results[entry.Key] = entry.Value
	}
	if err := <-errChan; err != nil {
		return nil, err
	}
	return &LifecycleStatisticResponse{DataItems: results}, nil
}

func dayStart(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
