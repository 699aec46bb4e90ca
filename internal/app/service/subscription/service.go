package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dailybrew/replenish/internal/app/service/schedule"
	"github.com/dailybrew/replenish/internal/models"
	"github.com/dailybrew/replenish/internal/platform/catalog"
	cfgpkg "github.com/dailybrew/replenish/pkg/config"
	"github.com/dailybrew/replenish/pkg/logctx"
	"github.com/dailybrew/replenish/pkg/tool"
	"github.com/dailybrew/replenish/pkg/types"
)

var (
	ErrNotFound         = errors.New("subscription not found")
	ErrNotOwner         = errors.New("subscription belongs to another customer")
	ErrCancelled        = errors.New("subscription is cancelled")
	ErrInvalidInput     = errors.New("invalid subscription input")
	ErrInvalidPauseDate = errors.New("pause date must be in the future")
)

// Service is the authenticated owner-facing management surface: create, list,
// pause, resume and cancel outside the confirmation-token flow.
type Service struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	cfg     *cfgpkg.Config
	catalog catalog.Catalog
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, cfg *cfgpkg.Config, cat catalog.Catalog) *Service {
	return &Service{db: db, log: log, cfg: cfg, catalog: cat}
}

type CreateParams struct {
	CustomerID  string
	ProductID   string
	Frequency   types.Frequency
	CustomValue int
	CustomUnit  types.IntervalUnit
	Quantity    int
	// FirstDeliveryDate defaults to one full cadence interval from now.
	FirstDeliveryDate *time.Time
}

// Create validates the request, snapshots the storefront's current
// subscribe-and-save discount and persists the subscription as active.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Subscription, error) {
	if p.CustomerID == "" || p.ProductID == "" {
		return nil, fmt.Errorf("%w: customer and product required", ErrInvalidInput)
	}
	if p.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}
	if !p.Frequency.Valid() {
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, p.Frequency)
	}
	if p.Frequency == types.FrequencyCustom && (p.CustomValue < 1 || !p.CustomUnit.Valid()) {
		return nil, fmt.Errorf("%w: custom frequency needs value >= 1 and a unit", ErrInvalidInput)
	}
	if _, err := s.catalog.GetOrderableSnapshot(ctx, p.ProductID); err != nil {
		return nil, fmt.Errorf("%w: product %s is not orderable", ErrInvalidInput, p.ProductID)
	}

	now := time.Now()
	first := schedule.NextDeliveryDate(p.Frequency, p.CustomValue, p.CustomUnit, now)
	if p.FirstDeliveryDate != nil {
		d := schedule.DateOnly(*p.FirstDeliveryDate)
		if d.Before(schedule.DateOnly(now)) {
			return nil, fmt.Errorf("%w: first delivery date is in the past", ErrInvalidInput)
		}
		first = d
	}

	sub := &models.Subscription{
		ID:               tool.GenerateUUIDV7(),
		CustomerID:       p.CustomerID,
		ProductID:        p.ProductID,
		Frequency:        p.Frequency,
		CustomValue:      p.CustomValue,
		CustomUnit:       p.CustomUnit,
		Quantity:         p.Quantity,
		DiscountPercent:  s.cfg.Engine.SubscriptionDiscountPercent,
		Status:           types.SubscriptionStatusActive,
		NextDeliveryDate: first,
	}
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	s.auditLog(ctx, nil, sub, types.SubscriptionChangeReasonCreate)
	return sub, nil
}

// ListByCustomer returns all of a customer's subscriptions, newest first.
func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// Pause suspends deliveries until the given future date.
func (s *Service) Pause(ctx context.Context, customerID, subscriptionID string, until time.Time) (*models.Subscription, error) {
	if !until.After(time.Now()) {
		return nil, ErrInvalidPauseDate
	}
	return s.transition(ctx, customerID, subscriptionID, types.SubscriptionChangeReasonPause,
		func(sub *models.Subscription) map[string]any {
			sub.Status = types.SubscriptionStatusPaused
			sub.PauseUntil = &until
			return map[string]any{
				"status":      types.SubscriptionStatusPaused,
				"pause_until": until,
			}
		})
}

// Resume lifts a pause immediately. A delivery date left behind in the past
// is recomputed from now so resuming does not trigger a catch-up burst.
func (s *Service) Resume(ctx context.Context, customerID, subscriptionID string) (*models.Subscription, error) {
	now := time.Now()
	return s.transition(ctx, customerID, subscriptionID, types.SubscriptionChangeReasonResume,
		func(sub *models.Subscription) map[string]any {
			next := sub.NextDeliveryDate
			if !next.After(schedule.DateOnly(now)) {
				next = schedule.NextDeliveryDate(sub.Frequency, sub.CustomValue, sub.CustomUnit, now)
			}
			sub.Status = types.SubscriptionStatusActive
			sub.PauseUntil = nil
			sub.NextDeliveryDate = next
			return map[string]any{
				"status":             types.SubscriptionStatusActive,
				"pause_until":        nil,
				"next_delivery_date": next,
			}
		})
}

// Cancel is terminal; no scheduler pass or decision touches the subscription
// afterwards.
func (s *Service) Cancel(ctx context.Context, customerID, subscriptionID string) (*models.Subscription, error) {
	now := time.Now()
	return s.transition(ctx, customerID, subscriptionID, types.SubscriptionChangeReasonCancel,
		func(sub *models.Subscription) map[string]any {
			sub.Status = types.SubscriptionStatusCancelled
			sub.PauseUntil = nil
			sub.CancelledAt = &now
			return map[string]any{
				"status":       types.SubscriptionStatusCancelled,
				"pause_until":  nil,
				"cancelled_at": now,
			}
		})
}

// transition loads an owned, non-cancelled subscription and applies updates
// guarded against a concurrent cancel.
func (s *Service) transition(
	ctx context.Context,
	customerID, subscriptionID string,
	reason types.SubscriptionChangeReason,
	apply func(sub *models.Subscription) map[string]any,
) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("id = ?", subscriptionID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if sub.CustomerID != customerID {
		return nil, ErrNotOwner
	}
	if sub.Status == types.SubscriptionStatusCancelled {
		return nil, ErrCancelled
	}

	before := sub
	updates := apply(&sub)
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status <> ?", sub.ID, types.SubscriptionStatusCancelled).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrCancelled
	}

	s.auditLog(ctx, &before, &sub, reason)
	return &sub, nil
}

func (s *Service) auditLog(ctx context.Context, before, after *models.Subscription, reason types.SubscriptionChangeReason) {
	go func() {
		entry := &models.SubscriptionLog{
			ID:             tool.GenerateUUIDV7(),
			SubscriptionID: after.ID,
			CustomerID:     after.CustomerID,
			Reason:         reason,
			Before:         datatypes.NewJSONType(before),
			After:          datatypes.NewJSONType(after),
			Extra:          datatypes.JSONMap{},
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}()
}
