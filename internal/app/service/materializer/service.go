package materializer

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
	"github.com/dailybrew/replenish/internal/platform/ledger"
	"github.com/dailybrew/replenish/pkg/logctx"
	"github.com/dailybrew/replenish/pkg/metrics"
	"github.com/dailybrew/replenish/pkg/tool"
	"github.com/dailybrew/replenish/pkg/types"
)

var errCycleSkipped = errors.New("cycle no longer eligible")

// Result summarizes one materializer run.
type Result struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Service converts due subscription cycles into concrete orders. Silence is
// consent: a cycle whose token was never redeemed materializes exactly like
// an explicit continue.
type Service struct {
	db        *gorm.DB
	log       *zap.SugaredLogger
	scheduler *schedule.Service
	catalog   catalog.Catalog
	ledger    ledger.Ledger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, scheduler *schedule.Service, cat catalog.Catalog, led ledger.Ledger) *Service {
	return &Service{db: db, log: log, scheduler: scheduler, catalog: cat, ledger: led}
}

// Run materializes every due cycle. A failing cycle (catalog refusal, ledger
// error) keeps its delivery date so the next run retries it; the rest of the
// batch is unaffected.
func (s *Service) Run(ctx context.Context, now time.Time) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.EngineRunDuration.WithLabelValues("materializer").Observe(metrics.MillisecondsSince(start))
	}()

	if _, err := s.scheduler.ReactivateElapsed(ctx, now); err != nil {
		return nil, err
	}

	due, err := s.scheduler.DueForMaterialization(ctx, now)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, sub := range due {
		err := s.materializeOne(ctx, sub, now)
		switch {
		case err == nil:
			res.Created++
			metrics.OrdersMaterialized.Inc()
		case errors.Is(err, errCycleSkipped):
			res.Skipped++
		default:
			res.Failed++
			metrics.MaterializeFailures.Inc()
			logctx.FromCtx(ctx, s.log).Errorw("materialize_failed",
				"subscription_id", sub.ID, "cycle_date", sub.CycleDate(), "err", err)
		}
	}
	logctx.FromCtx(ctx, s.log).Infow("materializer_run_done",
		"created", res.Created, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

func (s *Service) materializeOne(ctx context.Context, stale *models.Subscription, now time.Time) error {
	// Eligibility is re-evaluated at materialization time, never cached from
	// the scan: a decision may have paused or cancelled the subscription since.
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("id = ?", stale.ID).First(&sub).Error; err != nil {
		return fmt.Errorf("failed to reload subscription: %w", err)
	}
	if !sub.Active() || sub.NextDeliveryDate.After(schedule.DateOnly(now)) {
		return errCycleSkipped
	}

	snap, err := s.catalog.GetOrderableSnapshot(ctx, sub.ProductID)
	if err != nil {
		return fmt.Errorf("catalog refused product %s: %w", sub.ProductID, err)
	}

	cycle := sub.CycleDate()
	unitPrice := snap.UnitPrice * int64(100-sub.DiscountPercent) / 100
	order := &models.Order{
		ID:              tool.GenerateUUIDV7(),
		SubscriptionID:  sub.ID,
		CustomerID:      sub.CustomerID,
		ProductID:       sub.ProductID,
		Quantity:        sub.Quantity,
		UnitPrice:       unitPrice,
		DiscountPercent: sub.DiscountPercent,
		TotalPrice:      unitPrice * int64(sub.Quantity),
		Currency:        snap.Currency,
		FrequencyLabel:  sub.FrequencyLabel(),
		ScheduledDate:   cycle,
		ProductSnapshot: datatypes.NewJSONType(snap),
	}

	if _, err := s.ledger.CreateOrder(ctx, order); err != nil {
		// The per-cycle unique index makes order creation idempotent: a
		// duplicate means a previous run created the order but crashed before
		// advancing the date. Fall through and advance.
		var existing models.Order
		lookupErr := s.db.WithContext(ctx).
			Where("subscription_id = ? AND scheduled_date = ?", sub.ID, cycle).
			First(&existing).Error
		if lookupErr != nil {
			return fmt.Errorf("ledger rejected order: %w", err)
		}
	}

	next := schedule.NextDeliveryDate(sub.Frequency, sub.CustomValue, sub.CustomUnit, sub.NextDeliveryDate)
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ? AND next_delivery_date = ?",
			sub.ID, types.SubscriptionStatusActive, sub.NextDeliveryDate).
		Update("next_delivery_date", next)
	if res.Error != nil {
		return fmt.Errorf("failed to advance delivery date: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// a concurrent decision or run won; the order row (if any) belongs to
		// whichever run advanced the date
		return errCycleSkipped
	}

	s.auditLog(ctx, &sub, next, cycle)
	return nil
}

func (s *Service) auditLog(ctx context.Context, sub *models.Subscription, next time.Time, cycle string) {
	go func() {
		after := *sub
		after.NextDeliveryDate = next
		entry := &models.SubscriptionLog{
			ID:             tool.GenerateUUIDV7(),
			SubscriptionID: sub.ID,
			CustomerID:     sub.CustomerID,
			Reason:         types.SubscriptionChangeReasonMaterialize,
			Before:         datatypes.NewJSONType(sub),
			After:          datatypes.NewJSONType(&after),
			Extra:          datatypes.JSONMap{"cycle_date": cycle},
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}()
}
