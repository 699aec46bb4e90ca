package reminder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dailybrew/replenish/internal/app/service/schedule"
	tokensvc "github.com/dailybrew/replenish/internal/app/service/token"
	"github.com/dailybrew/replenish/internal/models"
	"github.com/dailybrew/replenish/internal/platform/catalog"
	"github.com/dailybrew/replenish/internal/platform/notify"
	cfgpkg "github.com/dailybrew/replenish/pkg/config"
	"github.com/dailybrew/replenish/pkg/logctx"
	"github.com/dailybrew/replenish/pkg/metrics"
	"github.com/dailybrew/replenish/pkg/tool"
)

// Result summarizes one dispatcher run for operators and statistics.
type Result struct {
	Dispatched int `json:"dispatched"`
	Failed     int `json:"failed"`
}

// Service sends "your delivery is coming up" reminders with an embedded
// single-use confirmation link, once per due cycle.
type Service struct {
	db        *gorm.DB
	log       *zap.SugaredLogger
	cfg       *cfgpkg.Config
	scheduler *schedule.Service
	tokens    *tokensvc.Service
	catalog   catalog.Catalog
	transport notify.Transport
}

func NewService(
	db *gorm.DB,
	log *zap.SugaredLogger,
	cfg *cfgpkg.Config,
	scheduler *schedule.Service,
	tokens *tokensvc.Service,
	cat catalog.Catalog,
	transport notify.Transport,
) *Service {
	return &Service{db: db, log: log, cfg: cfg, scheduler: scheduler, tokens: tokens, catalog: cat, transport: transport}
}

// Run dispatches reminders for every cycle due in cfg.Engine.LeadDays.
//
// Idempotent under re-invocation: a cycle gets its sent-record only after a
// successful transport call, so a failed send is retried on the next tick and
// the live-token-per-cycle guard keeps the retried link identical. One
// subscription's failure never aborts the batch.
func (s *Service) Run(ctx context.Context, now time.Time) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.EngineRunDuration.WithLabelValues("reminder").Observe(metrics.MillisecondsSince(start))
	}()

	if _, err := s.scheduler.ReactivateElapsed(ctx, now); err != nil {
		return nil, err
	}

	due, err := s.scheduler.DueForReminder(ctx, now, s.cfg.Engine.LeadDays)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, sub := range due {
		if err := s.dispatch(ctx, sub, now); err != nil {
			res.Failed++
			metrics.ReminderSendFailures.Inc()
			logctx.FromCtx(ctx, s.log).Errorw("reminder_dispatch_failed",
				"subscription_id", sub.ID, "cycle_date", sub.CycleDate(), "err", err)
			continue
		}
		res.Dispatched++
		metrics.RemindersDispatched.Inc()
	}
	logctx.FromCtx(ctx, s.log).Infow("reminder_run_done", "dispatched", res.Dispatched, "failed", res.Failed)
	return res, nil
}

func (s *Service) dispatch(ctx context.Context, sub *models.Subscription, now time.Time) error {
	cycle := sub.CycleDate()

	t, err := s.tokens.IssueOrReuse(ctx, sub.ID, cycle, now)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	link := fmt.Sprintf("%s/confirm?token=%s&action=%s", s.cfg.Engine.ConfirmBaseURL, t.Token, "continue")
	if err := s.transport.Send(ctx, sub.CustomerID, s.renderMessage(ctx, sub), link); err != nil {
		return fmt.Errorf("transport send failed: %w", err)
	}

	entry := &models.ReminderLog{
		ID:             tool.GenerateUUIDV7(),
		SubscriptionID: sub.ID,
		CycleDate:      cycle,
		Token:          t.Token,
		SentAt:         now,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record reminder: %w", err)
	}
	return nil
}

func (s *Service) renderMessage(ctx context.Context, sub *models.Subscription) string {
	productName := sub.ProductID
	if snap, err := s.catalog.GetOrderableSnapshot(ctx, sub.ProductID); err == nil {
		productName = snap.Name
	}
	return fmt.Sprintf("Your %s delivery of %d x %s is scheduled for %s. No action needed to continue.",
		sub.FrequencyLabel(), sub.Quantity, productName, sub.CycleDate())
}
