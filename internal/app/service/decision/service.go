package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	tokensvc "github.com/dailybrew/replenish/internal/app/service/token"
	"github.com/dailybrew/replenish/internal/models"
	"github.com/dailybrew/replenish/pkg/logctx"
	"github.com/dailybrew/replenish/pkg/tool"
	"github.com/dailybrew/replenish/pkg/types"
)

var (
	// ErrInvalidAction rejects a malformed decision before any mutation,
	// e.g. pause without a future pause-until date.
	ErrInvalidAction = errors.New("invalid decision action")
	// ErrSubscriptionCancelled guards the unreachable-by-configuration case
	// of a live token pointing at an already cancelled subscription.
	ErrSubscriptionCancelled = errors.New("subscription is cancelled")
)

// Service applies a customer's confirm/pause/cancel decision against a valid
// confirmation token.
type Service struct {
	db     *gorm.DB
	log    *zap.SugaredLogger
	tokens *tokensvc.Service
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, tokens *tokensvc.Service) *Service {
	return &Service{db: db, log: log, tokens: tokens}
}

// Process validates the decision, consumes the token and applies the state
// change in one database transaction. Token consumption is exactly-once; a
// double-submitted link reports ErrTokenAlreadyProcessed rather than silently
// repeating a side effect.
func (s *Service) Process(ctx context.Context, tokenString string, action types.DecisionAction, pauseUntil *time.Time) error {
	now := time.Now()
	if !action.Valid() {
		return ErrInvalidAction
	}
	if action == types.DecisionActionPause && (pauseUntil == nil || !pauseUntil.After(now)) {
		return ErrInvalidAction
	}

	var before, after *models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.tokens.ConsumeTx(ctx, tx, tokenString, action, now)
		if err != nil {
			return err
		}

		var sub models.Subscription
		if err := tx.WithContext(ctx).Where("id = ?", t.SubscriptionID).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return tokensvc.ErrTokenNotFound
			}
			return fmt.Errorf("failed to load subscription: %w", err)
		}
		if sub.Status == types.SubscriptionStatusCancelled {
			return ErrSubscriptionCancelled
		}

		switch action {
		case types.DecisionActionContinue:
			// materialization proceeds on the due date; nothing to mutate
			return nil
		case types.DecisionActionPause:
			cp := sub
			before = &cp
			res := tx.WithContext(ctx).Model(&models.Subscription{}).
				Where("id = ? AND status <> ?", sub.ID, types.SubscriptionStatusCancelled).
				Updates(map[string]any{
					"status":      types.SubscriptionStatusPaused,
					"pause_until": *pauseUntil,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to pause subscription: %w", res.Error)
			}
			aft := sub
			aft.Status = types.SubscriptionStatusPaused
			aft.PauseUntil = pauseUntil
			after = &aft
			return nil
		case types.DecisionActionCancel:
			cp := sub
			before = &cp
			res := tx.WithContext(ctx).Model(&models.Subscription{}).
				Where("id = ? AND status <> ?", sub.ID, types.SubscriptionStatusCancelled).
				Updates(map[string]any{
					"status":       types.SubscriptionStatusCancelled,
					"pause_until":  nil,
					"cancelled_at": now,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to cancel subscription: %w", res.Error)
			}
			aft := sub
			aft.Status = types.SubscriptionStatusCancelled
			aft.PauseUntil = nil
			aft.CancelledAt = &now
			after = &aft
			return nil
		}
		return ErrInvalidAction
	})
	if err != nil {
		return err
	}

	if after != nil {
		s.auditLog(ctx, before, after, tokenString)
	}
	return nil
}

func (s *Service) auditLog(ctx context.Context, before, after *models.Subscription, tokenString string) {
	go func() {
		entry := &models.SubscriptionLog{
			ID:             tool.GenerateUUIDV7(),
			SubscriptionID: after.ID,
			CustomerID:     after.CustomerID,
			Reason:         types.SubscriptionChangeReasonDecision,
			Before:         datatypes.NewJSONType(before),
			After:          datatypes.NewJSONType(after),
			Extra:          datatypes.JSONMap{"token": tokenString},
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}()
}
