package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dailybrew/replenish/internal/models"
	cfgpkg "github.com/dailybrew/replenish/pkg/config"
	"github.com/dailybrew/replenish/pkg/tool"
	"github.com/dailybrew/replenish/pkg/types"
)

var (
	ErrTokenNotFound         = errors.New("confirmation token not found")
	ErrTokenExpired          = errors.New("confirmation token expired")
	ErrTokenAlreadyProcessed = errors.New("confirmation token already processed")
	// ErrDuplicateCycle means a live token already exists for the cycle. The
	// reminder dispatcher treats it as "reuse the existing token" so a link
	// already emailed to the customer stays valid.
	ErrDuplicateCycle = errors.New("live token exists for cycle")
)

// Service issues, validates and consumes single-use confirmation tokens, each
// bound to one (subscription, scheduled delivery date) cycle.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	cfg *cfgpkg.Config
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, cfg *cfgpkg.Config) *Service {
	return &Service{db: db, log: log, cfg: cfg}
}

// expiryFor places token expiry at UTC midnight of the cycle's delivery date
// plus the configured grace. The grace must not reach the materializer's
// trigger time for the same cycle; with that held, "redeemed after the order
// already materialized" cannot happen.
func (s *Service) expiryFor(cycleDate string) (time.Time, error) {
	day, err := time.ParseInLocation(time.DateOnly, cycleDate, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cycle date %q: %w", cycleDate, err)
	}
	return day.Add(time.Duration(s.cfg.Engine.TokenGraceHours) * time.Hour), nil
}

// Issue mints a token for the cycle. Fails with ErrDuplicateCycle when a live
// token for the same cycle already exists.
//
// The read ahead of the insert is only a fast path; the guarantee comes from
// the partial unique index on unconsumed (subscription_id, cycle_date) rows,
// which makes the second of two concurrent issuers fail the insert and pick up
// the winner's token.
func (s *Service) Issue(ctx context.Context, subscriptionID, cycleDate string, now time.Time) (*models.ConfirmationToken, error) {
	if live, err := s.liveToken(ctx, subscriptionID, cycleDate, now); err != nil {
		return nil, err
	} else if live != nil {
		return live, ErrDuplicateCycle
	}

	expiresAt, err := s.expiryFor(cycleDate)
	if err != nil {
		return nil, err
	}

	// expired unredeemed tokens occupy the unique index slot; clear them so
	// the cycle can be re-issued after a lapse
	if err := s.db.WithContext(ctx).
		Where("subscription_id = ? AND cycle_date = ?", subscriptionID, cycleDate).
		Where("consumed_at IS NULL AND expires_at <= ?", now).
		Delete(&models.ConfirmationToken{}).Error; err != nil {
		return nil, fmt.Errorf("failed to purge lapsed tokens: %w", err)
	}

	t := &models.ConfirmationToken{
		Token:          tool.GenerateToken(),
		SubscriptionID: subscriptionID,
		CycleDate:      cycleDate,
		IssuedAt:       now,
		ExpiresAt:      expiresAt,
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		// lost the index race; return the winner's token
		if live, liveErr := s.liveToken(ctx, subscriptionID, cycleDate, now); liveErr == nil && live != nil {
			return live, ErrDuplicateCycle
		}
		return nil, fmt.Errorf("failed to create token: %w", err)
	}
	return t, nil
}

// liveToken returns the unconsumed, unexpired token for the cycle, or nil.
func (s *Service) liveToken(ctx context.Context, subscriptionID, cycleDate string, now time.Time) (*models.ConfirmationToken, error) {
	var existing models.ConfirmationToken
	err := s.db.WithContext(ctx).
		Where("subscription_id = ? AND cycle_date = ?", subscriptionID, cycleDate).
		Where("consumed_at IS NULL AND expires_at > ?", now).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check live token: %w", err)
	}
	return &existing, nil
}

// IssueOrReuse is the dispatcher path: it returns the live token for the
// cycle, minting one only when none exists.
func (s *Service) IssueOrReuse(ctx context.Context, subscriptionID, cycleDate string, now time.Time) (*models.ConfirmationToken, error) {
	t, err := s.Issue(ctx, subscriptionID, cycleDate, now)
	if errors.Is(err, ErrDuplicateCycle) {
		return t, nil
	}
	return t, err
}

// Validate is read-only and safe to call from a details screen before any
// decision is made.
func (s *Service) Validate(ctx context.Context, tokenString string, now time.Time) (*models.ConfirmationToken, error) {
	t, err := s.get(ctx, s.db, tokenString)
	if err != nil {
		return nil, err
	}
	if t.Consumed() {
		return t, ErrTokenAlreadyProcessed
	}
	if t.Expired(now) {
		return t, ErrTokenExpired
	}
	return t, nil
}

// Get returns the token regardless of its state, for rendering details with
// is_expired / is_already_processed flags.
func (s *Service) Get(ctx context.Context, tokenString string) (*models.ConfirmationToken, error) {
	return s.get(ctx, s.db, tokenString)
}

// Consume redeems the token with the given action. Exactly one of any number
// of concurrent attempts succeeds; the rest report why they lost.
func (s *Service) Consume(ctx context.Context, tokenString string, action types.DecisionAction, now time.Time) (*models.ConfirmationToken, error) {
	return s.ConsumeTx(ctx, s.db, tokenString, action, now)
}

// ConsumeTx is Consume running on the caller's transaction, so a decision can
// atomically pair token redemption with the subscription state change.
//
// The redemption itself is a single conditional UPDATE: "not consumed and not
// expired" is checked by the database in the same statement that marks the
// token consumed, so two racers can never both pass a read-then-write gap.
func (s *Service) ConsumeTx(ctx context.Context, tx *gorm.DB, tokenString string, action types.DecisionAction, now time.Time) (*models.ConfirmationToken, error) {
	res := tx.WithContext(ctx).Model(&models.ConfirmationToken{}).
		Where("token = ? AND consumed_at IS NULL AND expires_at > ?", tokenString, now).
		Updates(map[string]any{"consumed_at": now, "action": action})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to consume token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// lost the conditional update; re-read to report the precise reason
		t, err := s.get(ctx, tx, tokenString)
		if err != nil {
			return nil, err
		}
		if t.Consumed() {
			return t, ErrTokenAlreadyProcessed
		}
		return t, ErrTokenExpired
	}
	return s.get(ctx, tx, tokenString)
}

func (s *Service) get(ctx context.Context, tx *gorm.DB, tokenString string) (*models.ConfirmationToken, error) {
	var t models.ConfirmationToken
	err := tx.WithContext(ctx).Where("token = ?", tokenString).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	return &t, nil
}
