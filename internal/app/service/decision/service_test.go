package decision

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

	"github.com/dailybrew/replenish/internal/app/service/schedule"
	tokensvc "github.com/dailybrew/replenish/internal/app/service/token"
	"github.com/dailybrew/replenish/internal/models"
	cfgpkg "github.com/dailybrew/replenish/pkg/config"
	"github.com/dailybrew/replenish/pkg/tool"
	"github.com/dailybrew/replenish/pkg/types"
)

type testEnv struct {
	db     *gorm.DB
	tokens *tokensvc.Service
	svc    *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:decisionsvc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Subscription{},
		&models.ConfirmationToken{},
		&models.SubscriptionLog{},
	))

	log := zap.NewNop().Sugar()
	tokens := tokensvc.NewService(db, log, &cfgpkg.Config{})
	return &testEnv{db: db, tokens: tokens, svc: NewService(db, log, tokens)}
}

// seedCycle creates an active subscription due in three days plus a live
// token for that cycle, mirroring what the reminder dispatcher produces.
func (e *testEnv) seedCycle(t *testing.T) (*models.Subscription, *models.ConfirmationToken) {
	t.Helper()
	sub := &models.Subscription{
		ID:               tool.GenerateUUIDV7(),
		CustomerID:       "cust-1",
		ProductID:        "beans-dark",
		Frequency:        types.FrequencyWeekly,
		Quantity:         1,
		DiscountPercent:  10,
		Status:           types.SubscriptionStatusActive,
		NextDeliveryDate: schedule.DateOnly(time.Now()).AddDate(0, 0, 3),
	}
	require.NoError(t, e.db.Create(sub).Error)

	tok, err := e.tokens.Issue(context.Background(), sub.ID, sub.CycleDate(), time.Now())
	require.NoError(t, err)
	return sub, tok
}

func (e *testEnv) reload(t *testing.T, id string) *models.Subscription {
	t.Helper()
	var sub models.Subscription
	require.NoError(t, e.db.Where("id = ?", id).First(&sub).Error)
	return &sub
}

func TestProcess_ContinueLeavesScheduleUntouched(t *testing.T) {
	env := newTestEnv(t)
	sub, tok := env.seedCycle(t)

	err := env.svc.Process(context.Background(), tok.Token, types.DecisionActionContinue, nil)
	require.NoError(t, err)

	got := env.reload(t, sub.ID)
	assert.Equal(t, types.SubscriptionStatusActive, got.Status)
	assert.Equal(t, sub.NextDeliveryDate.UTC(), got.NextDeliveryDate.UTC())

	consumed, err := env.tokens.Get(context.Background(), tok.Token)
	require.NoError(t, err)
	require.True(t, consumed.Consumed())
	assert.Equal(t, types.DecisionActionContinue, *consumed.Action)
}

func TestProcess_PauseSetsWindow(t *testing.T) {
	env := newTestEnv(t)
	sub, tok := env.seedCycle(t)
	until := time.Now().Add(14 * 24 * time.Hour)

	err := env.svc.Process(context.Background(), tok.Token, types.DecisionActionPause, &until)
	require.NoError(t, err)

	got := env.reload(t, sub.ID)
	assert.Equal(t, types.SubscriptionStatusPaused, got.Status)
	require.NotNil(t, got.PauseUntil)
	assert.WithinDuration(t, until, *got.PauseUntil, time.Second)
}

func TestProcess_CancelIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	sub, tok := env.seedCycle(t)

	err := env.svc.Process(context.Background(), tok.Token, types.DecisionActionCancel, nil)
	require.NoError(t, err)

	got := env.reload(t, sub.ID)
	assert.Equal(t, types.SubscriptionStatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)
	assert.Nil(t, got.PauseUntil)

	// a leftover live token for a later cycle cannot touch the subscription,
	// and its failed decision rolls the redemption back
	later, err := env.tokens.Issue(context.Background(), sub.ID,
		schedule.DateOnly(time.Now()).AddDate(0, 0, 10).Format(time.DateOnly), time.Now())
	require.NoError(t, err)
	err = env.svc.Process(context.Background(), later.Token, types.DecisionActionContinue, nil)
	assert.ErrorIs(t, err, ErrSubscriptionCancelled)

	reread, err := env.tokens.Get(context.Background(), later.Token)
	require.NoError(t, err)
	assert.False(t, reread.Consumed())
}

func TestProcess_RejectsInvalidActions(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.seedCycle(t)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name       string
		action     types.DecisionAction
		pauseUntil *time.Time
	}{
		{name: "unknown action", action: types.DecisionAction("ship")},
		{name: "pause without date", action: types.DecisionActionPause},
		{name: "pause with past date", action: types.DecisionActionPause, pauseUntil: &past},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.svc.Process(context.Background(), tok.Token, tt.action, tt.pauseUntil)
			require.ErrorIs(t, err, ErrInvalidAction)
		})
	}

	// rejected decisions never burn the token
	got, err := env.tokens.Get(context.Background(), tok.Token)
	require.NoError(t, err)
	assert.False(t, got.Consumed())
}

func TestProcess_DoubleSubmitReportsAlreadyProcessed(t *testing.T) {
	env := newTestEnv(t)
	sub, tok := env.seedCycle(t)
	until := time.Now().Add(14 * 24 * time.Hour)

	require.NoError(t, env.svc.Process(context.Background(), tok.Token, types.DecisionActionPause, &until))

	// replaying the link with a different action changes nothing
	err := env.svc.Process(context.Background(), tok.Token, types.DecisionActionCancel, nil)
	assert.ErrorIs(t, err, tokensvc.ErrTokenAlreadyProcessed)

	got := env.reload(t, sub.ID)
	assert.Equal(t, types.SubscriptionStatusPaused, got.Status)
}

func TestProcess_UnknownToken(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.Process(context.Background(), "no-such-token", types.DecisionActionContinue, nil)
	assert.ErrorIs(t, err, tokensvc.ErrTokenNotFound)
}
