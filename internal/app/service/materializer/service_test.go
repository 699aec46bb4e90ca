package materializer

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
	"github.com/dailybrew/replenish/internal/models"
	"github.com/dailybrew/replenish/internal/platform/catalog"
	"github.com/dailybrew/replenish/internal/platform/ledger"
	"github.com/dailybrew/replenish/pkg/tool"
	"github.com/dailybrew/replenish/pkg/types"
)

// fakeCatalog serves one product and can be told to refuse it.
type fakeCatalog struct {
	product *types.Product
	err     error
}

func (f *fakeCatalog) GetOrderableSnapshot(context.Context, string) (*types.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	snap := *f.product
	return &snap, nil
}

type testEnv struct {
	db      *gorm.DB
	catalog *fakeCatalog
	svc     *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:materializersvc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Subscription{},
		&models.Order{},
		&models.SubscriptionLog{},
	))

	log := zap.NewNop().Sugar()
	cat := &fakeCatalog{
		product: &types.Product{ID: "beans-dark", Name: "Dark Roast", UnitPrice: 1500, Currency: "USD", Available: true},
	}
	svc := NewService(db, log, schedule.NewService(db, log), cat, ledger.New(db))
	return &testEnv{db: db, catalog: cat, svc: svc}
}

func (e *testEnv) seedSub(t *testing.T, status types.SubscriptionStatus, next time.Time, mut ...func(*models.Subscription)) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{
		ID:               tool.GenerateUUIDV7(),
		CustomerID:       "cust-1",
		ProductID:        "beans-dark",
		Frequency:        types.FrequencyWeekly,
		Quantity:         2,
		DiscountPercent:  10,
		Status:           status,
		NextDeliveryDate: schedule.DateOnly(next),
	}
	for _, m := range mut {
		m(sub)
	}
	require.NoError(t, e.db.Create(sub).Error)
	return sub
}

func (e *testEnv) reload(t *testing.T, id string) *models.Subscription {
	t.Helper()
	var sub models.Subscription
	require.NoError(t, e.db.Where("id = ?", id).First(&sub).Error)
	return &sub
}

func (e *testEnv) orders(t *testing.T) []models.Order {
	t.Helper()
	var orders []models.Order
	require.NoError(t, e.db.Find(&orders).Error)
	return orders
}

func TestRun_MaterializesDueCycle(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	sub := env.seedSub(t, types.SubscriptionStatusActive, now)
	cycle := sub.CycleDate()

	res, err := env.svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 0, res.Failed)

	orders := env.orders(t)
	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, sub.ID, o.SubscriptionID)
	assert.Equal(t, cycle, o.ScheduledDate)
	assert.Equal(t, 2, o.Quantity)
	// 1500 minus the 10% snapshotted at subscribe time
	assert.EqualValues(t, 1350, o.UnitPrice)
	assert.EqualValues(t, 2700, o.TotalPrice)
	assert.Equal(t, 10, o.DiscountPercent)
	assert.Equal(t, "USD", o.Currency)
	assert.Equal(t, "weekly", o.FrequencyLabel)
	assert.Equal(t, "Dark Roast", o.ProductSnapshot.Data().Name)

	got := env.reload(t, sub.ID)
	assert.Equal(t, schedule.DateOnly(now).AddDate(0, 0, 7), got.NextDeliveryDate.UTC())

	// the cycle is done; a second run finds nothing
	res, err = env.svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Len(t, env.orders(t), 1)
}

func TestRun_SnapshottedDiscountIgnoresCurrentStorefrontRate(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	env.seedSub(t, types.SubscriptionStatusActive, now, func(s *models.Subscription) {
		s.DiscountPercent = 25
	})

	res, err := env.svc.Run(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)

	o := env.orders(t)[0]
	assert.EqualValues(t, 1125, o.UnitPrice)
	assert.Equal(t, 25, o.DiscountPercent)
}

func TestRun_OverdueCycleAdvancesFromScheduledDate(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	sched := schedule.DateOnly(now).AddDate(0, 0, -3)
	sub := env.seedSub(t, types.SubscriptionStatusActive, sched)

	res, err := env.svc.Run(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)

	orders := env.orders(t)
	require.Len(t, orders, 1)
	assert.Equal(t, sched.Format(time.DateOnly), orders[0].ScheduledDate)

	// next date derives from the scheduled cycle, not from today
	got := env.reload(t, sub.ID)
	assert.Equal(t, sched.AddDate(0, 0, 7), got.NextDeliveryDate.UTC())
}

func TestRun_PausedSubscriptions(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	holding := env.seedSub(t, types.SubscriptionStatusPaused, now, func(s *models.Subscription) {
		until := now.Add(240 * time.Hour)
		s.PauseUntil = &until
	})
	elapsed := env.seedSub(t, types.SubscriptionStatusPaused, schedule.DateOnly(now).AddDate(0, 0, -5), func(s *models.Subscription) {
		until := now.Add(-time.Hour)
		s.PauseUntil = &until
	})

	res, err := env.svc.Run(context.Background(), now)
	require.NoError(t, err)
	// the elapsed pause reactivates with a future date; the holding one is untouched
	assert.Equal(t, 0, res.Created)
	assert.Empty(t, env.orders(t))

	got := env.reload(t, elapsed.ID)
	assert.Equal(t, types.SubscriptionStatusActive, got.Status)
	assert.Equal(t, schedule.DateOnly(now).AddDate(0, 0, 7), got.NextDeliveryDate.UTC())

	got = env.reload(t, holding.ID)
	assert.Equal(t, types.SubscriptionStatusPaused, got.Status)
}

func TestRun_CatalogRefusalDefersCycle(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	sub := env.seedSub(t, types.SubscriptionStatusActive, now)

	env.catalog.err = catalog.ErrNotOrderable
	res, err := env.svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, env.orders(t))

	// the delivery date held, so the next run picks the cycle up again
	got := env.reload(t, sub.ID)
	assert.Equal(t, sub.NextDeliveryDate.UTC(), got.NextDeliveryDate.UTC())

	env.catalog.err = nil
	res, err = env.svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Len(t, env.orders(t), 1)
}

func TestRun_ExistingOrderForCycleStillAdvancesDate(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	sub := env.seedSub(t, types.SubscriptionStatusActive, now)

	// simulate a previous run that created the order but crashed before
	// advancing the delivery date
	require.NoError(t, env.db.Create(&models.Order{
		ID:             tool.GenerateUUIDV7(),
		SubscriptionID: sub.ID,
		CustomerID:     sub.CustomerID,
		ProductID:      sub.ProductID,
		Quantity:       2,
		UnitPrice:      1350,
		TotalPrice:     2700,
		Currency:       "USD",
		FrequencyLabel: "weekly",
		ScheduledDate:  sub.CycleDate(),
	}).Error)

	res, err := env.svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	// no double billing, and the schedule moved on
	assert.Len(t, env.orders(t), 1)
	got := env.reload(t, sub.ID)
	assert.Equal(t, schedule.DateOnly(now).AddDate(0, 0, 7), got.NextDeliveryDate.UTC())
}

func TestRun_CancelledSubscriptionNeverMaterializes(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	cancelledAt := now.Add(-time.Hour)
	env.seedSub(t, types.SubscriptionStatusCancelled, now, func(s *models.Subscription) {
		s.CancelledAt = &cancelledAt
	})

	res, err := env.svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Empty(t, env.orders(t))
}
