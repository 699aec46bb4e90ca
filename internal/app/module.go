package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/dailybrew/replenish/internal/app/api/server"
	"github.com/dailybrew/replenish/internal/app/service/decision"
	"github.com/dailybrew/replenish/internal/app/service/materializer"
	"github.com/dailybrew/replenish/internal/app/service/reminder"
	"github.com/dailybrew/replenish/internal/app/service/schedule"
	"github.com/dailybrew/replenish/internal/app/service/statistics"
	"github.com/dailybrew/replenish/internal/app/service/subscription"
	"github.com/dailybrew/replenish/internal/app/service/token"
	"github.com/dailybrew/replenish/internal/app/worker"
	"github.com/dailybrew/replenish/internal/platform/catalog"
	"github.com/dailybrew/replenish/internal/platform/db"
	"github.com/dailybrew/replenish/internal/platform/ledger"
	"github.com/dailybrew/replenish/internal/platform/notify"
	"github.com/dailybrew/replenish/pkg/config"
	"github.com/dailybrew/replenish/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	catalog.Module,
	notify.Module,
	ledger.Module,
	server.Module,
	schedule.Module,
	token.Module,
	reminder.Module,
	decision.Module,
	materializer.Module,
	subscription.Module,
	statistics.Module,
	worker.Module,
)
