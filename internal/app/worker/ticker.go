package worker

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dailybrew/replenish/internal/app/service/materializer"
	"github.com/dailybrew/replenish/internal/app/service/reminder"
	cfgpkg "github.com/dailybrew/replenish/pkg/config"
)

// runTicker drives the daily reminder and materializer runs when
// scheduler.enabled is set. Deployments with an external cron keep it off and
// use the operator endpoints instead; both paths are idempotent per cycle.
func runTicker(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, rem *reminder.Service, mat *materializer.Service) {
	if !cfg.Scheduler.Enabled {
		return
	}

	stop := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("scheduler ticker started", "interval", cfg.Scheduler.Interval)
			go func() {
				ticker := time.NewTicker(cfg.Scheduler.Interval)
				defer ticker.Stop()
				for {
					select {
					case <-stop:
						return
					case now := <-ticker.C:
						runOnce(log, rem, mat, now)
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			log.Infow("scheduler ticker stopped")
			return nil
		},
	})
}

func runOnce(log *zap.SugaredLogger, rem *reminder.Service, mat *materializer.Service, now time.Time) {
	ctx := context.Background()
	if res, err := rem.Run(ctx, now); err != nil {
		log.Errorf("scheduled reminder run failed: %v", err)
	} else {
		log.Infow("scheduled reminder run", "dispatched", res.Dispatched, "failed", res.Failed)
	}
	if res, err := mat.Run(ctx, now); err != nil {
		log.Errorf("scheduled materializer run failed: %v", err)
	} else {
		log.Infow("scheduled materializer run", "created", res.Created, "skipped", res.Skipped, "failed", res.Failed)
	}
}

var Module = fx.Options(
	fx.Invoke(runTicker),
)
