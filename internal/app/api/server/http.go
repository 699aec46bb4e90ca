package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dailybrew/replenish/docs"
	"github.com/dailybrew/replenish/internal/app/api/handlers"
	mw "github.com/dailybrew/replenish/internal/app/api/middleware"
	"github.com/dailybrew/replenish/internal/app/service/decision"
	"github.com/dailybrew/replenish/internal/app/service/materializer"
	"github.com/dailybrew/replenish/internal/app/service/reminder"
	"github.com/dailybrew/replenish/internal/app/service/statistics"
	subsvc "github.com/dailybrew/replenish/internal/app/service/subscription"
	tokensvc "github.com/dailybrew/replenish/internal/app/service/token"
	"github.com/dailybrew/replenish/internal/platform/catalog"
	cfgpkg "github.com/dailybrew/replenish/pkg/config"
	metrics "github.com/dailybrew/replenish/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func registerRoutes(
	r *gin.Engine,
	log *zap.SugaredLogger,
	cfg *cfgpkg.Config,
	db *gorm.DB,
	cat catalog.Catalog,
	tokens *tokensvc.Service,
	proc *decision.Service,
	sub *subsvc.Service,
	rem *reminder.Service,
	mat *materializer.Service,
	stats *statistics.Service,
) {
	// Prometheus metrics
	if cfg != nil && cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Confirmation flow is public: possessing the token is the credential
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterConfirmationRoutes(apiV1, tokens, db, cat, proc)

	// Owner-facing subscription management
	customer := apiV1.Group("/")
	customer.Use(mw.CustomerAuthMiddleware(cfg))
	handlers.RegisterSubscriptionRoutes(customer, sub)

	// Operator surface
	admin := apiV1.Group("/admin")
	admin.Use(mw.AdminAuthMiddleware(cfg))
	handlers.RegisterAdminRoutes(admin, rem, mat, stats, db)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
