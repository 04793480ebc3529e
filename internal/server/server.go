// Package server exposes the HTTP surface: host event intake, health
// probes, and the metrics endpoint.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/clock"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/ingest"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/observability/logger"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/observability/metrics"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(cfg config.Config, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.IsCloud() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/readyz", "/metrics"},
	}))
	engine.Use(metrics.GinMiddleware(httpMetrics))
	return engine
}

type Param struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	DB         *gorm.DB
	Engine     *gin.Engine
	Registry   *promclient.Registry
	Clock      clock.Clock
	Ingest     *ingest.Service
	Dispatcher *ingest.Dispatcher
}

type Server struct {
	cfg        config.Config
	log        *zap.Logger
	db         *gorm.DB
	engine     *gin.Engine
	registry   *promclient.Registry
	clock      clock.Clock
	ingest     *ingest.Service
	dispatcher *ingest.Dispatcher
	validate   *validator.Validate
}

func NewServer(p Param) *Server {
	return &Server{
		cfg:        p.Config,
		log:        p.Log.Named("server"),
		db:         p.DB,
		engine:     p.Engine,
		registry:   p.Registry,
		clock:      p.Clock,
		ingest:     p.Ingest,
		dispatcher: p.Dispatcher,
		validate:   validator.New(),
	}
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/readyz", s.Readyz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api/v1")
	api.POST("/hosts/events", s.HandleHostEvent)
	api.POST("/hosts/delete", s.HandleHostDelete)
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports ready once the database answers a ping.
func (s *Server) Readyz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server) {
	httpServer := &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", httpServer.Addr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	})
}
