// Package observability assembles logging, tracing, and metrics.
package observability

import (
	promclient "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/observability/logger"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/observability/metrics"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/observability/tracing"
)

var Module = fx.Module("observability",
	logger.Module,
	fx.Provide(func(cfg config.Config) metrics.Config {
		return metrics.Config{
			ServiceName: cfg.Telemetry.ServiceName,
			Environment: cfg.Environment,
		}
	}),
	fx.Provide(metrics.NewRegistry),
	fx.Provide(metrics.NewMeterProvider),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Provide(func(registry *promclient.Registry, cfg metrics.Config) *metrics.IngestMetrics {
		return metrics.NewIngestMetrics(registry, cfg)
	}),
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) error {
		_, err := tracing.NewProvider(lc, cfg, log)
		return err
	}),
)
