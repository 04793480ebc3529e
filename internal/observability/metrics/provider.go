package metrics

import (
	"context"

	promclient "github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRegistry provides the prometheus registry scraped by the /metrics
// endpoint.
func NewRegistry() *promclient.Registry {
	return promclient.NewRegistry()
}

// NewMeterProvider wires the otel metric SDK to the prometheus registry.
func NewMeterProvider(lc fx.Lifecycle, registry *promclient.Registry, log *zap.Logger) (metric.MeterProvider, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down meter provider")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}
