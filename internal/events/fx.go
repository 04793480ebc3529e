package events

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
)

var Module = fx.Module("events",
	fx.Provide(NewOutbox),
	fx.Provide(func(log *zap.Logger) Sink {
		return NewLoggingSink(log)
	}),
	fx.Provide(NewRelay),
	fx.Invoke(runRelay),
)

func runRelay(lc fx.Lifecycle, relay *Relay, cfg config.Config) {
	if !cfg.Relay.Enabled {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go relay.RunForever(context.Background())
			return nil
		},
	})
}
