package ingest

import (
	"context"

	"go.uber.org/fx"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
)

var Module = fx.Module("ingest",
	fx.Provide(NewService),
	fx.Provide(newDispatcher),
)

func newDispatcher(lc fx.Lifecycle, cfg config.Config) *Dispatcher {
	d := NewDispatcher(cfg.Ingest.Lanes)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			d.Close()
			return nil
		},
	})
	return d
}
