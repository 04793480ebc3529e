package catalog

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
)

var Module = fx.Module("catalog",
	fx.Provide(func(cfg config.Config, log *zap.Logger) ProductCatalog {
		if cfg.Catalog.Offline {
			return NewDefaultStaticCatalog()
		}
		return NewHTTPCatalog(cfg, log)
	}),
)
