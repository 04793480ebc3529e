package relationship

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/relationship/domain"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/relationship/repository"
)

var Module = fx.Module("relationship",
	fx.Provide(func(db *gorm.DB, log *zap.Logger) domain.Repository {
		return repository.New(db, log)
	}),
)
