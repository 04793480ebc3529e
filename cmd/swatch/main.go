package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/catalog"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/clock"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/events"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/ingest"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/inventory"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/migration"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/normalizer"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/observability"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/relationship"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/server"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/pkg/db"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			if cfg.Database.Driver == "sqlite" {
				return nil
			}
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return migration.RunMigrations(sqlDB)
		}),

		catalog.Module,
		inventory.Module,
		relationship.Module,
		normalizer.Module,
		events.Module,
		ingest.Module,
		server.Module,
	)
	app.Run()
}
