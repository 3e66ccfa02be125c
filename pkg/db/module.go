// Package db opens the gorm database handle from configuration.
package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rateshoplabs/rateshop/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(Open),
)

func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Database.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.GormPlugin {
		if err := gdb.Use(gormprometheus.New(gormprometheus.Config{
			DBName:          "rateshop",
			RefreshInterval: 15,
		})); err != nil {
			return nil, fmt.Errorf("install gorm prometheus plugin: %w", err)
		}
	}

	log.Named("db").Info("database opened", zap.String("driver", cfg.Database.Driver))
	return gdb, nil
}
