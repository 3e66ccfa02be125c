// Package migration creates and upgrades the schema from the gorm
// models. Run explicitly via the migrate command before serving.
package migration

import (
	"github.com/rateshoplabs/rateshop/internal/freeship"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	"github.com/rateshoplabs/rateshop/internal/whitelist"
	zonedomain "github.com/rateshoplabs/rateshop/internal/zone/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Run(db *gorm.DB, log *zap.Logger) error {
	log.Info("applying schema migrations")
	return db.AutoMigrate(
		&templatedomain.RateTemplate{},
		&templatedomain.WeightBracket{},
		&templatedomain.Surcharge{},
		&zonedomain.CountryZoneMapping{},
		&freeship.FreeShippingSetting{},
		&whitelist.AllowedCountry{},
	)
}

var Module = fx.Module("migration",
	fx.Invoke(Run),
)
