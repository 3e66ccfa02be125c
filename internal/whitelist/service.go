package whitelist

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/rateshoplabs/rateshop/internal/countrycache"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidCountryCode = errors.New("invalid_country_code")

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cache *countrycache.Cache `optional:"true"`
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	cache *countrycache.Cache
}

func New(p Params) Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("whitelist.service"),
		genID: p.GenID,
		cache: p.Cache,
	}
}

var Module = fx.Module("whitelist.service",
	fx.Provide(New),
)

func (s *service) List(ctx context.Context) ([]AllowedCountry, error) {
	var rows []AllowedCountry
	err := s.db.WithContext(ctx).Order("sort_order ASC, country_code ASC").Find(&rows).Error
	return rows, err
}

func (s *service) Allowed(ctx context.Context, countryCode string) (bool, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&AllowedCountry{}).Count(&total).Error; err != nil {
		return false, err
	}
	if total == 0 {
		return true, nil
	}
	code := templatedomain.NormalizeCountryCode(countryCode)
	var n int64
	err := s.db.WithContext(ctx).Model(&AllowedCountry{}).
		Where("country_code = ?", code).Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *service) SetAll(ctx context.Context, countries []CountryInput) (int, error) {
	rows := make([]AllowedCountry, 0, len(countries))
	seen := make(map[string]bool, len(countries))
	for _, in := range countries {
		code := templatedomain.NormalizeCountryCode(in.CountryCode)
		if !templatedomain.ValidCountryCode(code) || seen[code] {
			return 0, ErrInvalidCountryCode
		}
		seen[code] = true
		rows = append(rows, AllowedCountry{
			ID:          s.genID.Generate(),
			CountryCode: code,
			CountryName: in.CountryName,
			SortOrder:   len(rows),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&AllowedCountry{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warn("country cache invalidation failed", zap.Error(err))
		}
	}
	return len(rows), nil
}
