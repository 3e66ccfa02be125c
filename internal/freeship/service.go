package freeship

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
		log:   p.Log.Named("freeship.service"),
		genID: p.GenID,
		cache: p.Cache,
	}
}

var Module = fx.Module("freeship.service",
	fx.Provide(New),
)

func (s *service) IsFree(ctx context.Context, countryCode string) (bool, error) {
	code := templatedomain.NormalizeCountryCode(countryCode)
	var row FreeShippingSetting
	err := s.db.WithContext(ctx).
		Where("country_code = ? AND enabled = ?", code, true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *service) List(ctx context.Context) ([]FreeShippingSetting, error) {
	var rows []FreeShippingSetting
	err := s.db.WithContext(ctx).Order("country_code ASC").Find(&rows).Error
	return rows, err
}

func (s *service) SetAll(ctx context.Context, settings []SettingInput) (int, error) {
	rows := make([]FreeShippingSetting, 0, len(settings))
	seen := make(map[string]bool, len(settings))
	for _, in := range settings {
		code := templatedomain.NormalizeCountryCode(in.CountryCode)
		if !templatedomain.ValidCountryCode(code) || seen[code] {
			return 0, ErrInvalidCountryCode
		}
		seen[code] = true
		enabled := true
		if in.Enabled != nil {
			enabled = *in.Enabled
		}
		rows = append(rows, FreeShippingSetting{
			ID:          s.genID.Generate(),
			CountryCode: code,
			CountryName: in.CountryName,
			Enabled:     enabled,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&FreeShippingSetting{}).Error; err != nil {
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
