package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	zonedomain "github.com/rateshoplabs/rateshop/internal/zone/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  zonedomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  zonedomain.Repository
}

func New(p Params) zonedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("zone.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) ResolveZone(ctx context.Context, carrier, serviceCode, countryCode string) (string, error) {
	carrier = templatedomain.NormalizeCarrier(carrier)
	serviceCode = templatedomain.NormalizeServiceCode(serviceCode)
	countryCode = templatedomain.NormalizeCountryCode(countryCode)

	row, err := s.repo.Find(ctx, s.db, carrier, serviceCode, countryCode)
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", zonedomain.ErrNoZoneMapping
	}
	return row.Zone, nil
}

// SetMappings replaces the carrier+service mapping set wholesale and
// returns the stored row count.
func (s *Service) SetMappings(ctx context.Context, carrier, serviceCode string, mappings []zonedomain.MappingInput) (int, error) {
	carrier = templatedomain.NormalizeCarrier(carrier)
	if carrier == "" {
		return 0, zonedomain.ErrInvalidCarrier
	}
	serviceCode = templatedomain.NormalizeServiceCode(serviceCode)

	rows := make([]zonedomain.CountryZoneMapping, 0, len(mappings))
	seen := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		code := templatedomain.NormalizeCountryCode(m.CountryCode)
		zone := templatedomain.NormalizeZone(m.Zone)
		if !templatedomain.ValidCountryCode(code) || zone == "" {
			return 0, zonedomain.ErrInvalidMapping
		}
		if seen[code] {
			return 0, zonedomain.ErrInvalidMapping
		}
		seen[code] = true
		rows = append(rows, zonedomain.CountryZoneMapping{
			ID:          s.genID.Generate(),
			Carrier:     carrier,
			ServiceCode: serviceCode,
			CountryCode: code,
			CountryName: m.CountryName,
			Zone:        zone,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.ReplaceAll(ctx, tx, carrier, serviceCode, rows)
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *Service) List(ctx context.Context, carrier, serviceCode string) ([]zonedomain.CountryZoneMapping, error) {
	carrier = templatedomain.NormalizeCarrier(carrier)
	if carrier == "" {
		return nil, zonedomain.ErrInvalidCarrier
	}
	return s.repo.ListByCarrier(ctx, s.db, carrier, templatedomain.NormalizeServiceCode(serviceCode))
}
