package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rateshoplabs/rateshop/internal/countrycache"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	zonedomain "github.com/rateshoplabs/rateshop/internal/zone/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     templatedomain.Repository
	ZoneRepo zonedomain.Repository
	Cache    *countrycache.Cache `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     templatedomain.Repository
	zoneRepo zonedomain.Repository
	cache    *countrycache.Cache
}

func New(p Params) templatedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("template.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		zoneRepo: p.ZoneRepo,
		cache:    p.Cache,
	}
}

// Upsert validates and stores one template, replacing its bracket and
// surcharge sets wholesale. A validation failure leaves the stored
// template untouched.
func (s *Service) Upsert(ctx context.Context, req templatedomain.UpsertRequest) (*templatedomain.RateTemplate, error) {
	key := normalizeKey(req.Key)
	if err := templatedomain.ValidateKey(key); err != nil {
		return nil, err
	}

	currency := templatedomain.NormalizeCurrency(req.Currency)
	if currency == "" {
		currency = "USD"
	}
	if !templatedomain.ValidCurrency(currency) {
		return nil, templatedomain.ErrInvalidCurrency
	}

	if err := templatedomain.ValidateBrackets(req.Brackets); err != nil {
		return nil, err
	}
	if err := templatedomain.ValidateSurcharges(req.Surcharges); err != nil {
		return nil, err
	}

	tpl := s.buildTemplate(key, req, currency)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Replace(ctx, tx, tpl)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCountries(ctx)
	s.log.Info("template upserted",
		zap.String("mode", string(tpl.Mode)),
		zap.String("carrier", tpl.Carrier),
		zap.String("zone", tpl.Zone),
		zap.String("country_code", tpl.CountryCode))
	return tpl, nil
}

func (s *Service) buildTemplate(key templatedomain.Key, req templatedomain.UpsertRequest, currency string) *templatedomain.RateTemplate {
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	tpl := &templatedomain.RateTemplate{
		ID:          s.genID.Generate(),
		Mode:        key.Mode,
		Carrier:     key.Carrier,
		ServiceCode: key.ServiceCode,
		Zone:        key.Zone,
		CountryCode: key.CountryCode,
		CountryName: req.CountryName,
		Currency:    currency,
		Active:      active,
	}
	if req.Metadata != nil {
		tpl.Metadata = datatypes.JSONMap(req.Metadata)
	}

	for _, b := range req.Brackets {
		row := templatedomain.WeightBracket{
			ID:   s.genID.Generate(),
			Kind: b.Kind,
		}
		switch b.Kind {
		case templatedomain.BracketFlatUnder21:
			row.Kg = b.Kg
			row.Price = b.Price
		case templatedomain.BracketPerKgOver21:
			row.MinKg = b.MinKg
			row.MaxKg = b.MaxKg
			row.PricePerKg = b.PricePerKg
			row.BasePrice = b.BasePrice
		}
		tpl.WeightBrackets = append(tpl.WeightBrackets, row)
	}

	for i, sc := range req.Surcharges {
		tpl.Surcharges = append(tpl.Surcharges, templatedomain.Surcharge{
			ID:          s.genID.Generate(),
			Name:        sc.Name,
			Type:        sc.Type,
			Amount:      sc.Amount,
			Percent:     sc.Percent,
			ValidFrom:   sc.ValidFrom,
			ValidTo:     sc.ValidTo,
			MinWeightKg: sc.MinWeightKg,
			MaxWeightKg: sc.MaxWeightKg,
			Position:    i,
		})
	}
	return tpl
}

func (s *Service) Get(ctx context.Context, key templatedomain.Key) (*templatedomain.RateTemplate, error) {
	key = normalizeKey(key)
	if err := templatedomain.ValidateKey(key); err != nil {
		return nil, err
	}
	tpl, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, templatedomain.ErrNotFound
	}
	return tpl, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*templatedomain.RateTemplate, error) {
	tpl, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, templatedomain.ErrNotFound
	}
	return tpl, nil
}

func (s *Service) List(ctx context.Context, opts templatedomain.ListOptions) ([]templatedomain.Summary, error) {
	opts.Carrier = templatedomain.NormalizeCarrier(opts.Carrier)
	opts.ServiceCode = templatedomain.NormalizeServiceCode(opts.ServiceCode)

	rows, err := s.repo.List(ctx, s.db, opts)
	if err != nil {
		return nil, err
	}

	out := make([]templatedomain.Summary, 0, len(rows))
	for _, row := range rows {
		brackets, surcharges, err := s.repo.CountChildren(ctx, s.db, row.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, templatedomain.Summary{
			ID:              row.ID,
			Mode:            row.Mode,
			Carrier:         row.Carrier,
			ServiceCode:     row.ServiceCode,
			Zone:            row.Zone,
			CountryCode:     row.CountryCode,
			CountryName:     row.CountryName,
			Currency:        row.Currency,
			Active:          row.Active,
			WeightBrackets:  brackets,
			QuoteSurcharges: surcharges,
			CreatedAt:       row.CreatedAt,
			UpdatedAt:       row.UpdatedAt,
		})
	}
	return out, nil
}

// BulkDelete removes templates by country code, or everything in scope
// when All is set. Absent codes are skipped, so repeating a delete is a
// no-op that reports zero additional rows.
func (s *Service) BulkDelete(ctx context.Context, req templatedomain.BulkDeleteRequest) (int64, error) {
	var deleted int64
	var err error
	switch req.Mode {
	case templatedomain.ModeCountry:
		deleted, err = s.bulkDeleteCountry(ctx, req)
	case templatedomain.ModeCarrier:
		deleted, err = s.bulkDeleteCarrier(ctx, req)
	default:
		return 0, templatedomain.ErrInvalidMode
	}
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.invalidateCountries(ctx)
	}
	return deleted, nil
}

func (s *Service) bulkDeleteCountry(ctx context.Context, req templatedomain.BulkDeleteRequest) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.All {
			res := tx.Where("mode = ?", templatedomain.ModeCountry)
			var ids []snowflake.ID
			if err := res.Model(&templatedomain.RateTemplate{}).Pluck("id", &ids).Error; err != nil {
				return err
			}
			return s.deleteTemplates(ctx, tx, ids, &deleted)
		}
		codes := make([]string, 0, len(req.CountryCodes))
		for _, c := range req.CountryCodes {
			code := templatedomain.NormalizeCountryCode(c)
			if !templatedomain.ValidCountryCode(code) {
				return templatedomain.ErrInvalidCountryCode
			}
			codes = append(codes, code)
		}
		var ids []snowflake.ID
		if err := tx.Model(&templatedomain.RateTemplate{}).
			Where("mode = ? AND country_code IN ?", templatedomain.ModeCountry, codes).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		return s.deleteTemplates(ctx, tx, ids, &deleted)
	})
	return deleted, err
}

// bulkDeleteCarrier detaches the given countries from their zones and
// drops any zone template left with no mapped country.
func (s *Service) bulkDeleteCarrier(ctx context.Context, req templatedomain.BulkDeleteRequest) (int64, error) {
	carrier := templatedomain.NormalizeCarrier(req.Carrier)
	if carrier == "" {
		return 0, templatedomain.ErrInvalidCarrier
	}
	serviceCode := templatedomain.NormalizeServiceCode(req.ServiceCode)

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.All {
			if _, err := s.zoneRepo.DeleteByCarrier(ctx, tx, carrier, serviceCode); err != nil {
				return err
			}
			q := tx.Model(&templatedomain.RateTemplate{}).
				Where("mode = ? AND carrier = ?", templatedomain.ModeCarrier, carrier)
			if serviceCode != "" {
				q = q.Where("service_code = ?", serviceCode)
			}
			var ids []snowflake.ID
			if err := q.Pluck("id", &ids).Error; err != nil {
				return err
			}
			return s.deleteTemplates(ctx, tx, ids, &deleted)
		}

		codes := make([]string, 0, len(req.CountryCodes))
		for _, c := range req.CountryCodes {
			code := templatedomain.NormalizeCountryCode(c)
			if !templatedomain.ValidCountryCode(code) {
				return templatedomain.ErrInvalidCountryCode
			}
			codes = append(codes, code)
		}

		mappings, err := s.zoneRepo.ListByCarrier(ctx, tx, carrier, serviceCode)
		if err != nil {
			return err
		}
		affected := make(map[string]map[string]bool) // service -> zones touched
		wanted := make(map[string]bool, len(codes))
		for _, c := range codes {
			wanted[c] = true
		}
		for _, m := range mappings {
			if !wanted[m.CountryCode] {
				continue
			}
			if affected[m.ServiceCode] == nil {
				affected[m.ServiceCode] = make(map[string]bool)
			}
			affected[m.ServiceCode][m.Zone] = true
		}

		if _, err := s.zoneRepo.DeleteByCountries(ctx, tx, carrier, serviceCode, codes); err != nil {
			return err
		}

		for svc, zones := range affected {
			for zone := range zones {
				remaining, err := s.zoneRepo.CountByZone(ctx, tx, carrier, svc, zone)
				if err != nil {
					return err
				}
				if remaining > 0 {
					continue
				}
				tpl, err := s.repo.FindByKey(ctx, tx, templatedomain.Key{
					Mode:        templatedomain.ModeCarrier,
					Carrier:     carrier,
					ServiceCode: svc,
					Zone:        zone,
				})
				if err != nil {
					return err
				}
				if tpl == nil {
					continue
				}
				if err := s.repo.Delete(ctx, tx, tpl.ID); err != nil {
					return err
				}
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}

func (s *Service) deleteTemplates(ctx context.Context, tx *gorm.DB, ids []snowflake.ID, deleted *int64) error {
	for _, id := range ids {
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}
		*deleted++
	}
	return nil
}

func (s *Service) invalidateCountries(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("country cache invalidation failed", zap.Error(err))
	}
}

func normalizeKey(key templatedomain.Key) templatedomain.Key {
	key.CountryCode = templatedomain.NormalizeCountryCode(key.CountryCode)
	key.Carrier = templatedomain.NormalizeCarrier(key.Carrier)
	key.ServiceCode = templatedomain.NormalizeServiceCode(key.ServiceCode)
	key.Zone = templatedomain.NormalizeZone(key.Zone)
	return key
}
