package shipfile

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/rateshoplabs/rateshop/internal/config"
	"github.com/rateshoplabs/rateshop/internal/countrycache"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	zonedomain "github.com/rateshoplabs/rateshop/internal/zone/domain"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	GenID    *snowflake.Node
	Repo     templatedomain.Repository
	ZoneRepo zonedomain.Repository
	Cache    *countrycache.Cache `optional:"true"`
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     templatedomain.Repository
	zoneRepo zonedomain.Repository
	cache    *countrycache.Cache
	currency string
}

func New(p Params) Service {
	currency := templatedomain.NormalizeCurrency(p.Config.Shipping.DefaultCurrency)
	if !templatedomain.ValidCurrency(currency) {
		currency = "USD"
	}
	return &service{
		db:       p.DB,
		log:      p.Log.Named("shipfile.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		zoneRepo: p.ZoneRepo,
		cache:    p.Cache,
		currency: currency,
	}
}

var Module = fx.Module("shipfile.service",
	fx.Provide(New),
)

func (s *service) Import(ctx context.Context, data []byte, opts ImportOptions) (*ImportResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	switch opts.Mode {
	case templatedomain.ModeCountry:
		return s.importCountry(ctx, f, opts)
	case templatedomain.ModeCarrier:
		return s.importCarrier(ctx, f, opts)
	default:
		return nil, templatedomain.ErrInvalidMode
	}
}

func (s *service) importCountry(ctx context.Context, f *excelize.File, opts ImportOptions) (*ImportResult, error) {
	currency := templatedomain.NormalizeCurrency(opts.Currency)
	if currency == "" {
		currency = s.currency
	}

	rep := &ValidationReport{}
	tpls, order := parseRates(f, templatedomain.ModeCountry, currency, rep)
	parseBands(f, templatedomain.ModeCountry, tpls, rep)
	parseSurcharges(f, templatedomain.ModeCountry, tpls, rep)
	validateParsed(tpls, order, rep)
	if !rep.empty() {
		return nil, rep
	}

	result := &ImportResult{ReportID: uuid.NewString()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range order {
			p := tpls[key]
			created, err := s.storeTemplate(ctx, tx, templatedomain.Key{
				Mode:        templatedomain.ModeCountry,
				CountryCode: key,
			}, p)
			if err != nil {
				return err
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}

		if opts.Replace {
			deleted, err := s.deleteAbsent(ctx, tx, templatedomain.ListOptions{
				Mode: templatedomain.ModeCountry,
			}, func(tpl templatedomain.RateTemplate) bool {
				_, present := tpls[tpl.CountryCode]
				return present
			})
			if err != nil {
				return err
			}
			result.Deleted = deleted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.CountriesAffected = len(order)
	s.invalidate(ctx)
	s.log.Info("country rate import applied",
		zap.String("report_id", result.ReportID),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted))
	return result, nil
}

func (s *service) importCarrier(ctx context.Context, f *excelize.File, opts ImportOptions) (*ImportResult, error) {
	metaCarrier, metaService, metaCurrency := parseMeta(f)
	carrier := templatedomain.NormalizeCarrier(opts.Carrier)
	if carrier == "" {
		carrier = metaCarrier
	}
	serviceCode := templatedomain.NormalizeServiceCode(opts.ServiceCode)
	if serviceCode == "" {
		serviceCode = metaService
	}
	currency := templatedomain.NormalizeCurrency(opts.Currency)
	if currency == "" {
		currency = metaCurrency
	}
	if currency == "" {
		currency = s.currency
	}

	rep := &ValidationReport{}
	if carrier == "" {
		rep.add(sheetMeta, 1, "", "carrier is required")
	}

	mappings := parseCountryZones(f, rep)
	tpls, order := parseRates(f, templatedomain.ModeCarrier, currency, rep)
	parseBands(f, templatedomain.ModeCarrier, tpls, rep)
	parseSurcharges(f, templatedomain.ModeCarrier, tpls, rep)
	validateParsed(tpls, order, rep)

	// Every mapped zone needs rates and every rated zone needs at least
	// one mapped country.
	mappedZones := make(map[string]bool)
	for _, m := range mappings {
		mappedZones[m.Zone] = true
		if _, ok := tpls[m.Zone]; !ok {
			rep.add(sheetCountryZones, 1, "",
				fmt.Sprintf("%s: country %s maps to zone %s with no Rates row", ErrMissingZoneMapping, m.CountryCode, m.Zone))
		}
	}
	for _, zone := range order {
		if !mappedZones[zone] {
			rep.add(sheetRates, 1, "",
				fmt.Sprintf("%s: zone %s has no mapped country", ErrMissingZoneMapping, zone))
		}
	}
	if !rep.empty() {
		return nil, rep
	}

	result := &ImportResult{ReportID: uuid.NewString()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := make([]zonedomain.CountryZoneMapping, 0, len(mappings))
		for _, m := range mappings {
			rows = append(rows, zonedomain.CountryZoneMapping{
				ID:          s.genID.Generate(),
				Carrier:     carrier,
				ServiceCode: serviceCode,
				CountryCode: m.CountryCode,
				CountryName: m.CountryName,
				Zone:        m.Zone,
			})
		}
		if opts.Replace {
			if err := s.zoneRepo.ReplaceAll(ctx, tx, carrier, serviceCode, rows); err != nil {
				return err
			}
		} else {
			codes := make([]string, 0, len(mappings))
			for _, m := range mappings {
				codes = append(codes, m.CountryCode)
			}
			if _, err := s.zoneRepo.DeleteByCountries(ctx, tx, carrier, serviceCode, codes); err != nil {
				return err
			}
			if len(rows) > 0 {
				if err := tx.WithContext(ctx).Create(&rows).Error; err != nil {
					return err
				}
			}
		}
		result.MappingsSet = len(rows)

		for _, zone := range order {
			p := tpls[zone]
			created, err := s.storeTemplate(ctx, tx, templatedomain.Key{
				Mode:        templatedomain.ModeCarrier,
				Carrier:     carrier,
				ServiceCode: serviceCode,
				Zone:        zone,
			}, p)
			if err != nil {
				return err
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}

		if opts.Replace {
			deleted, err := s.deleteAbsent(ctx, tx, templatedomain.ListOptions{
				Mode:        templatedomain.ModeCarrier,
				Carrier:     carrier,
				ServiceCode: serviceCode,
			}, func(tpl templatedomain.RateTemplate) bool {
				_, present := tpls[tpl.Zone]
				return present
			})
			if err != nil {
				return err
			}
			result.Deleted = deleted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.CountriesAffected = len(mappings)
	s.invalidate(ctx)
	s.log.Info("carrier rate import applied",
		zap.String("report_id", result.ReportID),
		zap.String("carrier", carrier),
		zap.String("service_code", serviceCode),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
		zap.Int("mappings", result.MappingsSet))
	return result, nil
}

func validateParsed(tpls map[string]*parsedTemplate, order []string, rep *ValidationReport) {
	for _, key := range order {
		p := tpls[key]
		if err := templatedomain.ValidateBrackets(p.brackets); err != nil {
			rep.add(sheetRates, 1, "", fmt.Sprintf("%s: %v", key, err))
		}
		if err := templatedomain.ValidateSurcharges(p.surcharges); err != nil {
			rep.add(sheetSurcharges, 1, "", fmt.Sprintf("%s: %v", key, err))
		}
	}
}

// storeTemplate replaces one template wholesale and reports whether it
// was newly created.
func (s *service) storeTemplate(ctx context.Context, tx *gorm.DB, key templatedomain.Key, p *parsedTemplate) (bool, error) {
	existing, err := s.repo.FindByKey(ctx, tx, key)
	if err != nil {
		return false, err
	}

	tpl := &templatedomain.RateTemplate{
		ID:          s.genID.Generate(),
		Mode:        key.Mode,
		Carrier:     key.Carrier,
		ServiceCode: key.ServiceCode,
		Zone:        key.Zone,
		CountryCode: key.CountryCode,
		CountryName: p.countryName,
		Currency:    p.currency,
		Active:      true,
	}
	for _, b := range p.brackets {
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
	for i, sc := range p.surcharges {
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

	if err := s.repo.Replace(ctx, tx, tpl); err != nil {
		return false, err
	}
	return existing == nil, nil
}

func (s *service) deleteAbsent(ctx context.Context, tx *gorm.DB, scope templatedomain.ListOptions, keep func(templatedomain.RateTemplate) bool) (int, error) {
	existing, err := s.repo.List(ctx, tx, scope)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, tpl := range existing {
		if keep(tpl) {
			continue
		}
		if err := s.repo.Delete(ctx, tx, tpl.ID); err != nil {
			return 0, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *service) Export(ctx context.Context, opts ExportOptions) (*bytes.Buffer, error) {
	mode := opts.Mode
	if mode == "" {
		mode = templatedomain.ModeCountry
	}
	carrier := templatedomain.NormalizeCarrier(opts.Carrier)
	serviceCode := templatedomain.NormalizeServiceCode(opts.ServiceCode)

	summaries, err := s.repo.List(ctx, s.db, templatedomain.ListOptions{
		Mode:        mode,
		Carrier:     carrier,
		ServiceCode: serviceCode,
		Search:      opts.Search,
	})
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return s.Sample(mode)
	}

	templates := make([]templatedomain.RateTemplate, 0, len(summaries))
	currency := s.currency
	for _, row := range summaries {
		full, err := s.repo.FindByID(ctx, s.db, row.ID)
		if err != nil {
			return nil, err
		}
		if full == nil {
			continue
		}
		templates = append(templates, *full)
		currency = full.Currency
	}

	var mappings []zonedomain.CountryZoneMapping
	if mode == templatedomain.ModeCarrier {
		mappings, err = s.zoneRepo.ListByCarrier(ctx, s.db, carrier, serviceCode)
		if err != nil {
			return nil, err
		}
	}

	f, err := renderWorkbook(mode, carrier, serviceCode, currency, templates, mappings)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.WriteToBuffer()
}

// Sample renders a starter workbook with one worked example so
// administrators can see the expected columns.
func (s *service) Sample(mode templatedomain.Mode) (*bytes.Buffer, error) {
	if mode == "" {
		mode = templatedomain.ModeCountry
	}

	maxKg := 30.0
	amount := decimal.NewFromInt(3)
	sample := templatedomain.RateTemplate{
		Mode:        mode,
		CountryCode: "US",
		CountryName: "United States",
		Currency:    s.currency,
		WeightBrackets: []templatedomain.WeightBracket{
			{Kind: templatedomain.BracketFlatUnder21, Kg: 1, Price: decimal.NewFromInt(10)},
			{Kind: templatedomain.BracketFlatUnder21, Kg: 5, Price: decimal.NewFromInt(20)},
			{Kind: templatedomain.BracketFlatUnder21, Kg: 10, Price: decimal.NewFromInt(32)},
			{Kind: templatedomain.BracketFlatUnder21, Kg: 21, Price: decimal.NewFromInt(55)},
			{Kind: templatedomain.BracketPerKgOver21, MinKg: 21, MaxKg: &maxKg,
				PricePerKg: decimal.NewFromInt(2), BasePrice: decimal.NewFromInt(5)},
			{Kind: templatedomain.BracketPerKgOver21, MinKg: 30,
				PricePerKg: decimal.RequireFromString("1.8"), BasePrice: decimal.NewFromInt(5)},
		},
		Surcharges: []templatedomain.Surcharge{
			{Name: "Peak season", Type: templatedomain.SurchargePeakSeason, Amount: &amount},
		},
	}

	var mappings []zonedomain.CountryZoneMapping
	if mode == templatedomain.ModeCarrier {
		sample.CountryCode = ""
		sample.Zone = "Z1"
		sample.CountryName = "Z1"
		mappings = []zonedomain.CountryZoneMapping{
			{Carrier: "FEDEX", ServiceCode: "IP", CountryCode: "US", CountryName: "United States", Zone: "Z1"},
		}
	}

	f, err := renderWorkbook(mode, "FEDEX", "IP", s.currency,
		[]templatedomain.RateTemplate{sample}, mappings)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.WriteToBuffer()
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("country cache invalidation failed", zap.Error(err))
	}
}
