package service

import (
	"context"
	"fmt"
	"math"

	"github.com/rateshoplabs/rateshop/internal/clock"
	"github.com/rateshoplabs/rateshop/internal/config"
	"github.com/rateshoplabs/rateshop/internal/countrycache"
	"github.com/rateshoplabs/rateshop/internal/freeship"
	quotedomain "github.com/rateshoplabs/rateshop/internal/quote/domain"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	"github.com/rateshoplabs/rateshop/internal/whitelist"
	zonedomain "github.com/rateshoplabs/rateshop/internal/zone/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Config    config.Config
	Clock     clock.Clock
	Repo      templatedomain.Repository
	Zones     zonedomain.Service
	Freeship  freeship.Service
	Whitelist whitelist.Service
	Cache     *countrycache.Cache `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      templatedomain.Repository
	zones     zonedomain.Service
	freeship  freeship.Service
	whitelist whitelist.Service
	cache     *countrycache.Cache
	currency  string
}

func New(p Params) quotedomain.Service {
	currency := templatedomain.NormalizeCurrency(p.Config.Shipping.DefaultCurrency)
	if !templatedomain.ValidCurrency(currency) {
		currency = "USD"
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("quote.service"),
		clock:     p.Clock,
		repo:      p.Repo,
		zones:     p.Zones,
		freeship:  p.Freeship,
		whitelist: p.Whitelist,
		cache:     p.Cache,
		currency:  currency,
	}
}

// Quote prices one parcel. Free-shipping wins over everything else, so
// a free country quotes zero even with no template at all.
func (s *Service) Quote(ctx context.Context, req quotedomain.Request) (*quotedomain.Result, error) {
	countryCode := templatedomain.NormalizeCountryCode(req.CountryCode)
	if !templatedomain.ValidCountryCode(countryCode) {
		return nil, templatedomain.ErrInvalidCountryCode
	}
	mode := req.Mode
	if mode == "" {
		mode = templatedomain.ModeCountry
	}

	free, err := s.freeship.IsFree(ctx, countryCode)
	if err != nil {
		return nil, err
	}
	if free {
		currency := s.currency
		if tpl, err := s.resolveTemplate(ctx, mode, countryCode, req); err == nil {
			currency = tpl.Currency
		}
		return &quotedomain.Result{
			CountryCode:     countryCode,
			Currency:        currency,
			WeightKg:        req.WeightKg,
			BillingWeightKg: req.WeightKg,
			Free:            true,
			BaseFee:         decimal.Zero,
			Fee:             decimal.Zero,
			Source:          string(mode),
		}, nil
	}

	tpl, err := s.resolveTemplate(ctx, mode, countryCode, req)
	if err != nil {
		return nil, err
	}

	if req.WeightKg <= 0 || math.IsNaN(req.WeightKg) || math.IsInf(req.WeightKg, 0) {
		return nil, quotedomain.ErrInvalidWeight
	}

	baseFee, billingKg, err := resolveBracket(tpl.WeightBrackets, req.WeightKg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s at %.3f kg", err, countryCode, req.WeightKg)
	}

	now := s.clock.Now(ctx)
	total := baseFee
	surchargeTotal := decimal.Zero
	var lines []quotedomain.SurchargeLine
	for _, sc := range tpl.Surcharges {
		if sc.ValidFrom != nil && now.Before(*sc.ValidFrom) {
			continue
		}
		if sc.ValidTo != nil && now.After(*sc.ValidTo) {
			continue
		}
		if sc.MinWeightKg != nil && req.WeightKg < *sc.MinWeightKg {
			continue
		}
		if sc.MaxWeightKg != nil && req.WeightKg > *sc.MaxWeightKg {
			continue
		}
		var amount decimal.Decimal
		switch {
		case sc.Amount != nil:
			amount = *sc.Amount
		case sc.Percent != nil:
			// Percent applies to the base fee only, never to other
			// surcharges.
			amount = baseFee.Mul(*sc.Percent).Div(decimal.NewFromInt(100))
		default:
			continue
		}
		total = total.Add(amount)
		surchargeTotal = surchargeTotal.Add(amount)
		lines = append(lines, quotedomain.SurchargeLine{
			Name:   sc.Name,
			Type:   string(sc.Type),
			Amount: amount,
		})
	}

	return &quotedomain.Result{
		CountryCode:     countryCode,
		Currency:        tpl.Currency,
		WeightKg:        req.WeightKg,
		BillingWeightKg: billingKg,
		BaseFee:         baseFee,
		Surcharges:      lines,
		SurchargeTotal:  surchargeTotal,
		Fee:             total.Round(2),
		Source:          string(mode),
	}, nil
}

func (s *Service) resolveTemplate(ctx context.Context, mode templatedomain.Mode, countryCode string, req quotedomain.Request) (*templatedomain.RateTemplate, error) {
	switch mode {
	case templatedomain.ModeCountry:
		tpl, err := s.repo.FindByKey(ctx, s.db, templatedomain.Key{
			Mode:        templatedomain.ModeCountry,
			CountryCode: countryCode,
		})
		if err != nil {
			return nil, err
		}
		if tpl == nil || !tpl.Active {
			return nil, quotedomain.ErrNoRateForCountry
		}
		return tpl, nil
	case templatedomain.ModeCarrier:
		carrier := templatedomain.NormalizeCarrier(req.Carrier)
		serviceCode := templatedomain.NormalizeServiceCode(req.ServiceCode)
		if carrier == "" {
			return nil, templatedomain.ErrInvalidCarrier
		}
		zone, err := s.zones.ResolveZone(ctx, carrier, serviceCode, countryCode)
		if err != nil {
			return nil, err
		}
		tpl, err := s.repo.FindByKey(ctx, s.db, templatedomain.Key{
			Mode:        templatedomain.ModeCarrier,
			Carrier:     carrier,
			ServiceCode: serviceCode,
			Zone:        zone,
		})
		if err != nil {
			return nil, err
		}
		if tpl == nil || !tpl.Active {
			return nil, quotedomain.ErrNoRateForZone
		}
		return tpl, nil
	default:
		return nil, templatedomain.ErrInvalidMode
	}
}

// resolveBracket picks a price for the weight. Parcels at or under 21kg
// bill at the ceiled kilogram against the flat section, rounding up to
// the nearest populated kg when the exact one is absent. Heavier
// parcels, or light ones with no flat coverage, fall to the per-kg
// bands at actual weight.
func resolveBracket(brackets []templatedomain.WeightBracket, weightKg float64) (decimal.Decimal, float64, error) {
	if weightKg <= float64(templatedomain.MaxFlatKg) {
		k := int(math.Ceil(weightKg))
		if k < 1 {
			k = 1
		}
		bestKg := 0
		var bestPrice decimal.Decimal
		for _, b := range brackets {
			if b.Kind != templatedomain.BracketFlatUnder21 || b.Kg < k {
				continue
			}
			if bestKg == 0 || b.Kg < bestKg {
				bestKg = b.Kg
				bestPrice = b.Price
			}
		}
		if bestKg != 0 {
			return bestPrice, float64(bestKg), nil
		}
	}

	for _, b := range brackets {
		if b.Kind != templatedomain.BracketPerKgOver21 {
			continue
		}
		if weightKg < b.MinKg {
			continue
		}
		if b.MaxKg != nil && weightKg >= *b.MaxKg {
			continue
		}
		w := decimal.NewFromFloat(weightKg)
		return b.BasePrice.Add(b.PricePerKg.Mul(w)), weightKg, nil
	}

	return decimal.Zero, 0, quotedomain.ErrNoRateForWeight
}

// Countries returns the storefront country selector contents, filtered
// by the whitelist when one is set. Listings are cached per scope.
func (s *Service) Countries(ctx context.Context, mode templatedomain.Mode, carrier, serviceCode string) ([]quotedomain.Country, error) {
	if mode == "" {
		mode = templatedomain.ModeCountry
	}
	carrier = templatedomain.NormalizeCarrier(carrier)
	serviceCode = templatedomain.NormalizeServiceCode(serviceCode)

	cacheKey := fmt.Sprintf("%s:%s:%s", mode, carrier, serviceCode)
	if s.cache != nil {
		var cached []quotedomain.Country
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	var rows []quotedomain.Country
	switch mode {
	case templatedomain.ModeCountry:
		err := s.db.WithContext(ctx).
			Model(&templatedomain.RateTemplate{}).
			Select("country_code, country_name").
			Where("mode = ? AND active = ?", templatedomain.ModeCountry, true).
			Order("country_code ASC").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
	case templatedomain.ModeCarrier:
		if carrier == "" {
			return nil, templatedomain.ErrInvalidCarrier
		}
		mappings, err := s.zones.List(ctx, carrier, serviceCode)
		if err != nil {
			return nil, err
		}
		for _, m := range mappings {
			rows = append(rows, quotedomain.Country{
				CountryCode: m.CountryCode,
				CountryName: m.CountryName,
			})
		}
	default:
		return nil, templatedomain.ErrInvalidMode
	}

	allowed, err := s.whitelist.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(allowed) > 0 {
		set := make(map[string]bool, len(allowed))
		for _, a := range allowed {
			set[a.CountryCode] = true
		}
		filtered := rows[:0]
		for _, r := range rows {
			if set[r.CountryCode] {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, rows); err != nil {
			s.log.Warn("country cache write failed", zap.Error(err))
		}
	}
	return rows, nil
}

func (s *Service) FreeCountries(ctx context.Context) ([]quotedomain.Country, error) {
	settings, err := s.freeship.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]quotedomain.Country, 0, len(settings))
	for _, st := range settings {
		if !st.Enabled {
			continue
		}
		out = append(out, quotedomain.Country{
			CountryCode: st.CountryCode,
			CountryName: st.CountryName,
		})
	}
	return out, nil
}
