package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/rateshoplabs/rateshop/internal/clock"
	"github.com/rateshoplabs/rateshop/internal/config"
	"github.com/rateshoplabs/rateshop/internal/freeship"
	quotedomain "github.com/rateshoplabs/rateshop/internal/quote/domain"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	templaterepository "github.com/rateshoplabs/rateshop/internal/template/repository"
	templateservice "github.com/rateshoplabs/rateshop/internal/template/service"
	"github.com/rateshoplabs/rateshop/internal/whitelist"
	zonedomain "github.com/rateshoplabs/rateshop/internal/zone/domain"
	zonerepository "github.com/rateshoplabs/rateshop/internal/zone/repository"
	zoneservice "github.com/rateshoplabs/rateshop/internal/zone/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type quoteFixture struct {
	db          *gorm.DB
	quoteSvc    quotedomain.Service
	templateSvc templatedomain.Service
	zoneSvc     zonedomain.Service
	freeshipSvc freeship.Service
}

func setupQuoteTest(t *testing.T, now time.Time) *quoteFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&templatedomain.RateTemplate{},
		&templatedomain.WeightBracket{},
		&templatedomain.Surcharge{},
		&zonedomain.CountryZoneMapping{},
		&freeship.FreeShippingSetting{},
		&whitelist.AllowedCountry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	tplRepo := templaterepository.New()
	zoneRepo := zonerepository.New()

	templateSvc := templateservice.New(templateservice.Params{
		DB: db, Log: log, GenID: node, Repo: tplRepo, ZoneRepo: zoneRepo,
	})
	zoneSvc := zoneservice.New(zoneservice.Params{
		DB: db, Log: log, GenID: node, Repo: zoneRepo,
	})
	freeshipSvc := freeship.New(freeship.Params{DB: db, Log: log, GenID: node})
	whitelistSvc := whitelist.New(whitelist.Params{DB: db, Log: log, GenID: node})

	quoteSvc := New(Params{
		DB:  db,
		Log: log,
		Config: config.Config{
			Shipping: config.ShippingConfig{DefaultCurrency: "USD"},
		},
		Clock:     clock.Fixed(now),
		Repo:      tplRepo,
		Zones:     zoneSvc,
		Freeship:  freeshipSvc,
		Whitelist: whitelistSvc,
	})

	return &quoteFixture{
		db:          db,
		quoteSvc:    quoteSvc,
		templateSvc: templateSvc,
		zoneSvc:     zoneSvc,
		freeshipSvc: freeshipSvc,
	}
}

func price(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func floatPtr(v float64) *float64 { return &v }

func TestQuoteRoundsUpToNearestPopulatedKg(t *testing.T) {
	fx := setupQuoteTest(t, time.Now())
	ctx := context.Background()

	_, err := fx.templateSvc.Upsert(ctx, templatedomain.UpsertRequest{
		Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: "US"},
		CountryName: "United States",
		Currency:    "USD",
		Brackets: []templatedomain.BracketInput{
			{Kind: templatedomain.BracketFlatUnder21, Kg: 1, Price: price(t, "10")},
			{Kind: templatedomain.BracketFlatUnder21, Kg: 5, Price: price(t, "20")},
		},
	})
	require.NoError(t, err)

	res, err := fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: 3})
	require.NoError(t, err)
	assert.True(t, res.Fee.Equal(price(t, "20")), "got %s", res.Fee)
	assert.Equal(t, 5.0, res.BillingWeightKg)
	assert.Equal(t, "USD", res.Currency)

	// A 0.2 kg parcel bills at the kg=1 bracket.
	res, err = fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: 0.2})
	require.NoError(t, err)
	assert.True(t, res.Fee.Equal(price(t, "10")))
	assert.Equal(t, 1.0, res.BillingWeightKg)
}

func TestQuoteOpenEndedBand(t *testing.T) {
	fx := setupQuoteTest(t, time.Now())
	ctx := context.Background()

	_, err := fx.templateSvc.Upsert(ctx, templatedomain.UpsertRequest{
		Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: "US"},
		CountryName: "United States",
		Brackets: []templatedomain.BracketInput{
			{Kind: templatedomain.BracketPerKgOver21, MinKg: 21,
				PricePerKg: price(t, "2"), BasePrice: price(t, "5")},
		},
	})
	require.NoError(t, err)

	res, err := fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: 30})
	require.NoError(t, err)
	assert.True(t, res.Fee.Equal(price(t, "65")), "5 + 2*30, got %s", res.Fee)
}

func TestQuoteSurchargeWithinDateWindow(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	fx := setupQuoteTest(t, now)
	ctx := context.Background()

	from := now.AddDate(0, 0, -1)
	to := now.AddDate(0, 0, 1)
	amount := price(t, "3")
	_, err := fx.templateSvc.Upsert(ctx, templatedomain.UpsertRequest{
		Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: "US"},
		CountryName: "United States",
		Brackets: []templatedomain.BracketInput{
			{Kind: templatedomain.BracketFlatUnder21, Kg: 2, Price: price(t, "15")},
		},
		Surcharges: []templatedomain.SurchargeInput{
			{Name: "Peak season", Type: templatedomain.SurchargePeakSeason,
				Amount: &amount, ValidFrom: &from, ValidTo: &to},
		},
	})
	require.NoError(t, err)

	res, err := fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: 1.5})
	require.NoError(t, err)
	assert.True(t, res.Fee.Equal(price(t, "18")), "15 + 3, got %s", res.Fee)
	require.Len(t, res.Surcharges, 1)
	assert.Equal(t, "Peak season", res.Surcharges[0].Name)
}

func TestQuoteSurchargeOutsideDateWindow(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	fx := setupQuoteTest(t, now)
	ctx := context.Background()

	from := now.AddDate(0, 1, 0)
	to := now.AddDate(0, 2, 0)
	amount := price(t, "3")
	_, err := fx.templateSvc.Upsert(ctx, templatedomain.UpsertRequest{
		Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: "US"},
		CountryName: "United States",
		Brackets: []templatedomain.BracketInput{
			{Kind: templatedomain.BracketFlatUnder21, Kg: 2, Price: price(t, "15")},
		},
		Surcharges: []templatedomain.SurchargeInput{
			{Name: "Peak season", Type: templatedomain.SurchargePeakSeason,
				Amount: &amount, ValidFrom: &from, ValidTo: &to},
		},
	})
	require.NoError(t, err)

	res, err := fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: 1.5})
	require.NoError(t, err)
	assert.True(t, res.Fee.Equal(price(t, "15")))
	assert.Empty(t, res.Surcharges)
}

func TestQuotePercentSurchargeAppliesToBaseOnly(t *testing.T) {
	fx := setupQuoteTest(t, time.Now())
	ctx := context.Background()

	amount := price(t, "10")
	percent := price(t, "10")
	_, err := fx.templateSvc.Upsert(ctx, templatedomain.UpsertRequest{
		Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: "US"},
		CountryName: "United States",
		Brackets: []templatedomain.BracketInput{
			{Kind: templatedomain.BracketFlatUnder21, Kg: 5, Price: price(t, "100")},
		},
		Surcharges: []templatedomain.SurchargeInput{
			{Name: "Fuel", Type: templatedomain.SurchargeFuel, Amount: &amount},
			{Name: "Remote", Type: templatedomain.SurchargeRemoteArea, Percent: &percent},
		},
	})
	require.NoError(t, err)

	res, err := fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: 4})
	require.NoError(t, err)
	// 100 + 10 + 10% of 100 (not of 110).
	assert.True(t, res.Fee.Equal(price(t, "120")), "got %s", res.Fee)
	assert.True(t, res.SurchargeTotal.Equal(price(t, "20")))
}

func TestQuoteSurchargeWeightWindow(t *testing.T) {
	fx := setupQuoteTest(t, time.Now())
	ctx := context.Background()

	amount := price(t, "7")
	_, err := fx.templateSvc.Upsert(ctx, templatedomain.UpsertRequest{
		Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: "US"},
		CountryName: "United States",
		Brackets: []templatedomain.BracketInput{
			{Kind: templatedomain.BracketFlatUnder21, Kg: 10, Price: price(t, "30")},
		},
		Surcharges: []templatedomain.SurchargeInput{
			{Name: "Heavy handling", Type: templatedomain.SurchargeOther,
				Amount: &amount, MinWeightKg: floatPtr(5)},
		},
	})
	require.NoError(t, err)

	res, err := fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: 2})
	require.NoError(t, err)
	assert.True(t, res.Fee.Equal(price(t, "30")))

	res, err = fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: 6})
	require.NoError(t, err)
	assert.True(t, res.Fee.Equal(price(t, "37")))
}

func TestQuoteRoundsOnceAtTheEnd(t *testing.T) {
	fx := setupQuoteTest(t, time.Now())
	ctx := context.Background()

	p1 := price(t, "3.333")
	p2 := price(t, "3.333")
	_, err := fx.templateSvc.Upsert(ctx, templatedomain.UpsertRequest{
		Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: "US"},
		CountryName: "United States",
		Brackets: []templatedomain.BracketInput{
			{Kind: templatedomain.BracketFlatUnder21, Kg: 1, Price: price(t, "10")},
		},
		Surcharges: []templatedomain.SurchargeInput{
			{Name: "A", Type: templatedomain.SurchargeOther, Amount: &p1},
			{Name: "B", Type: templatedomain.SurchargeOther, Amount: &p2},
		},
	})
	require.NoError(t, err)

	// 10 + 3.333 + 3.333 = 16.666 -> 16.67; rounding each term first
	// would give 16.66.
	res, err := fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: 1})
	require.NoError(t, err)
	assert.True(t, res.Fee.Equal(price(t, "16.67")), "got %s", res.Fee)
}

func TestQuoteFreeShippingWinsOverEverything(t *testing.T) {
	fx := setupQuoteTest(t, time.Now())
	ctx := context.Background()

	_, err := fx.freeshipSvc.SetAll(ctx, []freeship.SettingInput{
		{CountryCode: "SG", CountryName: "Singapore"},
	})
	require.NoError(t, err)

	// No template at all, and an invalid weight: still free.
	res, err := fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "SG", WeightKg: 0})
	require.NoError(t, err)
	assert.True(t, res.Free)
	assert.True(t, res.Fee.IsZero())
	assert.Equal(t, "USD", res.Currency)

	res, err = fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "SG", WeightKg: 250})
	require.NoError(t, err)
	assert.True(t, res.Fee.IsZero())
}

func TestQuoteInvalidWeight(t *testing.T) {
	fx := setupQuoteTest(t, time.Now())
	ctx := context.Background()

	_, err := fx.templateSvc.Upsert(ctx, templatedomain.UpsertRequest{
		Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: "US"},
		CountryName: "United States",
		Brackets: []templatedomain.BracketInput{
			{Kind: templatedomain.BracketFlatUnder21, Kg: 1, Price: price(t, "10")},
		},
	})
	require.NoError(t, err)

	_, err = fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: 0})
	assert.ErrorIs(t, err, quotedomain.ErrInvalidWeight)

	_, err = fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: -2})
	assert.ErrorIs(t, err, quotedomain.ErrInvalidWeight)
}

func TestQuoteNoRateForCountry(t *testing.T) {
	fx := setupQuoteTest(t, time.Now())

	_, err := fx.quoteSvc.Quote(context.Background(), quotedomain.Request{CountryCode: "FR", WeightKg: 2})
	assert.ErrorIs(t, err, quotedomain.ErrNoRateForCountry)
}

func TestQuoteNoRateForWeight(t *testing.T) {
	fx := setupQuoteTest(t, time.Now())
	ctx := context.Background()

	// Draft template: importable, but quoting fails.
	_, err := fx.templateSvc.Upsert(ctx, templatedomain.UpsertRequest{
		Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: "US"},
		CountryName: "United States",
	})
	require.NoError(t, err)

	_, err = fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: 2})
	assert.ErrorIs(t, err, quotedomain.ErrNoRateForWeight)

	// Bounded band leaves heavier weights uncovered.
	_, err = fx.templateSvc.Upsert(ctx, templatedomain.UpsertRequest{
		Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: "US"},
		CountryName: "United States",
		Brackets: []templatedomain.BracketInput{
			{Kind: templatedomain.BracketPerKgOver21, MinKg: 21, MaxKg: floatPtr(40),
				PricePerKg: price(t, "2")},
		},
	})
	require.NoError(t, err)

	_, err = fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: 50})
	assert.ErrorIs(t, err, quotedomain.ErrNoRateForWeight)
}

func TestQuoteFlatSectionFallsThroughToBands(t *testing.T) {
	fx := setupQuoteTest(t, time.Now())
	ctx := context.Background()

	_, err := fx.templateSvc.Upsert(ctx, templatedomain.UpsertRequest{
		Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: "US"},
		CountryName: "United States",
		Brackets: []templatedomain.BracketInput{
			{Kind: templatedomain.BracketFlatUnder21, Kg: 5, Price: price(t, "20")},
			{Kind: templatedomain.BracketPerKgOver21, MinKg: 5, PricePerKg: price(t, "1")},
		},
	})
	require.NoError(t, err)

	// 18 kg has no flat bracket at or above it, so the band prices the
	// actual weight.
	res, err := fx.quoteSvc.Quote(ctx, quotedomain.Request{CountryCode: "US", WeightKg: 18})
	require.NoError(t, err)
	assert.True(t, res.Fee.Equal(price(t, "18")), "got %s", res.Fee)
}

func TestQuoteCarrierMode(t *testing.T) {
	fx := setupQuoteTest(t, time.Now())
	ctx := context.Background()

	_, err := fx.zoneSvc.SetMappings(ctx, "FEDEX", "IP", []zonedomain.MappingInput{
		{CountryCode: "US", CountryName: "United States", Zone: "Z1"},
	})
	require.NoError(t, err)

	_, err = fx.templateSvc.Upsert(ctx, templatedomain.UpsertRequest{
		Key: templatedomain.Key{
			Mode: templatedomain.ModeCarrier, Carrier: "FEDEX", ServiceCode: "IP", Zone: "Z1",
		},
		CountryName: "Zone 1",
		Brackets: []templatedomain.BracketInput{
			{Kind: templatedomain.BracketFlatUnder21, Kg: 5, Price: price(t, "40")},
		},
	})
	require.NoError(t, err)

	res, err := fx.quoteSvc.Quote(ctx, quotedomain.Request{
		Mode: templatedomain.ModeCarrier, CountryCode: "US", WeightKg: 5,
		Carrier: "FEDEX", ServiceCode: "IP",
	})
	require.NoError(t, err)
	assert.True(t, res.Fee.Equal(price(t, "40")))
	assert.Equal(t, "carrier", res.Source)

	// Unmapped country fails before any template lookup.
	_, err = fx.quoteSvc.Quote(ctx, quotedomain.Request{
		Mode: templatedomain.ModeCarrier, CountryCode: "DE", WeightKg: 5,
		Carrier: "FEDEX", ServiceCode: "IP",
	})
	assert.ErrorIs(t, err, zonedomain.ErrNoZoneMapping)

	// Mapped country whose zone lost its template.
	_, err = fx.zoneSvc.SetMappings(ctx, "FEDEX", "IP", []zonedomain.MappingInput{
		{CountryCode: "US", CountryName: "United States", Zone: "Z1"},
		{CountryCode: "CA", CountryName: "Canada", Zone: "Z9"},
	})
	require.NoError(t, err)
	_, err = fx.quoteSvc.Quote(ctx, quotedomain.Request{
		Mode: templatedomain.ModeCarrier, CountryCode: "CA", WeightKg: 5,
		Carrier: "FEDEX", ServiceCode: "IP",
	})
	assert.ErrorIs(t, err, quotedomain.ErrNoRateForZone)
}

func TestCountriesFilteredByWhitelist(t *testing.T) {
	fx := setupQuoteTest(t, time.Now())
	ctx := context.Background()

	for _, cc := range []string{"US", "DE", "JP"} {
		_, err := fx.templateSvc.Upsert(ctx, templatedomain.UpsertRequest{
			Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: cc},
			CountryName: cc,
			Brackets: []templatedomain.BracketInput{
				{Kind: templatedomain.BracketFlatUnder21, Kg: 1, Price: price(t, "10")},
			},
		})
		require.NoError(t, err)
	}

	countries, err := fx.quoteSvc.Countries(ctx, templatedomain.ModeCountry, "", "")
	require.NoError(t, err)
	assert.Len(t, countries, 3)

	wl := whitelist.New(whitelist.Params{DB: fx.db, Log: zap.NewNop(), GenID: mustNode(t)})
	_, err = wl.SetAll(ctx, []whitelist.CountryInput{
		{CountryCode: "US", CountryName: "United States"},
	})
	require.NoError(t, err)

	countries, err = fx.quoteSvc.Countries(ctx, templatedomain.ModeCountry, "", "")
	require.NoError(t, err)
	require.Len(t, countries, 1)
	assert.Equal(t, "US", countries[0].CountryCode)
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	return node
}
