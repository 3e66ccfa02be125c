// Package seed loads a small demo rate book for local development.
package seed

import (
	"context"

	"github.com/rateshoplabs/rateshop/internal/freeship"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	zonedomain "github.com/rateshoplabs/rateshop/internal/zone/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	TemplateSvc templatedomain.Service
	ZoneSvc     zonedomain.Service
	FreeshipSvc freeship.Service
}

func Run(p Params) error {
	ctx := context.Background()
	log := p.Log.Named("seed")

	price := func(v string) decimal.Decimal { return decimal.RequireFromString(v) }
	maxKg := 45.0

	countryTemplates := []templatedomain.UpsertRequest{
		{
			Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: "US"},
			CountryName: "United States",
			Currency:    "USD",
			Brackets: []templatedomain.BracketInput{
				{Kind: templatedomain.BracketFlatUnder21, Kg: 1, Price: price("9.90")},
				{Kind: templatedomain.BracketFlatUnder21, Kg: 2, Price: price("12.50")},
				{Kind: templatedomain.BracketFlatUnder21, Kg: 5, Price: price("19.90")},
				{Kind: templatedomain.BracketFlatUnder21, Kg: 10, Price: price("31.00")},
				{Kind: templatedomain.BracketFlatUnder21, Kg: 21, Price: price("52.00")},
				{Kind: templatedomain.BracketPerKgOver21, MinKg: 21, MaxKg: &maxKg,
					PricePerKg: price("2.10"), BasePrice: price("5.00")},
				{Kind: templatedomain.BracketPerKgOver21, MinKg: 45,
					PricePerKg: price("1.85"), BasePrice: price("5.00")},
			},
		},
		{
			Key:         templatedomain.Key{Mode: templatedomain.ModeCountry, CountryCode: "DE"},
			CountryName: "Germany",
			Currency:    "EUR",
			Brackets: []templatedomain.BracketInput{
				{Kind: templatedomain.BracketFlatUnder21, Kg: 1, Price: price("11.40")},
				{Kind: templatedomain.BracketFlatUnder21, Kg: 5, Price: price("22.00")},
				{Kind: templatedomain.BracketFlatUnder21, Kg: 21, Price: price("58.50")},
				{Kind: templatedomain.BracketPerKgOver21, MinKg: 21,
					PricePerKg: price("2.40"), BasePrice: price("6.00")},
			},
		},
	}
	for _, req := range countryTemplates {
		if _, err := p.TemplateSvc.Upsert(ctx, req); err != nil {
			return err
		}
	}

	if _, err := p.ZoneSvc.SetMappings(ctx, "FEDEX", "IP", []zonedomain.MappingInput{
		{CountryCode: "US", CountryName: "United States", Zone: "Z1"},
		{CountryCode: "CA", CountryName: "Canada", Zone: "Z1"},
		{CountryCode: "JP", CountryName: "Japan", Zone: "Z3"},
	}); err != nil {
		return err
	}

	zoneTemplates := []templatedomain.UpsertRequest{
		{
			Key: templatedomain.Key{
				Mode: templatedomain.ModeCarrier, Carrier: "FEDEX", ServiceCode: "IP", Zone: "Z1",
			},
			CountryName: "Zone 1",
			Currency:    "USD",
			Brackets: []templatedomain.BracketInput{
				{Kind: templatedomain.BracketFlatUnder21, Kg: 1, Price: price("18.00")},
				{Kind: templatedomain.BracketFlatUnder21, Kg: 10, Price: price("46.00")},
				{Kind: templatedomain.BracketFlatUnder21, Kg: 21, Price: price("74.00")},
				{Kind: templatedomain.BracketPerKgOver21, MinKg: 21,
					PricePerKg: price("3.20"), BasePrice: price("10.00")},
			},
		},
		{
			Key: templatedomain.Key{
				Mode: templatedomain.ModeCarrier, Carrier: "FEDEX", ServiceCode: "IP", Zone: "Z3",
			},
			CountryName: "Zone 3",
			Currency:    "USD",
			Brackets: []templatedomain.BracketInput{
				{Kind: templatedomain.BracketFlatUnder21, Kg: 1, Price: price("24.00")},
				{Kind: templatedomain.BracketFlatUnder21, Kg: 21, Price: price("96.00")},
				{Kind: templatedomain.BracketPerKgOver21, MinKg: 21,
					PricePerKg: price("4.10"), BasePrice: price("12.00")},
			},
		},
	}
	for _, req := range zoneTemplates {
		if _, err := p.TemplateSvc.Upsert(ctx, req); err != nil {
			return err
		}
	}

	if _, err := p.FreeshipSvc.SetAll(ctx, []freeship.SettingInput{
		{CountryCode: "SG", CountryName: "Singapore"},
	}); err != nil {
		return err
	}

	log.Info("seed data applied")
	return nil
}

var Module = fx.Module("seed",
	fx.Invoke(Run),
)
