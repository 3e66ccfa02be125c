// Package domain defines the quote contract: one request in, a priced
// fee with its surcharge breakdown out.
package domain

import (
	"context"
	"errors"

	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	"github.com/shopspring/decimal"
)

type Request struct {
	Mode        templatedomain.Mode `json:"mode" form:"mode"`
	CountryCode string              `json:"country_code" form:"country_code"`
	WeightKg    float64             `json:"weight_kg" form:"weight_kg"`
	Carrier     string              `json:"carrier,omitempty" form:"carrier"`
	ServiceCode string              `json:"service_code,omitempty" form:"service"`
}

type SurchargeLine struct {
	Name   string          `json:"name"`
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

type Result struct {
	CountryCode     string          `json:"country_code"`
	Currency        string          `json:"currency"`
	WeightKg        float64         `json:"weight_kg"`
	BillingWeightKg float64         `json:"billing_weight_kg"`
	Free            bool            `json:"free"`
	BaseFee         decimal.Decimal `json:"base_fee"`
	Surcharges      []SurchargeLine `json:"surcharges,omitempty"`
	SurchargeTotal  decimal.Decimal `json:"surcharge_total"`
	Fee             decimal.Decimal `json:"fee"`
	// Source names the pricing path taken, "country" or "carrier".
	Source string `json:"source"`
}

type Service interface {
	Quote(ctx context.Context, req Request) (*Result, error)
	// Countries lists the destinations a storefront may offer: templated
	// countries intersected with the whitelist when one is set.
	Countries(ctx context.Context, mode templatedomain.Mode, carrier, serviceCode string) ([]Country, error)
	// FreeCountries lists countries currently flagged free.
	FreeCountries(ctx context.Context) ([]Country, error)
}

type Country struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
}

var (
	ErrInvalidWeight    = errors.New("invalid_weight")
	ErrNoRateForCountry = errors.New("no_rate_for_country")
	ErrNoRateForZone    = errors.New("no_rate_for_zone")
	ErrNoRateForWeight  = errors.New("no_rate_for_weight")
)
