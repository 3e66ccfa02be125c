package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Service interface {
	Upsert(ctx context.Context, req UpsertRequest) (*RateTemplate, error)
	Get(ctx context.Context, key Key) (*RateTemplate, error)
	GetByID(ctx context.Context, id snowflake.ID) (*RateTemplate, error)
	List(ctx context.Context, opts ListOptions) ([]Summary, error)
	BulkDelete(ctx context.Context, req BulkDeleteRequest) (int64, error)
}

type ListOptions struct {
	Mode        Mode   `form:"mode"`
	Carrier     string `form:"carrier"`
	ServiceCode string `form:"service"`
	Search      string `form:"q"`
}

// UpsertRequest fully replaces one template: on success the stored
// bracket and surcharge sets are swapped wholesale, on validation
// failure nothing changes.
type UpsertRequest struct {
	Key         Key
	CountryName string
	Currency    string
	Active      *bool
	Brackets    []BracketInput
	Surcharges  []SurchargeInput
	Metadata    map[string]any
}

type BracketInput struct {
	Kind       BracketKind     `json:"kind"`
	Kg         int             `json:"kg,omitempty"`
	Price      decimal.Decimal `json:"price"`
	MinKg      float64         `json:"min_kg,omitempty"`
	MaxKg      *float64        `json:"max_kg,omitempty"`
	PricePerKg decimal.Decimal `json:"price_per_kg"`
	BasePrice  decimal.Decimal `json:"base_price"`
}

type SurchargeInput struct {
	Name        string           `json:"name"`
	Type        SurchargeType    `json:"type"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Percent     *decimal.Decimal `json:"percent,omitempty"`
	ValidFrom   *time.Time       `json:"valid_from,omitempty"`
	ValidTo     *time.Time       `json:"valid_to,omitempty"`
	MinWeightKg *float64         `json:"min_weight_kg,omitempty"`
	MaxWeightKg *float64         `json:"max_weight_kg,omitempty"`
}

// BulkDeleteRequest deletes templates by country code or wholesale.
// Carrier mode scopes to (carrier, service); country codes there are
// resolved through zone mappings, and a zone template is removed once
// no mapped country remains. Deleting absent templates is a no-op.
type BulkDeleteRequest struct {
	Mode         Mode
	All          bool
	CountryCodes []string
	Carrier      string
	ServiceCode  string
}

var (
	ErrInvalidMode        = errors.New("invalid_mode")
	ErrInvalidCountryCode = errors.New("invalid_country_code")
	ErrInvalidCarrier     = errors.New("invalid_carrier")
	ErrInvalidZone        = errors.New("invalid_zone")
	ErrInvalidCurrency    = errors.New("invalid_currency")
	ErrInvalidBracket     = errors.New("invalid_bracket")
	ErrDuplicateBracketKg = errors.New("duplicate_bracket_kg")
	ErrOverlappingBands   = errors.New("overlapping_bands")
	ErrInvalidSurcharge   = errors.New("invalid_surcharge")
	ErrNotFound           = errors.New("not_found")
)
