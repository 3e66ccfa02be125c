// Package domain contains the rate template data model shared by the
// template store, the quote engine and the workbook importer.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Mode string

const (
	ModeCountry Mode = "country"
	ModeCarrier Mode = "carrier"
)

type BracketKind string

const (
	// BracketFlatUnder21 is an exact integer-kilogram price point for
	// parcels billed at 1..21 kg.
	BracketFlatUnder21 BracketKind = "flat_under_21"
	// BracketPerKgOver21 is a [min_kg, max_kg) band priced per kilogram,
	// with an optional base amount added once.
	BracketPerKgOver21 BracketKind = "per_kg_over_21"
)

type SurchargeType string

const (
	SurchargePeakSeason SurchargeType = "peak_season"
	SurchargeFuel       SurchargeType = "fuel"
	SurchargeRemoteArea SurchargeType = "remote_area"
	SurchargeOther      SurchargeType = "other"
)

// MaxFlatKg is the ceiling of the flat-bracket section; heavier parcels
// are priced by per-kg bands.
const MaxFlatKg = 21

// RateTemplate is one rate table. Country mode keys by destination
// country; carrier mode keys by (carrier, service, zone) with countries
// attached through zone mappings.
type RateTemplate struct {
	ID snowflake.ID `gorm:"primaryKey" json:"id"`

	Mode        Mode   `gorm:"type:text;not null;uniqueIndex:ux_template_key,priority:1" json:"mode"`
	Carrier     string `gorm:"type:text;not null;default:'';uniqueIndex:ux_template_key,priority:2" json:"carrier,omitempty"`
	ServiceCode string `gorm:"type:text;not null;default:'';uniqueIndex:ux_template_key,priority:3" json:"service_code,omitempty"`
	Zone        string `gorm:"type:text;not null;default:'';uniqueIndex:ux_template_key,priority:4" json:"zone,omitempty"`
	CountryCode string `gorm:"type:text;not null;default:'';uniqueIndex:ux_template_key,priority:5" json:"country_code,omitempty"`

	CountryName string            `gorm:"type:text;not null" json:"country_name"`
	Currency    string            `gorm:"type:text;not null;default:'USD'" json:"currency"`
	Active      bool              `gorm:"not null;default:true" json:"active"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`

	WeightBrackets []WeightBracket `gorm:"foreignKey:TemplateID" json:"weight_brackets,omitempty"`
	Surcharges     []Surcharge     `gorm:"foreignKey:TemplateID" json:"surcharges,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RateTemplate) TableName() string { return "rate_templates" }

type WeightBracket struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	TemplateID snowflake.ID `gorm:"not null;index" json:"template_id"`

	Kind BracketKind `gorm:"type:text;not null" json:"kind"`

	// Flat section (kind=flat_under_21).
	Kg    int             `gorm:"not null;default:0" json:"kg,omitempty"`
	Price decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`

	// Band section (kind=per_kg_over_21). MaxKg nil means unbounded.
	MinKg      float64         `gorm:"not null;default:0" json:"min_kg,omitempty"`
	MaxKg      *float64        `json:"max_kg,omitempty"`
	PricePerKg decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price_per_kg"`
	BasePrice  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"base_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WeightBracket) TableName() string { return "rate_weight_brackets" }

// Surcharge is an additional fee layered on the base bracket price.
// Exactly one of Amount/Percent is set; Percent applies to the base fee
// only and does not compound with other surcharges.
type Surcharge struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	TemplateID snowflake.ID `gorm:"not null;index" json:"template_id"`

	Name    string           `gorm:"type:text;not null" json:"name"`
	Type    SurchargeType    `gorm:"type:text;not null" json:"type"`
	Amount  *decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount,omitempty"`
	Percent *decimal.Decimal `gorm:"type:decimal(8,4)" json:"percent,omitempty"`

	ValidFrom *time.Time `json:"valid_from,omitempty"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`

	MinWeightKg *float64 `json:"min_weight_kg,omitempty"`
	MaxWeightKg *float64 `json:"max_weight_kg,omitempty"`

	// Position preserves the stored application order.
	Position int `gorm:"not null;default:0" json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Surcharge) TableName() string { return "rate_surcharges" }

// Key identifies one template per the mode's uniqueness rule.
type Key struct {
	Mode        Mode
	CountryCode string
	Carrier     string
	ServiceCode string
	Zone        string
}

// Summary is the list-view projection; bracket and surcharge bodies are
// deliberately excluded to keep admin list payloads small.
type Summary struct {
	ID              snowflake.ID `json:"id"`
	Mode            Mode         `json:"mode"`
	Carrier         string       `json:"carrier,omitempty"`
	ServiceCode     string       `json:"service_code,omitempty"`
	Zone            string       `json:"zone,omitempty"`
	CountryCode     string       `json:"country_code,omitempty"`
	CountryName     string       `json:"country_name"`
	Currency        string       `json:"currency"`
	Active          bool         `json:"active"`
	WeightBrackets  int64        `json:"weight_brackets"`
	QuoteSurcharges int64        `json:"quote_surcharges"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
