// Package domain contains the carrier zone mapping model. Zones are only
// consulted for carrier-mode quotes.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CountryZoneMapping attaches a destination country to a carrier zone.
// A carrier template with no mapping for a country is a configuration
// error, never a silent zero-cost quote.
type CountryZoneMapping struct {
	ID snowflake.ID `gorm:"primaryKey" json:"id"`

	Carrier     string `gorm:"type:text;not null;uniqueIndex:ux_zone_mapping,priority:1" json:"carrier"`
	ServiceCode string `gorm:"type:text;not null;default:'';uniqueIndex:ux_zone_mapping,priority:2" json:"service_code"`
	CountryCode string `gorm:"type:text;not null;uniqueIndex:ux_zone_mapping,priority:3" json:"country_code"`
	CountryName string `gorm:"type:text;not null" json:"country_name"`
	Zone        string `gorm:"type:text;not null" json:"zone"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CountryZoneMapping) TableName() string { return "country_zone_mappings" }

type MappingInput struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Zone        string `json:"zone"`
}

type Service interface {
	// ResolveZone returns the zone for (carrier, service, country) or
	// ErrNoZoneMapping.
	ResolveZone(ctx context.Context, carrier, serviceCode, countryCode string) (string, error)
	// SetMappings replaces the full mapping set for carrier+service.
	SetMappings(ctx context.Context, carrier, serviceCode string, mappings []MappingInput) (int, error)
	List(ctx context.Context, carrier, serviceCode string) ([]CountryZoneMapping, error)
}

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, carrier, serviceCode, countryCode string) (*CountryZoneMapping, error)
	ListByCarrier(ctx context.Context, db *gorm.DB, carrier, serviceCode string) ([]CountryZoneMapping, error)
	ReplaceAll(ctx context.Context, db *gorm.DB, carrier, serviceCode string, rows []CountryZoneMapping) error
	DeleteByCountries(ctx context.Context, db *gorm.DB, carrier, serviceCode string, countryCodes []string) (int64, error)
	DeleteByCarrier(ctx context.Context, db *gorm.DB, carrier, serviceCode string) (int64, error)
	CountByZone(ctx context.Context, db *gorm.DB, carrier, serviceCode, zone string) (int64, error)
}

var (
	ErrNoZoneMapping  = errors.New("no_zone_mapping")
	ErrInvalidCarrier = errors.New("invalid_carrier")
	ErrInvalidMapping = errors.New("invalid_zone_mapping")
)
