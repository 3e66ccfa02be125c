// Package whitelist holds the public list of shippable countries. When
// the list is empty every country with a template is shippable.
package whitelist

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type AllowedCountry struct {
	ID snowflake.ID `gorm:"primaryKey" json:"id"`

	CountryCode string `gorm:"type:text;not null;uniqueIndex" json:"country_code"`
	CountryName string `gorm:"type:text;not null" json:"country_name"`
	SortOrder   int    `gorm:"not null;default:0" json:"sort_order"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AllowedCountry) TableName() string { return "allowed_countries" }

type CountryInput struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
}

type Service interface {
	List(ctx context.Context) ([]AllowedCountry, error)
	// Allowed reports whether the code passes the whitelist. An empty
	// whitelist allows everything.
	Allowed(ctx context.Context, countryCode string) (bool, error)
	// SetAll replaces the whitelist wholesale.
	SetAll(ctx context.Context, countries []CountryInput) (int, error)
}
