// Package freeship stores per-country free shipping overrides. A free
// country quotes at zero before any rate lookup happens.
package freeship

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type FreeShippingSetting struct {
	ID snowflake.ID `gorm:"primaryKey" json:"id"`

	CountryCode string `gorm:"type:text;not null;uniqueIndex" json:"country_code"`
	CountryName string `gorm:"type:text;not null" json:"country_name"`
	Enabled     bool   `gorm:"not null;default:true" json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FreeShippingSetting) TableName() string { return "free_shipping_settings" }

type SettingInput struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Enabled     *bool  `json:"enabled,omitempty"`
}

type Service interface {
	// IsFree reports whether the country currently ships free.
	IsFree(ctx context.Context, countryCode string) (bool, error)
	List(ctx context.Context) ([]FreeShippingSetting, error)
	// SetAll replaces the full override set.
	SetAll(ctx context.Context, settings []SettingInput) (int, error)
}
