package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByKey(ctx context.Context, db *gorm.DB, key Key) (*RateTemplate, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RateTemplate, error)
	List(ctx context.Context, db *gorm.DB, opts ListOptions) ([]RateTemplate, error)
	CountChildren(ctx context.Context, db *gorm.DB, templateID snowflake.ID) (brackets int64, surcharges int64, err error)

	// Replace swaps one template's row and its entire bracket+surcharge
	// set. Callers run it inside a transaction.
	Replace(ctx context.Context, db *gorm.DB, tpl *RateTemplate) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
