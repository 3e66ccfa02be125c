package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	"gorm.io/gorm"
)

type repository struct{}

func New() templatedomain.Repository {
	return &repository{}
}

func keyQuery(db *gorm.DB, key templatedomain.Key) *gorm.DB {
	return db.Where(
		"mode = ? AND carrier = ? AND service_code = ? AND zone = ? AND country_code = ?",
		key.Mode, key.Carrier, key.ServiceCode, key.Zone, key.CountryCode,
	)
}

func (r *repository) FindByKey(ctx context.Context, db *gorm.DB, key templatedomain.Key) (*templatedomain.RateTemplate, error) {
	var tpl templatedomain.RateTemplate
	err := keyQuery(db.WithContext(ctx), key).
		Preload("WeightBrackets").
		Preload("Surcharges", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tpl, nil
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*templatedomain.RateTemplate, error) {
	var tpl templatedomain.RateTemplate
	err := db.WithContext(ctx).
		Preload("WeightBrackets").
		Preload("Surcharges", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&tpl, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tpl, nil
}

func (r *repository) List(ctx context.Context, db *gorm.DB, opts templatedomain.ListOptions) ([]templatedomain.RateTemplate, error) {
	q := db.WithContext(ctx).Model(&templatedomain.RateTemplate{})
	if opts.Mode != "" {
		q = q.Where("mode = ?", opts.Mode)
	}
	if opts.Carrier != "" {
		q = q.Where("carrier = ?", opts.Carrier)
	}
	if opts.ServiceCode != "" {
		q = q.Where("service_code = ?", opts.ServiceCode)
	}
	if opts.Search != "" {
		like := "%" + opts.Search + "%"
		q = q.Where("country_code LIKE ? OR country_name LIKE ? OR zone LIKE ?", like, like, like)
	}
	var rows []templatedomain.RateTemplate
	err := q.Order("mode ASC, carrier ASC, service_code ASC, zone ASC, country_code ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) CountChildren(ctx context.Context, db *gorm.DB, templateID snowflake.ID) (int64, int64, error) {
	var brackets, surcharges int64
	if err := db.WithContext(ctx).Model(&templatedomain.WeightBracket{}).
		Where("template_id = ?", templateID).Count(&brackets).Error; err != nil {
		return 0, 0, err
	}
	if err := db.WithContext(ctx).Model(&templatedomain.Surcharge{}).
		Where("template_id = ?", templateID).Count(&surcharges).Error; err != nil {
		return 0, 0, err
	}
	return brackets, surcharges, nil
}

func (r *repository) Replace(ctx context.Context, db *gorm.DB, tpl *templatedomain.RateTemplate) error {
	var existing templatedomain.RateTemplate
	err := keyQuery(db.WithContext(ctx), templatedomain.Key{
		Mode:        tpl.Mode,
		Carrier:     tpl.Carrier,
		ServiceCode: tpl.ServiceCode,
		Zone:        tpl.Zone,
		CountryCode: tpl.CountryCode,
	}).First(&existing).Error
	switch {
	case err == nil:
		tpl.ID = existing.ID
		tpl.CreatedAt = existing.CreatedAt
		if err := r.deleteChildren(ctx, db, existing.ID); err != nil {
			return err
		}
		for i := range tpl.WeightBrackets {
			tpl.WeightBrackets[i].TemplateID = existing.ID
		}
		for i := range tpl.Surcharges {
			tpl.Surcharges[i].TemplateID = existing.ID
		}
		if err := db.WithContext(ctx).Model(&templatedomain.RateTemplate{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"country_name": tpl.CountryName,
				"currency":     tpl.Currency,
				"active":       tpl.Active,
				"metadata":     tpl.Metadata,
			}).Error; err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		for i := range tpl.WeightBrackets {
			tpl.WeightBrackets[i].TemplateID = tpl.ID
		}
		for i := range tpl.Surcharges {
			tpl.Surcharges[i].TemplateID = tpl.ID
		}
		if err := db.WithContext(ctx).Omit("WeightBrackets", "Surcharges").Create(tpl).Error; err != nil {
			return err
		}
	default:
		return err
	}

	if len(tpl.WeightBrackets) > 0 {
		if err := db.WithContext(ctx).Create(&tpl.WeightBrackets).Error; err != nil {
			return err
		}
	}
	if len(tpl.Surcharges) > 0 {
		if err := db.WithContext(ctx).Create(&tpl.Surcharges).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := r.deleteChildren(ctx, db, id); err != nil {
		return err
	}
	return db.WithContext(ctx).Delete(&templatedomain.RateTemplate{}, "id = ?", id).Error
}

func (r *repository) deleteChildren(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).Where("template_id = ?", id).
		Delete(&templatedomain.WeightBracket{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Where("template_id = ?", id).
		Delete(&templatedomain.Surcharge{}).Error
}
