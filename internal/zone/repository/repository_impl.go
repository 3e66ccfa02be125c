package repository

import (
	"context"
	"errors"

	zonedomain "github.com/rateshoplabs/rateshop/internal/zone/domain"
	"gorm.io/gorm"
)

type repository struct{}

func New() zonedomain.Repository {
	return &repository{}
}

func (r *repository) Find(ctx context.Context, db *gorm.DB, carrier, serviceCode, countryCode string) (*zonedomain.CountryZoneMapping, error) {
	var row zonedomain.CountryZoneMapping
	err := db.WithContext(ctx).
		Where("carrier = ? AND service_code = ? AND country_code = ?", carrier, serviceCode, countryCode).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListByCarrier(ctx context.Context, db *gorm.DB, carrier, serviceCode string) ([]zonedomain.CountryZoneMapping, error) {
	q := db.WithContext(ctx).Where("carrier = ?", carrier)
	if serviceCode != "" {
		q = q.Where("service_code = ?", serviceCode)
	}
	var rows []zonedomain.CountryZoneMapping
	err := q.Order("country_code ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) ReplaceAll(ctx context.Context, db *gorm.DB, carrier, serviceCode string, rows []zonedomain.CountryZoneMapping) error {
	if err := db.WithContext(ctx).
		Where("carrier = ? AND service_code = ?", carrier, serviceCode).
		Delete(&zonedomain.CountryZoneMapping{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) DeleteByCountries(ctx context.Context, db *gorm.DB, carrier, serviceCode string, countryCodes []string) (int64, error) {
	if len(countryCodes) == 0 {
		return 0, nil
	}
	q := db.WithContext(ctx).Where("carrier = ? AND country_code IN ?", carrier, countryCodes)
	if serviceCode != "" {
		q = q.Where("service_code = ?", serviceCode)
	}
	res := q.Delete(&zonedomain.CountryZoneMapping{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteByCarrier(ctx context.Context, db *gorm.DB, carrier, serviceCode string) (int64, error) {
	q := db.WithContext(ctx).Where("carrier = ?", carrier)
	if serviceCode != "" {
		q = q.Where("service_code = ?", serviceCode)
	}
	res := q.Delete(&zonedomain.CountryZoneMapping{})
	return res.RowsAffected, res.Error
}

func (r *repository) CountByZone(ctx context.Context, db *gorm.DB, carrier, serviceCode, zone string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&zonedomain.CountryZoneMapping{}).
		Where("carrier = ? AND service_code = ? AND zone = ?", carrier, serviceCode, zone).
		Count(&n).Error
	return n, err
}
