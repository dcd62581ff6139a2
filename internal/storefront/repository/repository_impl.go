package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/storefront/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, d *domain.Domain) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Domain, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Domain, error)
	ListByVendor(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]*domain.Domain, error)
	Update(ctx context.Context, db *gorm.DB, d *domain.Domain) error
	ClearPrimary(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, d *domain.Domain) error {
	return db.WithContext(ctx).Create(d).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Domain, error) {
	var d domain.Domain
	err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Domain, error) {
	var d domain.Domain
	err := db.WithContext(ctx).Where("name = ?", name).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repo) ListByVendor(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]*domain.Domain, error) {
	var domains []*domain.Domain
	err := db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at ASC").
		Find(&domains).Error
	if err != nil {
		return nil, err
	}
	return domains, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, d *domain.Domain) error {
	return db.WithContext(ctx).Save(d).Error
}

func (r *repo) ClearPrimary(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) error {
	return db.WithContext(ctx).Model(&domain.Domain{}).
		Where("vendor_id = ? AND is_primary = ?", vendorID, true).
		Update("is_primary", false).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Domain{}).Error
}
