package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/vendors/domain"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status   domain.Status
	AfterID  snowflake.ID
	PageSize int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, vendor *domain.Vendor) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Vendor, error)
	FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Vendor, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*domain.Vendor, error)
	Update(ctx context.Context, db *gorm.DB, vendor *domain.Vendor) error
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, vendor *domain.Vendor) error {
	return db.WithContext(ctx).Create(vendor).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Vendor, error) {
	var vendor domain.Vendor
	err := db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Vendor, error) {
	var vendor domain.Vendor
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&vendor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*domain.Vendor, error) {
	tx := db.WithContext(ctx).Model(&domain.Vendor{})
	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}
	if filter.AfterID != 0 {
		tx = tx.Where("id > ?", filter.AfterID)
	}
	limit := filter.PageSize
	if limit <= 0 {
		limit = 10
	}

	var vendors []*domain.Vendor
	if err := tx.Order("id ASC").Limit(limit + 1).Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, vendor *domain.Vendor) error {
	return db.WithContext(ctx).Save(vendor).Error
}
