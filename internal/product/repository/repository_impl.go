package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/product/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error
	FindByID(ctx context.Context, db *gorm.DB, vendorID, id snowflake.ID) (*domain.Product, error)
	FindBySlug(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, slug string) (*domain.Product, error)
	List(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, activeOnly bool) ([]*domain.Product, error)
	Update(ctx context.Context, db *gorm.DB, product *domain.Product) error
	Delete(ctx context.Context, db *gorm.DB, vendorID, id snowflake.ID) error
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, vendorID, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).
		Where("id = ? AND vendor_id = ?", id, vendorID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, slug string) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).
		Where("vendor_id = ? AND slug = ?", vendorID, slug).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, activeOnly bool) ([]*domain.Product, error) {
	tx := db.WithContext(ctx).Where("vendor_id = ?", vendorID)
	if activeOnly {
		tx = tx.Where("active = ?", true)
	}

	var products []*domain.Product
	if err := tx.Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Save(product).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, vendorID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ? AND vendor_id = ?", id, vendorID).
		Delete(&domain.Product{}).Error
}
