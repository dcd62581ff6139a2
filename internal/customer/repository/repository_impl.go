package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vendora/internal/customer/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error
	FindByID(ctx context.Context, db *gorm.DB, vendorID, id snowflake.ID) (*domain.Customer, error)
	FindByEmail(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, email string) (*domain.Customer, error)
	List(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]*domain.Customer, error)
	BumpTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, orderTotal decimal.Decimal, at time.Time) error
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, vendorID, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Where("id = ? AND vendor_id = ?", id, vendorID).
		First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, email string) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Where("vendor_id = ? AND email = ?", vendorID, strings.ToLower(email)).
		First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	err := db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) BumpTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, orderTotal decimal.Decimal, at time.Time) error {
	return db.WithContext(ctx).Model(&domain.Customer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_orders": gorm.Expr("total_orders + 1"),
			"total_spent":  gorm.Expr("total_spent + ?", orderTotal),
			"updated_at":   at,
		}).Error
}
