package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/order/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error
	InsertItems(ctx context.Context, db *gorm.DB, items []domain.OrderItem) error
	FindByID(ctx context.Context, db *gorm.DB, vendorID, id snowflake.ID) (*domain.Order, error)
	List(ctx context.Context, db *gorm.DB, req domain.ListOrderRequest) ([]*domain.Order, error)
	Update(ctx context.Context, db *gorm.DB, order *domain.Order) error
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Omit("Items").Create(order).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, vendorID, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND vendor_id = ?", id, vendorID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListOrderRequest) ([]*domain.Order, error) {
	tx := db.WithContext(ctx).Where("vendor_id = ?", req.VendorID)
	if req.Status != "" {
		tx = tx.Where("status = ?", req.Status)
	}

	var orders []*domain.Order
	if err := tx.Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Omit("Items").Save(order).Error
}
