package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/cart/domain"
	pkgdb "github.com/smallbiznis/vendora/pkg/db"
	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, ownerKey string) (*domain.Cart, error)

	// FindForUpdate loads the cart row with a row-level lock so concurrent
	// mutations of the same cart serialize. Must run inside a transaction.
	FindForUpdate(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, ownerKey string) (*domain.Cart, error)

	Insert(ctx context.Context, db *gorm.DB, cart *domain.Cart) error
	Save(ctx context.Context, db *gorm.DB, cart *domain.Cart) error
	Delete(ctx context.Context, db *gorm.DB, cartID snowflake.ID) error

	LoadItems(ctx context.Context, db *gorm.DB, cartID snowflake.ID) ([]domain.CartItem, error)
	InsertItem(ctx context.Context, db *gorm.DB, item *domain.CartItem) error
	SaveItem(ctx context.Context, db *gorm.DB, item *domain.CartItem) error
	DeleteItem(ctx context.Context, db *gorm.DB, itemID snowflake.ID) error
	DeleteItems(ctx context.Context, db *gorm.DB, cartID snowflake.ID) error
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, ownerKey string) (*domain.Cart, error) {
	var cart domain.Cart
	err := db.WithContext(ctx).
		Where("vendor_id = ? AND owner_key = ?", vendorID, ownerKey).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repo) FindForUpdate(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, ownerKey string) (*domain.Cart, error) {
	var cart domain.Cart
	err := pkgdb.RowLock(db.WithContext(ctx)).
		Where("vendor_id = ? AND owner_key = ?", vendorID, ownerKey).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, cart *domain.Cart) error {
	return db.WithContext(ctx).Omit("Items").Create(cart).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, cart *domain.Cart) error {
	return db.WithContext(ctx).Omit("Items").Save(cart).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, cartID snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", cartID).Delete(&domain.Cart{}).Error
}

func (r *repo) LoadItems(ctx context.Context, db *gorm.DB, cartID snowflake.ID) ([]domain.CartItem, error) {
	var items []domain.CartItem
	err := db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.CartItem) error {
	return db.WithContext(ctx).Create(item).Error
}

func (r *repo) SaveItem(ctx context.Context, db *gorm.DB, item *domain.CartItem) error {
	return db.WithContext(ctx).Save(item).Error
}

func (r *repo) DeleteItem(ctx context.Context, db *gorm.DB, itemID snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", itemID).Delete(&domain.CartItem{}).Error
}

func (r *repo) DeleteItems(ctx context.Context, db *gorm.DB, cartID snowflake.ID) error {
	return db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&domain.CartItem{}).Error
}
