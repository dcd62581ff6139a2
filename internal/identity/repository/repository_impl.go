package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/identity/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *domain.User) error
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error)
	SetVendor(ctx context.Context, db *gorm.DB, userID, vendorID snowflake.ID) error
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) SetVendor(ctx context.Context, db *gorm.DB, userID, vendorID snowflake.ID) error {
	return db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Update("vendor_id", vendorID).Error
}
