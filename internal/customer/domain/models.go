package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Customer is a per-vendor buyer record, created lazily on first checkout.
// Unique per (vendor_id, email).
type Customer struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	VendorID    snowflake.ID    `json:"vendor_id" gorm:"not null;uniqueIndex:idx_customers_vendor_email"`
	Email       string          `json:"email" gorm:"type:text;not null;uniqueIndex:idx_customers_vendor_email"`
	Name        string          `json:"name" gorm:"type:text"`
	TotalOrders int             `json:"total_orders" gorm:"not null;default:0"`
	TotalSpent  decimal.Decimal `json:"total_spent" gorm:"type:numeric(20,2);not null;default:0"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"not null"`
}

func (Customer) TableName() string { return "customers" }

type Service interface {
	List(ctx context.Context, vendorID snowflake.ID) ([]Customer, error)
	GetByID(ctx context.Context, vendorID, id snowflake.ID) (Customer, error)
}

var ErrNotFound = errors.New("customer_not_found")
