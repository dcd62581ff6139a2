package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Product is a vendor catalog entry. Variants hold free-form attribute maps
// such as size or color options.
type Product struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	VendorID      snowflake.ID    `json:"vendor_id" gorm:"not null;uniqueIndex:idx_products_vendor_slug"`
	Name          string          `json:"name" gorm:"type:text;not null"`
	Slug          string          `json:"slug" gorm:"type:text;not null;uniqueIndex:idx_products_vendor_slug"`
	Description   string          `json:"description" gorm:"type:text"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric(20,2);not null"`
	Currency      string          `json:"currency" gorm:"type:text;not null"`
	StockQuantity int             `json:"stock_quantity" gorm:"not null;default:0"`
	Active        bool            `json:"active" gorm:"not null;default:true"`
	Variants      datatypes.JSON  `json:"variants,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

type CreateProductRequest struct {
	VendorID      snowflake.ID
	Name          string
	Description   string
	Price         decimal.Decimal
	Currency      string
	StockQuantity int
	Variants      datatypes.JSON
}

type UpdateProductRequest struct {
	ID            snowflake.ID
	VendorID      snowflake.ID
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
	Active        *bool
	Variants      datatypes.JSON
}

type ListProductRequest struct {
	VendorID   snowflake.ID
	ActiveOnly bool
}

type Service interface {
	Create(ctx context.Context, req CreateProductRequest) (Product, error)
	Update(ctx context.Context, req UpdateProductRequest) (Product, error)
	Delete(ctx context.Context, vendorID, id snowflake.ID) error
	GetByID(ctx context.Context, vendorID, id snowflake.ID) (Product, error)

	// GetForSale returns the product only when it belongs to the vendor
	// and is active. Used by the cart before accepting a line item.
	GetForSale(ctx context.Context, vendorID, id snowflake.ID) (Product, error)

	// GetBySlug serves storefront product pages; inactive products are
	// invisible there.
	GetBySlug(ctx context.Context, vendorID snowflake.ID, slug string) (Product, error)
	List(ctx context.Context, req ListProductRequest) ([]Product, error)
}

var (
	ErrInvalidName  = errors.New("invalid_product_name")
	ErrInvalidPrice = errors.New("invalid_product_price")
	ErrNotFound     = errors.New("product_not_found")
)
