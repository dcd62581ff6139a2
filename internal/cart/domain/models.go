package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Cart holds one shopper's pending line items against one vendor. OwnerKey
// is either user:<id> for authenticated shoppers or session:<uuid> for
// anonymous ones, never both.
type Cart struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	VendorID     snowflake.ID    `json:"vendor_id" gorm:"not null;uniqueIndex:idx_carts_vendor_owner"`
	OwnerKey     string          `json:"owner_key" gorm:"type:text;not null;uniqueIndex:idx_carts_vendor_owner"`
	Subtotal     decimal.Decimal `json:"subtotal" gorm:"type:numeric(20,2);not null;default:0"`
	Tax          decimal.Decimal `json:"tax" gorm:"type:numeric(20,2);not null;default:0"`
	ShippingCost decimal.Decimal `json:"shipping_cost" gorm:"type:numeric(20,2);not null;default:0"`
	Discount     decimal.Decimal `json:"discount" gorm:"type:numeric(20,2);not null;default:0"`
	Total        decimal.Decimal `json:"total" gorm:"type:numeric(20,2);not null;default:0"`
	Items        []CartItem      `json:"items" gorm:"foreignKey:CartID"`
	CreatedAt    time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"not null"`
}

func (Cart) TableName() string { return "carts" }

// CartItem snapshots name and unit price at the time the line was added.
type CartItem struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	CartID    snowflake.ID    `json:"cart_id" gorm:"not null;index"`
	ProductID snowflake.ID    `json:"product_id" gorm:"not null"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(20,2);not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Variant   datatypes.JSON  `json:"variant,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null"`
}

func (CartItem) TableName() string { return "cart_items" }

// OwnerKeyForUser builds the durable cart key for an authenticated shopper.
func OwnerKeyForUser(userID snowflake.ID) string {
	return fmt.Sprintf("user:%s", userID.String())
}

// OwnerKeyForSession builds the ephemeral cart key for an anonymous shopper.
func OwnerKeyForSession(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

type AddItemRequest struct {
	VendorID  snowflake.ID
	OwnerKey  string
	ProductID snowflake.ID
	Quantity  int
	Variant   datatypes.JSON
}

type Service interface {
	// Get returns the shopper's cart, or an empty cart shape when none
	// exists yet. Never errors on a missing cart.
	Get(ctx context.Context, vendorID snowflake.ID, ownerKey string) (Cart, error)
	AddItem(ctx context.Context, req AddItemRequest) (Cart, error)
	UpdateItemQuantity(ctx context.Context, vendorID snowflake.ID, ownerKey string, itemID snowflake.ID, quantity int) (Cart, error)
	RemoveItem(ctx context.Context, vendorID snowflake.ID, ownerKey string, itemID snowflake.ID) (Cart, error)
	Clear(ctx context.Context, vendorID snowflake.ID, ownerKey string) error

	// Merge folds the anonymous session cart into the user cart on login.
	// Lines with the same product and variant increment quantity.
	Merge(ctx context.Context, vendorID snowflake.ID, sessionKey, userKey string) error
}

var (
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrItemNotFound    = errors.New("cart_item_not_found")
	ErrCartNotFound    = errors.New("cart_not_found")
)
