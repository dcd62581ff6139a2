package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCanceled   Status = "canceled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Order is the system of record for a completed checkout. Identity fields
// are immutable after creation; only the status pair mutates.
type Order struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	VendorID        snowflake.ID    `json:"vendor_id" gorm:"not null;index"`
	CustomerID      *snowflake.ID   `json:"customer_id,omitempty" gorm:"index"`
	OrderNumber     string          `json:"order_number" gorm:"type:text;not null;uniqueIndex"`
	Status          Status          `json:"status" gorm:"type:text;not null"`
	PaymentStatus   PaymentStatus   `json:"payment_status" gorm:"type:text;not null"`
	PaymentMethod   string          `json:"payment_method" gorm:"type:text;not null"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:numeric(20,2);not null"`
	Tax             decimal.Decimal `json:"tax" gorm:"type:numeric(20,2);not null"`
	ShippingCost    decimal.Decimal `json:"shipping_cost" gorm:"type:numeric(20,2);not null"`
	Discount        decimal.Decimal `json:"discount" gorm:"type:numeric(20,2);not null"`
	Total           decimal.Decimal `json:"total" gorm:"type:numeric(20,2);not null"`
	ShippingAddress datatypes.JSON  `json:"shipping_address,omitempty" gorm:"type:jsonb"`
	BillingAddress  datatypes.JSON  `json:"billing_address,omitempty" gorm:"type:jsonb"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

// OrderItem snapshots the product at purchase time. Later product edits
// must not change it.
type OrderItem struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrderID   snowflake.ID    `json:"order_id" gorm:"not null;index"`
	ProductID snowflake.ID    `json:"product_id" gorm:"not null"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(20,2);not null"`
	Total     decimal.Decimal `json:"total" gorm:"type:numeric(20,2);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
}

func (OrderItem) TableName() string { return "order_items" }

type ListOrderRequest struct {
	VendorID snowflake.ID
	Status   Status
}

type Service interface {
	List(ctx context.Context, req ListOrderRequest) ([]Order, error)
	GetByID(ctx context.Context, vendorID, id snowflake.ID) (Order, error)
	UpdateStatus(ctx context.Context, vendorID, id snowflake.ID, status Status) (Order, error)
	MarkPaymentStatus(ctx context.Context, vendorID, id snowflake.ID, status PaymentStatus) (Order, error)
}

var (
	ErrNotFound          = errors.New("order_not_found")
	ErrInvalidStatus     = errors.New("invalid_order_status")
	ErrInvalidTransition = errors.New("invalid_status_transition")
)

// validTransitions lists the allowed order status moves. Delivered and
// canceled are terminal.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCanceled},
	StatusProcessing: {StatusShipped, StatusCanceled},
	StatusShipped:    {StatusDelivered},
}

// CanTransition reports whether an order may move from one status to
// another.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
