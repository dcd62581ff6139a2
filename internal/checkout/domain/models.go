package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	"gorm.io/datatypes"
)

const PaymentMethodCOD = "cod"

type CheckoutRequest struct {
	VendorID        snowflake.ID
	OwnerKey        string
	Email           string
	Name            string
	PaymentMethod   string
	ShippingAddress datatypes.JSON
	BillingAddress  datatypes.JSON
}

type Service interface {
	// Checkout converts a non-empty cart into a persisted order in one
	// database transaction: customer resolution, order plus item
	// snapshots, customer totals and cart removal all commit together.
	Checkout(ctx context.Context, req CheckoutRequest) (orderdomain.Order, error)

	// ConfirmPayment marks an order paid and books the ledger payment
	// transaction with the platform fee applied.
	ConfirmPayment(ctx context.Context, vendorID, orderID snowflake.ID) (orderdomain.Order, error)
}

var (
	ErrEmptyCart            = errors.New("cart_is_empty")
	ErrInvalidEmail         = errors.New("invalid_email")
	ErrMissingPaymentMethod = errors.New("missing_payment_method")
	ErrAlreadyPaid          = errors.New("order_already_paid")
	ErrNumberExhausted      = errors.New("order_number_attempts_exhausted")
)
