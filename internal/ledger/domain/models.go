package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxPayment      TxType = "payment"
	TxRefund       TxType = "refund"
	TxPayout       TxType = "payout"
	TxSubscription TxType = "platform_subscription"
)

type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusCompleted TxStatus = "completed"
	TxStatusFailed    TxStatus = "failed"
	TxStatusRefunded  TxStatus = "refunded"
)

// Transaction records one money movement for a vendor. Completed rows are
// immutable except for the refund bookkeeping fields. PayoutID is set when
// a payout claims the row, preventing double-counting.
type Transaction struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	VendorID       snowflake.ID    `json:"vendor_id" gorm:"not null;index"`
	Type           TxType          `json:"type" gorm:"type:text;not null"`
	Status         TxStatus        `json:"status" gorm:"type:text;not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(20,2);not null"`
	Fee            decimal.Decimal `json:"fee" gorm:"type:numeric(20,2);not null"`
	Net            decimal.Decimal `json:"net" gorm:"type:numeric(20,2);not null"`
	RefundedAmount decimal.Decimal `json:"refunded_amount" gorm:"type:numeric(20,2);not null;default:0"`
	OrderID        *snowflake.ID   `json:"order_id,omitempty" gorm:"index"`
	PayoutID       *snowflake.ID   `json:"payout_id,omitempty" gorm:"index"`
	Description    string          `json:"description,omitempty" gorm:"type:text"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

// Payout settles part of a vendor's available balance. The claimed
// transactions carry its id in their payout_id column.
type Payout struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	VendorID  snowflake.ID    `json:"vendor_id" gorm:"not null;index"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(20,2);not null"`
	Status    PayoutStatus    `json:"status" gorm:"type:text;not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null"`
}

func (Payout) TableName() string { return "payouts" }

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// SeriesPoint is one bucket of the revenue projection.
type SeriesPoint struct {
	Period  string          `json:"period"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

type AnalyticsRequest struct {
	VendorID    snowflake.ID
	Granularity Granularity
	From        time.Time
	To          time.Time
}

type ListTransactionRequest struct {
	VendorID snowflake.ID
	Type     TxType
}

type Service interface {
	RecordPayment(ctx context.Context, vendorID, orderID snowflake.ID, amount decimal.Decimal) (Transaction, error)
	RecordSubscriptionCharge(ctx context.Context, vendorID snowflake.ID, amount decimal.Decimal, description string) (Transaction, error)
	Refund(ctx context.Context, vendorID, transactionID snowflake.ID, amount decimal.Decimal) (Transaction, error)
	ListTransactions(ctx context.Context, req ListTransactionRequest) ([]Transaction, error)

	AvailableBalance(ctx context.Context, vendorID snowflake.ID) (decimal.Decimal, error)
	RequestPayout(ctx context.Context, vendorID snowflake.ID, amount decimal.Decimal) (Payout, error)
	CompletePayout(ctx context.Context, payoutID snowflake.ID, success bool) (Payout, error)
	ListPayouts(ctx context.Context, vendorID snowflake.ID) ([]Payout, error)

	Analytics(ctx context.Context, req AnalyticsRequest) ([]SeriesPoint, error)
}

var (
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrTransactionMissing = errors.New("transaction_not_found")
	ErrPayoutMissing      = errors.New("payout_not_found")
	ErrOverRefund         = errors.New("refund_exceeds_remaining_amount")
	ErrInsufficientFunds  = errors.New("insufficient_funds")
	ErrInvalidGranularity = errors.New("invalid_granularity")
	ErrPayoutNotPending   = errors.New("payout_not_pending")
	ErrPayoutConflict     = errors.New("payout_claim_conflict")
)
