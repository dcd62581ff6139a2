package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Interval string

const (
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
)

// Plan is a platform subscription tier. FeePercentage, when set, overrides
// the platform default for vendors on the plan.
type Plan struct {
	ID            snowflake.ID     `json:"id" gorm:"primaryKey"`
	Name          string           `json:"name" gorm:"type:text;not null;uniqueIndex"`
	Price         decimal.Decimal  `json:"price" gorm:"type:numeric(20,2);not null"`
	Interval      Interval         `json:"interval" gorm:"type:text;not null"`
	FeePercentage *decimal.Decimal `json:"fee_percentage,omitempty" gorm:"type:numeric(8,5)"`
	Description   string           `json:"description,omitempty" gorm:"type:text"`
	CreatedAt     time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time        `json:"updated_at" gorm:"not null"`
}

func (Plan) TableName() string { return "subscription_plans" }

type CreatePlanRequest struct {
	Name          string
	Price         decimal.Decimal
	Interval      Interval
	FeePercentage *decimal.Decimal
	Description   string
}

type UpdatePlanRequest struct {
	ID            snowflake.ID
	Name          *string
	Price         *decimal.Decimal
	FeePercentage *decimal.Decimal
	Description   *string
}

type Service interface {
	CreatePlan(ctx context.Context, req CreatePlanRequest) (Plan, error)
	UpdatePlan(ctx context.Context, req UpdatePlanRequest) (Plan, error)
	DeletePlan(ctx context.Context, id snowflake.ID) error
	GetPlan(ctx context.Context, id snowflake.ID) (Plan, error)
	ListPlans(ctx context.Context) ([]Plan, error)

	// ChargeVendor books the vendor's periodic subscription fee as a
	// platform_subscription ledger transaction and marks the
	// subscription active. Admin-triggered; there is no scheduler.
	ChargeVendor(ctx context.Context, vendorID snowflake.ID) error
}

var (
	ErrInvalidName     = errors.New("invalid_plan_name")
	ErrInvalidPrice    = errors.New("invalid_plan_price")
	ErrInvalidInterval = errors.New("invalid_plan_interval")
	ErrPlanExists      = errors.New("plan_already_exists")
	ErrNotFound        = errors.New("plan_not_found")
	ErrNoPlanAssigned  = errors.New("vendor_has_no_plan")
)
