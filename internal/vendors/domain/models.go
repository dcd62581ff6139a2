package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/pkg/db/pagination"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

type SubscriptionStatus string

const (
	SubscriptionTrial   SubscriptionStatus = "trial"
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionOverdue SubscriptionStatus = "overdue"
)

// Vendor is a tenant: one storefront operator with its own products,
// customers, orders and ledger.
type Vendor struct {
	ID                 snowflake.ID       `json:"id" gorm:"primaryKey"`
	UserID             snowflake.ID       `json:"user_id" gorm:"not null;index"`
	CompanyName        string             `json:"company_name" gorm:"type:text;not null"`
	Status             Status             `json:"status" gorm:"type:text;not null"`
	SubscriptionPlanID *snowflake.ID      `json:"subscription_plan_id,omitempty" gorm:"index"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status" gorm:"type:text;not null"`
	Theme              string             `json:"theme" gorm:"type:text"`
	CustomCSS          string             `json:"custom_css" gorm:"type:text"`
	LogoURL            string             `json:"logo_url" gorm:"type:text"`
	CreatedAt          time.Time          `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time          `json:"updated_at" gorm:"not null"`
}

func (Vendor) TableName() string { return "vendors" }

type RegisterVendorRequest struct {
	UserID      snowflake.ID
	CompanyName string
}

type UpdateVendorRequest struct {
	ID          snowflake.ID
	CompanyName *string
	Theme       *string
	CustomCSS   *string
	LogoURL     *string
}

type ListVendorRequest struct {
	PageToken string
	PageSize  int32
	Status    Status
}

type Service interface {
	Register(ctx context.Context, req RegisterVendorRequest) (Vendor, error)
	GetByID(ctx context.Context, id snowflake.ID) (Vendor, error)
	List(ctx context.Context, req ListVendorRequest) ([]Vendor, *pagination.PageInfo, error)
	Update(ctx context.Context, req UpdateVendorRequest) (Vendor, error)
	SetStatus(ctx context.Context, id snowflake.ID, status Status) (Vendor, error)
	AssignPlan(ctx context.Context, id, planID snowflake.ID, status SubscriptionStatus) (Vendor, error)
}

var (
	ErrInvalidCompanyName = errors.New("invalid_company_name")
	ErrInvalidUser        = errors.New("invalid_user")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrVendorExists       = errors.New("vendor_already_exists")
	ErrNotFound           = errors.New("vendor_not_found")
)
