package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/storectx"
)

type Type string

const (
	TypeSubdomain Type = "subdomain"
	TypeCustom    Type = "custom"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusError   Status = "error"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationFailed   VerificationStatus = "failed"
)

type SSLStatus string

const (
	SSLPending SSLStatus = "pending"
	SSLActive  SSLStatus = "active"
	SSLError   SSLStatus = "error"
)

// Domain maps a hostname to a vendor storefront.
type Domain struct {
	ID                 snowflake.ID       `json:"id" gorm:"primaryKey"`
	VendorID           snowflake.ID       `json:"vendor_id" gorm:"not null;index"`
	Name               string             `json:"name" gorm:"type:text;not null;uniqueIndex"`
	Type               Type               `json:"type" gorm:"type:text;not null"`
	Status             Status             `json:"status" gorm:"type:text;not null"`
	VerificationStatus VerificationStatus `json:"verification_status" gorm:"type:text;not null"`
	SSLStatus          SSLStatus          `json:"ssl_status" gorm:"type:text;not null"`
	IsPrimary          bool               `json:"is_primary" gorm:"not null;default:false"`
	CreatedAt          time.Time          `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time          `json:"updated_at" gorm:"not null"`
}

func (Domain) TableName() string { return "domains" }

type AddDomainRequest struct {
	VendorID snowflake.ID
	Name     string
}

type VerifyDomainRequest struct {
	ID       snowflake.ID
	Verified bool
}

// Resolution is the outcome of a hostname lookup. IsVendorStore is false
// for platform routes, unknown hostnames and inactive domains.
type Resolution struct {
	IsVendorStore bool
	Storefront    storectx.Storefront
}

type Service interface {
	// Resolve maps a raw Host header value to a storefront context. It
	// never returns an error: lookup failures resolve as not-a-store.
	Resolve(ctx context.Context, host string, override string) Resolution

	AddDomain(ctx context.Context, req AddDomainRequest) (Domain, error)
	ListByVendor(ctx context.Context, vendorID snowflake.ID) ([]Domain, error)
	Verify(ctx context.Context, req VerifyDomainRequest) (Domain, error)
	SetPrimary(ctx context.Context, vendorID, domainID snowflake.ID) (Domain, error)
	Delete(ctx context.Context, vendorID, domainID snowflake.ID) error

	ProvisionSubdomain(ctx context.Context, vendorID snowflake.ID, companyName string) error
}

var (
	ErrInvalidHostname = errors.New("invalid_hostname")
	ErrDomainExists    = errors.New("domain_already_exists")
	ErrNotFound        = errors.New("domain_not_found")
)
