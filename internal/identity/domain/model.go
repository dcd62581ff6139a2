package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleVendor   Role = "vendor"
	RoleCustomer Role = "customer"
)

// User is a platform account. Vendor owners and staff carry a VendorID.
type User struct {
	ID           snowflake.ID  `json:"id" gorm:"primaryKey"`
	Email        string        `json:"email" gorm:"type:text;not null;uniqueIndex:ux_users_email"`
	Name         string        `json:"name" gorm:"type:text;not null"`
	PasswordHash string        `json:"-" gorm:"type:text;not null"`
	Role         Role          `json:"role" gorm:"type:text;not null"`
	VendorID     *snowflake.ID `json:"vendor_id,omitempty" gorm:"index"`
	CreatedAt    time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time     `json:"updated_at" gorm:"not null"`
}

func (User) TableName() string { return "users" }

// Identity is the authenticated principal resolved per request.
type Identity struct {
	UserID   snowflake.ID
	Role     Role
	VendorID snowflake.ID

	// ActingAs is non-zero when an admin is impersonating this identity;
	// it carries the admin's real user ID for audit trails.
	ActingAs snowflake.ID
}

func (i Identity) IsAdmin() bool  { return i.Role == RoleAdmin }
func (i Identity) IsVendor() bool { return i.Role == RoleVendor }

type RegisterRequest struct {
	Email    string
	Name     string
	Password string
	Role     Role
}

type LoginRequest struct {
	Email    string
	Password string
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (User, error)
	Login(ctx context.Context, req LoginRequest) (Session, error)
	Verify(ctx context.Context, token string) (Identity, error)
	// Impersonate issues a session for the target user, stamped with the
	// admin's real user ID. Admin-only.
	Impersonate(ctx context.Context, admin Identity, targetUserID snowflake.ID) (Session, error)
	AttachVendor(ctx context.Context, userID, vendorID snowflake.ID) error
}

var (
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidSession     = errors.New("invalid_session")
	ErrSessionExpired     = errors.New("session_expired")
	ErrUserExists         = errors.New("user_exists")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrForbidden          = errors.New("forbidden")
)
