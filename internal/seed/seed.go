package seed

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	identitydomain "github.com/smallbiznis/vendora/internal/identity/domain"
	"github.com/smallbiznis/vendora/internal/identity/password"
	subscriptiondomain "github.com/smallbiznis/vendora/internal/subscription/domain"
	"gorm.io/gorm"
)

const defaultPlanName = "Starter"

// EnsureAdminUser creates the bootstrap platform admin when no user with
// the given email exists. Used for local and self-hosted setups.
func EnsureAdminUser(conn *gorm.DB, genID *snowflake.Node, email, plainPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || plainPassword == "" {
		return nil
	}

	var count int64
	if err := conn.Model(&identitydomain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := identitydomain.User{
		ID:           genID.Generate(),
		Email:        email,
		PasswordHash: hash,
		Role:         identitydomain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return conn.Create(&admin).Error
}

// EnsureDefaultPlan creates the Starter subscription plan so a fresh
// install has something to assign vendors to. Skipped once any plan
// exists, so operator-managed catalogs are never touched.
func EnsureDefaultPlan(conn *gorm.DB, genID *snowflake.Node) error {
	var count int64
	if err := conn.Model(&subscriptiondomain.Plan{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	plan := subscriptiondomain.Plan{
		ID:          genID.Generate(),
		Name:        defaultPlanName,
		Price:       decimal.RequireFromString("29.00"),
		Interval:    subscriptiondomain.IntervalMonthly,
		Description: "Default plan for newly onboarded vendors.",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return conn.Create(&plan).Error
}
