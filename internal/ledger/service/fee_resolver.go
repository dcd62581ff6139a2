package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/ledger/domain"
	subscriptionrepo "github.com/smallbiznis/vendora/internal/subscription/repository"
	vendorrepo "github.com/smallbiznis/vendora/internal/vendors/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FeeResolverParams struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Policy  *config.PlatformPolicyHolder
	Vendors vendorrepo.Repository
	Plans   subscriptionrepo.Repository
}

type feeResolver struct {
	db      *gorm.DB
	log     *zap.Logger
	policy  *config.PlatformPolicyHolder
	vendors vendorrepo.Repository
	plans   subscriptionrepo.Repository
}

func NewFeeResolver(p FeeResolverParams) domain.FeeResolver {
	return &feeResolver{
		db:      p.DB,
		log:     p.Log.Named("ledger.fees"),
		policy:  p.Policy,
		vendors: p.Vendors,
		plans:   p.Plans,
	}
}

// FeeScheduleFor prefers the vendor's plan fee percentage over the
// platform default. The flat fee always comes from the platform policy.
// Lookup errors fall back to the default schedule.
func (r *feeResolver) FeeScheduleFor(ctx context.Context, vendorID snowflake.ID) (decimal.Decimal, decimal.Decimal) {
	policy := r.policy.Get()

	vendor, err := r.vendors.FindByID(ctx, r.db, vendorID)
	if err != nil {
		r.log.Warn("vendor lookup failed, using default fee schedule",
			zap.String("vendor_id", vendorID.String()), zap.Error(err))
		return policy.FeePercentage, policy.FlatFee
	}
	if vendor == nil || vendor.SubscriptionPlanID == nil {
		return policy.FeePercentage, policy.FlatFee
	}

	plan, err := r.plans.FindByID(ctx, r.db, *vendor.SubscriptionPlanID)
	if err != nil {
		r.log.Warn("plan lookup failed, using default fee schedule",
			zap.String("vendor_id", vendorID.String()), zap.Error(err))
		return policy.FeePercentage, policy.FlatFee
	}
	if plan == nil || plan.FeePercentage == nil {
		return policy.FeePercentage, policy.FlatFee
	}
	return *plan.FeePercentage, policy.FlatFee
}
