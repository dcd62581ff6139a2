package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/clock"
	ledgerdomain "github.com/smallbiznis/vendora/internal/ledger/domain"
	"github.com/smallbiznis/vendora/internal/subscription/domain"
	"github.com/smallbiznis/vendora/internal/subscription/repository"
	vendordomain "github.com/smallbiznis/vendora/internal/vendors/domain"
	vendorrepo "github.com/smallbiznis/vendora/internal/vendors/repository"
	"github.com/smallbiznis/vendora/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    repository.Repository
	Vendors vendorrepo.Repository
	Ledger  ledgerdomain.Service
}

type ServiceImpl struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    repository.Repository
	vendors vendorrepo.Repository
	ledger  ledgerdomain.Service
}

func New(p Params) domain.Service {
	return &ServiceImpl{
		db:      p.DB,
		log:     p.Log.Named("subscription.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		vendors: p.Vendors,
		ledger:  p.Ledger,
	}
}

func (s *ServiceImpl) CreatePlan(ctx context.Context, req domain.CreatePlanRequest) (domain.Plan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Plan{}, domain.ErrInvalidName
	}
	if req.Price.IsNegative() {
		return domain.Plan{}, domain.ErrInvalidPrice
	}
	switch req.Interval {
	case domain.IntervalMonthly, domain.IntervalYearly:
	default:
		return domain.Plan{}, domain.ErrInvalidInterval
	}

	now := s.clock.Now()
	plan := domain.Plan{
		ID:            s.genID.Generate(),
		Name:          name,
		Price:         req.Price.Round(2),
		Interval:      req.Interval,
		FeePercentage: req.FeePercentage,
		Description:   req.Description,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.repo.Insert(ctx, s.db, &plan)
	if db.IsDuplicateKeyErr(err) {
		return domain.Plan{}, domain.ErrPlanExists
	}
	if err != nil {
		return domain.Plan{}, err
	}
	return plan, nil
}

func (s *ServiceImpl) UpdatePlan(ctx context.Context, req domain.UpdatePlanRequest) (domain.Plan, error) {
	plan, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return domain.Plan{}, err
	}
	if plan == nil {
		return domain.Plan{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Plan{}, domain.ErrInvalidName
		}
		plan.Name = name
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return domain.Plan{}, domain.ErrInvalidPrice
		}
		plan.Price = req.Price.Round(2)
	}
	if req.FeePercentage != nil {
		plan.FeePercentage = req.FeePercentage
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	plan.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, plan); err != nil {
		return domain.Plan{}, err
	}
	return *plan, nil
}

func (s *ServiceImpl) DeletePlan(ctx context.Context, id snowflake.ID) error {
	plan, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if plan == nil {
		return domain.ErrNotFound
	}
	return s.repo.Delete(ctx, s.db, id)
}

func (s *ServiceImpl) GetPlan(ctx context.Context, id snowflake.ID) (domain.Plan, error) {
	plan, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Plan{}, err
	}
	if plan == nil {
		return domain.Plan{}, domain.ErrNotFound
	}
	return *plan, nil
}

func (s *ServiceImpl) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	plans, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, *p)
	}
	return out, nil
}

func (s *ServiceImpl) ChargeVendor(ctx context.Context, vendorID snowflake.ID) error {
	vendor, err := s.vendors.FindByID(ctx, s.db, vendorID)
	if err != nil {
		return err
	}
	if vendor == nil {
		return vendordomain.ErrNotFound
	}
	if vendor.SubscriptionPlanID == nil {
		return domain.ErrNoPlanAssigned
	}

	plan, err := s.repo.FindByID(ctx, s.db, *vendor.SubscriptionPlanID)
	if err != nil {
		return err
	}
	if plan == nil {
		return domain.ErrNotFound
	}

	description := fmt.Sprintf("%s plan, %s billing", plan.Name, plan.Interval)
	if _, err := s.ledger.RecordSubscriptionCharge(ctx, vendorID, plan.Price, description); err != nil {
		return err
	}

	vendor.SubscriptionStatus = vendordomain.SubscriptionActive
	vendor.UpdatedAt = s.clock.Now()
	if err := s.vendors.Update(ctx, s.db, vendor); err != nil {
		return err
	}

	s.log.Info("subscription charged",
		zap.String("vendor_id", vendorID.String()),
		zap.String("plan", plan.Name),
		zap.String("amount", plan.Price.String()),
	)
	return nil
}
