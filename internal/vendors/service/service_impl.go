package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/vendors/domain"
	"github.com/smallbiznis/vendora/internal/vendors/repository"
	"github.com/smallbiznis/vendora/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxCompanyNameLen = 120

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        repository.Repository
	Provisioner domain.DomainProvisioner
}

type ServiceImpl struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        repository.Repository
	provisioner domain.DomainProvisioner
}

func New(p Params) domain.Service {
	return &ServiceImpl{
		db:          p.DB,
		log:         p.Log.Named("vendor.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		provisioner: p.Provisioner,
	}
}

// Register creates a vendor in pending status with a trial subscription
// and provisions its default platform subdomain.
func (s *ServiceImpl) Register(ctx context.Context, req domain.RegisterVendorRequest) (domain.Vendor, error) {
	companyName := strings.TrimSpace(req.CompanyName)
	if companyName == "" || len(companyName) > maxCompanyNameLen {
		return domain.Vendor{}, domain.ErrInvalidCompanyName
	}
	if req.UserID == 0 {
		return domain.Vendor{}, domain.ErrInvalidUser
	}

	existing, err := s.repo.FindByUserID(ctx, s.db, req.UserID)
	if err != nil {
		return domain.Vendor{}, err
	}
	if existing != nil {
		return domain.Vendor{}, domain.ErrVendorExists
	}

	now := s.clock.Now()
	vendor := domain.Vendor{
		ID:                 s.genID.Generate(),
		UserID:             req.UserID,
		CompanyName:        companyName,
		Status:             domain.StatusPending,
		SubscriptionStatus: domain.SubscriptionTrial,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Insert(ctx, s.db, &vendor); err != nil {
		return domain.Vendor{}, err
	}

	if err := s.provisioner.ProvisionSubdomain(ctx, vendor.ID, companyName); err != nil {
		return domain.Vendor{}, err
	}

	s.log.Info("vendor registered",
		zap.String("vendor_id", vendor.ID.String()),
		zap.String("user_id", req.UserID.String()),
	)
	return vendor, nil
}

func (s *ServiceImpl) GetByID(ctx context.Context, id snowflake.ID) (domain.Vendor, error) {
	vendor, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Vendor{}, err
	}
	if vendor == nil {
		return domain.Vendor{}, domain.ErrNotFound
	}
	return *vendor, nil
}

func (s *ServiceImpl) List(ctx context.Context, req domain.ListVendorRequest) ([]domain.Vendor, *pagination.PageInfo, error) {
	filter := repository.ListFilter{
		Status:   req.Status,
		PageSize: int(req.PageSize),
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 10
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, nil, err
		}
		if cursor.ID != "" {
			id, err := snowflake.ParseString(cursor.ID)
			if err != nil {
				return nil, nil, err
			}
			filter.AfterID = id
		}
	}

	vendors, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(vendors, int32(filter.PageSize), func(v *domain.Vendor) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: v.ID.String()})
		return token
	})

	if len(vendors) > filter.PageSize {
		vendors = vendors[:filter.PageSize]
	}
	out := make([]domain.Vendor, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, *v)
	}
	return out, pageInfo, nil
}

// Update applies the storefront customization fields that were provided.
func (s *ServiceImpl) Update(ctx context.Context, req domain.UpdateVendorRequest) (domain.Vendor, error) {
	vendor, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return domain.Vendor{}, err
	}
	if vendor == nil {
		return domain.Vendor{}, domain.ErrNotFound
	}

	if req.CompanyName != nil {
		name := strings.TrimSpace(*req.CompanyName)
		if name == "" || len(name) > maxCompanyNameLen {
			return domain.Vendor{}, domain.ErrInvalidCompanyName
		}
		vendor.CompanyName = name
	}
	if req.Theme != nil {
		vendor.Theme = *req.Theme
	}
	if req.CustomCSS != nil {
		vendor.CustomCSS = *req.CustomCSS
	}
	if req.LogoURL != nil {
		vendor.LogoURL = *req.LogoURL
	}
	vendor.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, vendor); err != nil {
		return domain.Vendor{}, err
	}
	return *vendor, nil
}

func (s *ServiceImpl) SetStatus(ctx context.Context, id snowflake.ID, status domain.Status) (domain.Vendor, error) {
	switch status {
	case domain.StatusPending, domain.StatusActive, domain.StatusSuspended:
	default:
		return domain.Vendor{}, domain.ErrInvalidStatus
	}

	vendor, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Vendor{}, err
	}
	if vendor == nil {
		return domain.Vendor{}, domain.ErrNotFound
	}

	vendor.Status = status
	vendor.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, vendor); err != nil {
		return domain.Vendor{}, err
	}

	s.log.Info("vendor status changed",
		zap.String("vendor_id", vendor.ID.String()),
		zap.String("status", string(status)),
	)
	return *vendor, nil
}

func (s *ServiceImpl) AssignPlan(ctx context.Context, id, planID snowflake.ID, status domain.SubscriptionStatus) (domain.Vendor, error) {
	switch status {
	case domain.SubscriptionTrial, domain.SubscriptionActive, domain.SubscriptionOverdue:
	default:
		return domain.Vendor{}, domain.ErrInvalidStatus
	}

	vendor, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Vendor{}, err
	}
	if vendor == nil {
		return domain.Vendor{}, domain.ErrNotFound
	}

	vendor.SubscriptionPlanID = &planID
	vendor.SubscriptionStatus = status
	vendor.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, vendor); err != nil {
		return domain.Vendor{}, err
	}
	return *vendor, nil
}
