package service

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/observability/metrics"
	"github.com/smallbiznis/vendora/internal/storectx"
	"github.com/smallbiznis/vendora/internal/storefront/domain"
	"github.com/smallbiznis/vendora/internal/storefront/repository"
	vendordomain "github.com/smallbiznis/vendora/internal/vendors/domain"
	vendorrepo "github.com/smallbiznis/vendora/internal/vendors/repository"
	"github.com/smallbiznis/vendora/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Cfg        config.Config
	Repo       repository.Repository
	VendorRepo vendorrepo.Repository
	Metrics    *metrics.Metrics `optional:"true"`
}

type ServiceImpl struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	cfg        config.Config
	repo       repository.Repository
	vendorRepo vendorrepo.Repository
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &ServiceImpl{
		db:         p.DB,
		log:        p.Log.Named("storefront.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		cfg:        p.Cfg,
		repo:       p.Repo,
		vendorRepo: p.VendorRepo,
		metrics:    p.Metrics,
	}
}

// Resolve maps a Host header value to a storefront context. Only domains in
// active status resolve. The override substitutes for the Host value and is
// only passed in by the middleware outside production; a bare label gets the
// platform suffix appended before lookup. Lookup failures are swallowed so
// the request pipeline keeps serving non-storefront routes.
func (s *ServiceImpl) Resolve(ctx context.Context, host string, override string) domain.Resolution {
	lookup := normalizeHost(host)
	if override != "" {
		o := normalizeHost(override)
		if !strings.Contains(o, ".") {
			o += s.cfg.PlatformSuffix
		}
		lookup = o
	}
	if lookup == "" {
		return domain.Resolution{}
	}

	record, err := s.repo.FindByName(ctx, s.db, lookup)
	if err != nil {
		s.log.Warn("domain lookup failed", zap.String("hostname", lookup), zap.Error(err))
		s.metrics.RecordStorefrontResolution(ctx, "error")
		return domain.Resolution{}
	}
	if record == nil {
		s.metrics.RecordStorefrontResolution(ctx, "miss")
		return domain.Resolution{}
	}
	if record.Status != domain.StatusActive {
		s.metrics.RecordStorefrontResolution(ctx, "inactive")
		return domain.Resolution{}
	}

	vendor, err := s.vendorRepo.FindByID(ctx, s.db, record.VendorID)
	if err != nil {
		s.log.Warn("vendor lookup failed",
			zap.String("hostname", lookup),
			zap.String("vendor_id", record.VendorID.String()),
			zap.Error(err),
		)
		s.metrics.RecordStorefrontResolution(ctx, "error")
		return domain.Resolution{}
	}
	if vendor == nil || vendor.Status == vendordomain.StatusSuspended {
		s.metrics.RecordStorefrontResolution(ctx, "miss")
		return domain.Resolution{}
	}

	s.metrics.RecordStorefrontResolution(ctx, "hit")
	return domain.Resolution{
		IsVendorStore: true,
		Storefront: storectx.Storefront{
			VendorID:    vendor.ID,
			DomainID:    record.ID,
			Hostname:    record.Name,
			CompanyName: vendor.CompanyName,
			Theme:       vendor.Theme,
			CustomCSS:   vendor.CustomCSS,
			LogoURL:     vendor.LogoURL,
		},
	}
}

// ProvisionSubdomain creates the vendor's default platform subdomain. The
// label is derived from the company name; on collision a short id suffix is
// appended once.
func (s *ServiceImpl) ProvisionSubdomain(ctx context.Context, vendorID snowflake.ID, companyName string) error {
	label := slug.Make(companyName)
	if label == "" {
		label = fmt.Sprintf("store-%s", vendorID.String())
	}

	now := s.clock.Now()
	record := domain.Domain{
		ID:                 s.genID.Generate(),
		VendorID:           vendorID,
		Name:               label + s.cfg.PlatformSuffix,
		Type:               domain.TypeSubdomain,
		Status:             domain.StatusActive,
		VerificationStatus: domain.VerificationVerified,
		SSLStatus:          domain.SSLActive,
		IsPrimary:          true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.repo.Insert(ctx, s.db, &record)
	if db.IsDuplicateKeyErr(err) {
		record.ID = s.genID.Generate()
		record.Name = fmt.Sprintf("%s-%d%s", label, vendorID%10000, s.cfg.PlatformSuffix)
		err = s.repo.Insert(ctx, s.db, &record)
	}
	if err != nil {
		return err
	}

	s.log.Info("subdomain provisioned",
		zap.String("vendor_id", vendorID.String()),
		zap.String("hostname", record.Name),
	)
	return nil
}

func (s *ServiceImpl) AddDomain(ctx context.Context, req domain.AddDomainRequest) (domain.Domain, error) {
	name := normalizeHost(req.Name)
	if !validHostname(name) {
		return domain.Domain{}, domain.ErrInvalidHostname
	}

	now := s.clock.Now()
	record := domain.Domain{
		ID:                 s.genID.Generate(),
		VendorID:           req.VendorID,
		Name:               name,
		Type:               domain.TypeCustom,
		Status:             domain.StatusPending,
		VerificationStatus: domain.VerificationPending,
		SSLStatus:          domain.SSLPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	err := s.repo.Insert(ctx, s.db, &record)
	if db.IsDuplicateKeyErr(err) {
		return domain.Domain{}, domain.ErrDomainExists
	}
	if err != nil {
		return domain.Domain{}, err
	}
	return record, nil
}

func (s *ServiceImpl) ListByVendor(ctx context.Context, vendorID snowflake.ID) ([]domain.Domain, error) {
	records, err := s.repo.ListByVendor(ctx, s.db, vendorID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Domain, 0, len(records))
	for _, r := range records {
		out = append(out, *r)
	}
	return out, nil
}

// Verify records the outcome of a hostname verification check. Verified
// domains activate; failed ones move to error status.
func (s *ServiceImpl) Verify(ctx context.Context, req domain.VerifyDomainRequest) (domain.Domain, error) {
	record, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return domain.Domain{}, err
	}
	if record == nil {
		return domain.Domain{}, domain.ErrNotFound
	}

	if req.Verified {
		record.VerificationStatus = domain.VerificationVerified
		record.Status = domain.StatusActive
		record.SSLStatus = domain.SSLActive
	} else {
		record.VerificationStatus = domain.VerificationFailed
		record.Status = domain.StatusError
	}
	record.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, record); err != nil {
		return domain.Domain{}, err
	}
	return *record, nil
}

// SetPrimary marks one of the vendor's domains primary and clears the flag
// on its siblings in the same transaction.
func (s *ServiceImpl) SetPrimary(ctx context.Context, vendorID, domainID snowflake.ID) (domain.Domain, error) {
	var out domain.Domain
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.repo.FindByID(ctx, tx, domainID)
		if err != nil {
			return err
		}
		if record == nil || record.VendorID != vendorID {
			return domain.ErrNotFound
		}
		if err := s.repo.ClearPrimary(ctx, tx, vendorID); err != nil {
			return err
		}
		record.IsPrimary = true
		record.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, record); err != nil {
			return err
		}
		out = *record
		return nil
	})
	if err != nil {
		return domain.Domain{}, err
	}
	return out, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, vendorID, domainID snowflake.ID) error {
	record, err := s.repo.FindByID(ctx, s.db, domainID)
	if err != nil {
		return err
	}
	if record == nil || record.VendorID != vendorID {
		return domain.ErrNotFound
	}
	return s.repo.Delete(ctx, s.db, domainID)
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}

func validHostname(name string) bool {
	if name == "" || len(name) > 253 {
		return false
	}
	if !strings.Contains(name, ".") {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '.':
		default:
			return false
		}
	}
	return !strings.HasPrefix(name, ".") && !strings.HasSuffix(name, ".")
}
