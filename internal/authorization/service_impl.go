package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	identitydomain "github.com/smallbiznis/vendora/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectProduct     = "product"
	ObjectOrder       = "order"
	ObjectCustomer    = "customer"
	ObjectDomain      = "domain"
	ObjectVendor      = "vendor"
	ObjectTransaction = "transaction"
	ObjectPayout      = "payout"
	ObjectPlan        = "plan"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionPayoutRequest  = "request"
	ActionPayoutComplete = "complete"
	ActionRefund         = "refund"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidVendor = errors.New("invalid_vendor")
	ErrForbidden     = errors.New("authorization_forbidden")
)

type Service interface {
	// Authorize checks whether the identity may perform action on object
	// within the given vendor scope. Platform admins pass every check.
	Authorize(ctx context.Context, id identitydomain.Identity, vendorID string, object string, action string) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, id identitydomain.Identity, vendorID string, object string, action string) error {
	_ = ctx

	if id.UserID == 0 {
		return ErrInvalidActor
	}
	if id.IsAdmin() {
		return nil
	}

	vendorID = strings.TrimSpace(vendorID)
	if vendorID == "" {
		return ErrInvalidVendor
	}
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)
	if object == "" || action == "" {
		return ErrForbidden
	}

	// Vendor users only act within their own vendor scope.
	if id.VendorID == 0 || id.VendorID.String() != vendorID {
		return ErrForbidden
	}

	subject := fmt.Sprintf("user:%s", id.UserID.String())
	domain := fmt.Sprintf("vendor:%s", vendorID)
	roleName := "role:vendor_owner"

	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("subject", subject),
			zap.String("domain", domain),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) ensureGrouping(subject, roleName, domain string) error {
	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:vendor_owner", "*", ObjectProduct, "*"},
		{"role:vendor_owner", "*", ObjectOrder, "*"},
		{"role:vendor_owner", "*", ObjectCustomer, ActionView},
		{"role:vendor_owner", "*", ObjectDomain, "*"},
		{"role:vendor_owner", "*", ObjectVendor, ActionView},
		{"role:vendor_owner", "*", ObjectVendor, ActionUpdate},
		{"role:vendor_owner", "*", ObjectTransaction, ActionView},
		{"role:vendor_owner", "*", ObjectTransaction, ActionRefund},
		{"role:vendor_owner", "*", ObjectPayout, ActionView},
		{"role:vendor_owner", "*", ObjectPayout, ActionPayoutRequest},
	}
	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy[0], policy[1], policy[2], policy[3])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2], policy[3]); err != nil {
			return err
		}
	}
	return nil
}
