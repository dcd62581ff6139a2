package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/storefront/domain"
	"github.com/smallbiznis/vendora/internal/storefront/repository"
	vendordomain "github.com/smallbiznis/vendora/internal/vendors/domain"
	vendorrepo "github.com/smallbiznis/vendora/internal/vendors/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type storefrontFixture struct {
	svc  domain.Service
	conn *gorm.DB
	node *snowflake.Node
}

func setupStorefrontService(t *testing.T) storefrontFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&domain.Domain{}, &vendordomain.Vendor{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
		Cfg:        config.Config{PlatformSuffix: ".vendora.shop"},
		Repo:       repository.Provide(),
		VendorRepo: vendorrepo.Provide(),
	})
	return storefrontFixture{svc: svc, conn: conn, node: node}
}

func (f storefrontFixture) seedVendor(t *testing.T, status vendordomain.Status) vendordomain.Vendor {
	t.Helper()

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	vendor := vendordomain.Vendor{
		ID:                 f.node.Generate(),
		UserID:             f.node.Generate(),
		CompanyName:        "Acme Goods",
		Status:             status,
		SubscriptionStatus: vendordomain.SubscriptionTrial,
		Theme:              "default",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, f.conn.Create(&vendor).Error)
	return vendor
}

func (f storefrontFixture) seedDomain(t *testing.T, vendorID snowflake.ID, name string, status domain.Status) domain.Domain {
	t.Helper()

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	record := domain.Domain{
		ID:                 f.node.Generate(),
		VendorID:           vendorID,
		Name:               name,
		Type:               domain.TypeCustom,
		Status:             status,
		VerificationStatus: domain.VerificationVerified,
		SSLStatus:          domain.SSLActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, f.conn.Create(&record).Error)
	return record
}

func TestResolveActiveDomain(t *testing.T) {
	f := setupStorefrontService(t)
	vendor := f.seedVendor(t, vendordomain.StatusActive)
	record := f.seedDomain(t, vendor.ID, "acme.example.com", domain.StatusActive)

	res := f.svc.Resolve(context.Background(), "acme.example.com", "")
	require.True(t, res.IsVendorStore)
	require.Equal(t, vendor.ID, res.Storefront.VendorID)
	require.Equal(t, record.ID, res.Storefront.DomainID)
	require.Equal(t, "acme.example.com", res.Storefront.Hostname)
	require.Equal(t, "Acme Goods", res.Storefront.CompanyName)
	require.Equal(t, "default", res.Storefront.Theme)
}

func TestResolveStripsPortAndCase(t *testing.T) {
	f := setupStorefrontService(t)
	vendor := f.seedVendor(t, vendordomain.StatusActive)
	f.seedDomain(t, vendor.ID, "acme.example.com", domain.StatusActive)

	res := f.svc.Resolve(context.Background(), "ACME.Example.COM:8080", "")
	require.True(t, res.IsVendorStore)
}

func TestResolveUnknownHost(t *testing.T) {
	f := setupStorefrontService(t)

	res := f.svc.Resolve(context.Background(), "nobody.example.com", "")
	require.False(t, res.IsVendorStore)

	res = f.svc.Resolve(context.Background(), "", "")
	require.False(t, res.IsVendorStore)
}

func TestResolveIgnoresInactiveDomain(t *testing.T) {
	f := setupStorefrontService(t)
	vendor := f.seedVendor(t, vendordomain.StatusActive)
	f.seedDomain(t, vendor.ID, "pending.example.com", domain.StatusPending)
	f.seedDomain(t, vendor.ID, "broken.example.com", domain.StatusError)

	require.False(t, f.svc.Resolve(context.Background(), "pending.example.com", "").IsVendorStore)
	require.False(t, f.svc.Resolve(context.Background(), "broken.example.com", "").IsVendorStore)
}

func TestResolveSuspendedVendorIsMiss(t *testing.T) {
	f := setupStorefrontService(t)
	vendor := f.seedVendor(t, vendordomain.StatusSuspended)
	f.seedDomain(t, vendor.ID, "suspended.example.com", domain.StatusActive)

	require.False(t, f.svc.Resolve(context.Background(), "suspended.example.com", "").IsVendorStore)
}

func TestResolveOverride(t *testing.T) {
	f := setupStorefrontService(t)
	vendor := f.seedVendor(t, vendordomain.StatusActive)
	f.seedDomain(t, vendor.ID, "acme.vendora.shop", domain.StatusActive)

	// A bare label gets the platform suffix appended.
	res := f.svc.Resolve(context.Background(), "localhost:3000", "acme")
	require.True(t, res.IsVendorStore)
	require.Equal(t, vendor.ID, res.Storefront.VendorID)

	// A fully qualified override is used as-is.
	res = f.svc.Resolve(context.Background(), "localhost:3000", "acme.vendora.shop")
	require.True(t, res.IsVendorStore)
}

func TestProvisionSubdomain(t *testing.T) {
	f := setupStorefrontService(t)
	vendor := f.seedVendor(t, vendordomain.StatusActive)

	require.NoError(t, f.svc.ProvisionSubdomain(context.Background(), vendor.ID, "Acme Goods"))

	domains, err := f.svc.ListByVendor(context.Background(), vendor.ID)
	require.NoError(t, err)
	require.Len(t, domains, 1)
	require.Equal(t, "acme-goods.vendora.shop", domains[0].Name)
	require.Equal(t, domain.TypeSubdomain, domains[0].Type)
	require.Equal(t, domain.StatusActive, domains[0].Status)
	require.True(t, domains[0].IsPrimary)
}

func TestProvisionSubdomainCollisionGetsSuffix(t *testing.T) {
	f := setupStorefrontService(t)
	first := f.seedVendor(t, vendordomain.StatusActive)
	second := f.seedVendor(t, vendordomain.StatusActive)

	require.NoError(t, f.svc.ProvisionSubdomain(context.Background(), first.ID, "Acme Goods"))
	require.NoError(t, f.svc.ProvisionSubdomain(context.Background(), second.ID, "Acme Goods"))

	domains, err := f.svc.ListByVendor(context.Background(), second.ID)
	require.NoError(t, err)
	require.Len(t, domains, 1)
	require.NotEqual(t, "acme-goods.vendora.shop", domains[0].Name)
	require.Contains(t, domains[0].Name, "acme-goods-")
}

func TestAddDomainValidation(t *testing.T) {
	f := setupStorefrontService(t)
	vendor := f.seedVendor(t, vendordomain.StatusActive)
	ctx := context.Background()

	for _, bad := range []string{"", "no-dots", "has space.example.com", ".leading.dot", "trailing.dot."} {
		_, err := f.svc.AddDomain(ctx, domain.AddDomainRequest{VendorID: vendor.ID, Name: bad})
		require.ErrorIs(t, err, domain.ErrInvalidHostname, "hostname %q", bad)
	}

	record, err := f.svc.AddDomain(ctx, domain.AddDomainRequest{VendorID: vendor.ID, Name: "Shop.Example.COM"})
	require.NoError(t, err)
	require.Equal(t, "shop.example.com", record.Name)
	require.Equal(t, domain.StatusPending, record.Status)
	require.Equal(t, domain.VerificationPending, record.VerificationStatus)

	_, err = f.svc.AddDomain(ctx, domain.AddDomainRequest{VendorID: vendor.ID, Name: "shop.example.com"})
	require.ErrorIs(t, err, domain.ErrDomainExists)
}

func TestVerifyTransitions(t *testing.T) {
	f := setupStorefrontService(t)
	vendor := f.seedVendor(t, vendordomain.StatusActive)
	ctx := context.Background()

	record, err := f.svc.AddDomain(ctx, domain.AddDomainRequest{VendorID: vendor.ID, Name: "shop.example.com"})
	require.NoError(t, err)

	verified, err := f.svc.Verify(ctx, domain.VerifyDomainRequest{ID: record.ID, Verified: true})
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, verified.Status)
	require.Equal(t, domain.VerificationVerified, verified.VerificationStatus)
	require.Equal(t, domain.SSLActive, verified.SSLStatus)

	failed, err := f.svc.Verify(ctx, domain.VerifyDomainRequest{ID: record.ID, Verified: false})
	require.NoError(t, err)
	require.Equal(t, domain.StatusError, failed.Status)
	require.Equal(t, domain.VerificationFailed, failed.VerificationStatus)

	_, err = f.svc.Verify(ctx, domain.VerifyDomainRequest{ID: f.node.Generate(), Verified: true})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetPrimaryClearsSiblings(t *testing.T) {
	f := setupStorefrontService(t)
	vendor := f.seedVendor(t, vendordomain.StatusActive)
	ctx := context.Background()

	first := f.seedDomain(t, vendor.ID, "one.example.com", domain.StatusActive)
	second := f.seedDomain(t, vendor.ID, "two.example.com", domain.StatusActive)

	_, err := f.svc.SetPrimary(ctx, vendor.ID, first.ID)
	require.NoError(t, err)
	promoted, err := f.svc.SetPrimary(ctx, vendor.ID, second.ID)
	require.NoError(t, err)
	require.True(t, promoted.IsPrimary)

	domains, err := f.svc.ListByVendor(ctx, vendor.ID)
	require.NoError(t, err)
	primaries := 0
	for _, d := range domains {
		if d.IsPrimary {
			primaries++
			require.Equal(t, second.ID, d.ID)
		}
	}
	require.Equal(t, 1, primaries)

	// A domain belonging to another vendor cannot be promoted.
	other := f.seedVendor(t, vendordomain.StatusActive)
	_, err = f.svc.SetPrimary(ctx, other.ID, second.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteDomainScopedToVendor(t *testing.T) {
	f := setupStorefrontService(t)
	vendor := f.seedVendor(t, vendordomain.StatusActive)
	other := f.seedVendor(t, vendordomain.StatusActive)
	record := f.seedDomain(t, vendor.ID, "one.example.com", domain.StatusActive)

	require.ErrorIs(t, f.svc.Delete(context.Background(), other.ID, record.ID), domain.ErrNotFound)
	require.NoError(t, f.svc.Delete(context.Background(), vendor.ID, record.ID))

	domains, err := f.svc.ListByVendor(context.Background(), vendor.ID)
	require.NoError(t, err)
	require.Empty(t, domains)
}
