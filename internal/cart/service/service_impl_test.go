package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vendora/internal/cart/domain"
	"github.com/smallbiznis/vendora/internal/cart/repository"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	productdomain "github.com/smallbiznis/vendora/internal/product/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stubProductService serves a fixed catalog keyed by product id.
type stubProductService struct {
	productdomain.Service

	catalog map[snowflake.ID]productdomain.Product
}

func (s *stubProductService) GetForSale(ctx context.Context, vendorID, id snowflake.ID) (productdomain.Product, error) {
	product, ok := s.catalog[id]
	if !ok || product.VendorID != vendorID || !product.Active {
		return productdomain.Product{}, productdomain.ErrNotFound
	}
	return product, nil
}

type cartFixture struct {
	svc      domain.Service
	node     *snowflake.Node
	vendorID snowflake.ID
	tee      productdomain.Product
	mug      productdomain.Product
	inactive productdomain.Product
}

func setupCartService(t *testing.T) cartFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&domain.Cart{}, &domain.CartItem{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	vendorID := node.Generate()

	tee := productdomain.Product{ID: node.Generate(), VendorID: vendorID, Name: "Tee", Price: decimal.RequireFromString("19.99"), Active: true}
	mug := productdomain.Product{ID: node.Generate(), VendorID: vendorID, Name: "Mug", Price: decimal.RequireFromString("8.50"), Active: true}
	inactive := productdomain.Product{ID: node.Generate(), VendorID: vendorID, Name: "Retired", Price: decimal.RequireFromString("5.00"), Active: false}

	products := &stubProductService{catalog: map[snowflake.ID]productdomain.Product{
		tee.ID:      tee,
		mug.ID:      mug,
		inactive.ID: inactive,
	}}

	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
		Policy:   config.NewStaticPolicyHolder(config.DefaultPlatformPolicy()),
		Repo:     repository.Provide(),
		Products: products,
	})
	return cartFixture{svc: svc, node: node, vendorID: vendorID, tee: tee, mug: mug, inactive: inactive}
}

func TestGetReturnsEmptyCartShape(t *testing.T) {
	f := setupCartService(t)

	cart, err := f.svc.Get(context.Background(), f.vendorID, "session:abc")
	require.NoError(t, err)
	require.Empty(t, cart.Items)
	require.True(t, cart.Total.IsZero())
}

func TestAddItemCreatesCartAndSnapshotsProduct(t *testing.T) {
	f := setupCartService(t)
	ctx := context.Background()

	cart, err := f.svc.AddItem(ctx, domain.AddItemRequest{
		VendorID:  f.vendorID,
		OwnerKey:  "session:abc",
		ProductID: f.tee.ID,
		Quantity:  2,
	})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, "Tee", cart.Items[0].Name)
	require.True(t, cart.Items[0].Price.Equal(f.tee.Price))
	require.Equal(t, 2, cart.Items[0].Quantity)
	require.True(t, cart.Subtotal.Equal(decimal.RequireFromString("39.98")), "subtotal %s", cart.Subtotal)
	// Default tax rate is zero, no shipping or discount yet.
	require.True(t, cart.Total.Equal(cart.Subtotal.Add(cart.Tax).Add(cart.ShippingCost).Sub(cart.Discount)))
}

func TestAddItemMergesSameProductAndVariant(t *testing.T) {
	f := setupCartService(t)
	ctx := context.Background()
	variant := datatypes.JSON(`{"size":"M"}`)

	_, err := f.svc.AddItem(ctx, domain.AddItemRequest{VendorID: f.vendorID, OwnerKey: "session:abc", ProductID: f.tee.ID, Quantity: 1, Variant: variant})
	require.NoError(t, err)
	cart, err := f.svc.AddItem(ctx, domain.AddItemRequest{VendorID: f.vendorID, OwnerKey: "session:abc", ProductID: f.tee.ID, Quantity: 2, Variant: variant})
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	require.Equal(t, 3, cart.Items[0].Quantity)

	// A different variant of the same product is its own line.
	cart, err = f.svc.AddItem(ctx, domain.AddItemRequest{VendorID: f.vendorID, OwnerKey: "session:abc", ProductID: f.tee.ID, Quantity: 1, Variant: datatypes.JSON(`{"size":"L"}`)})
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
}

func TestAddItemRejectsInactiveProduct(t *testing.T) {
	f := setupCartService(t)

	_, err := f.svc.AddItem(context.Background(), domain.AddItemRequest{
		VendorID:  f.vendorID,
		OwnerKey:  "session:abc",
		ProductID: f.inactive.ID,
		Quantity:  1,
	})
	require.ErrorIs(t, err, productdomain.ErrNotFound)
}

func TestAddItemRejectsInvalidQuantity(t *testing.T) {
	f := setupCartService(t)

	_, err := f.svc.AddItem(context.Background(), domain.AddItemRequest{
		VendorID:  f.vendorID,
		OwnerKey:  "session:abc",
		ProductID: f.tee.ID,
		Quantity:  0,
	})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestUpdateItemQuantityRecomputesTotals(t *testing.T) {
	f := setupCartService(t)
	ctx := context.Background()

	cart, err := f.svc.AddItem(ctx, domain.AddItemRequest{VendorID: f.vendorID, OwnerKey: "session:abc", ProductID: f.mug.ID, Quantity: 1})
	require.NoError(t, err)

	cart, err = f.svc.UpdateItemQuantity(ctx, f.vendorID, "session:abc", cart.Items[0].ID, 4)
	require.NoError(t, err)
	require.Equal(t, 4, cart.Items[0].Quantity)
	require.True(t, cart.Subtotal.Equal(decimal.RequireFromString("34.00")), "subtotal %s", cart.Subtotal)

	_, err = f.svc.UpdateItemQuantity(ctx, f.vendorID, "session:abc", f.node.Generate(), 1)
	require.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = f.svc.UpdateItemQuantity(ctx, f.vendorID, "session:missing", cart.Items[0].ID, 1)
	require.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestRemoveItem(t *testing.T) {
	f := setupCartService(t)
	ctx := context.Background()

	cart, err := f.svc.AddItem(ctx, domain.AddItemRequest{VendorID: f.vendorID, OwnerKey: "session:abc", ProductID: f.tee.ID, Quantity: 1})
	require.NoError(t, err)
	cart, err = f.svc.AddItem(ctx, domain.AddItemRequest{VendorID: f.vendorID, OwnerKey: "session:abc", ProductID: f.mug.ID, Quantity: 1})
	require.NoError(t, err)

	var teeItemID snowflake.ID
	for _, item := range cart.Items {
		if item.ProductID == f.tee.ID {
			teeItemID = item.ID
		}
	}

	cart, err = f.svc.RemoveItem(ctx, f.vendorID, "session:abc", teeItemID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, f.mug.ID, cart.Items[0].ProductID)
	require.True(t, cart.Subtotal.Equal(f.mug.Price))

	_, err = f.svc.RemoveItem(ctx, f.vendorID, "session:abc", teeItemID)
	require.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestClearIsIdempotent(t *testing.T) {
	f := setupCartService(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Clear(ctx, f.vendorID, "session:never-existed"))

	_, err := f.svc.AddItem(ctx, domain.AddItemRequest{VendorID: f.vendorID, OwnerKey: "session:abc", ProductID: f.tee.ID, Quantity: 3})
	require.NoError(t, err)
	require.NoError(t, f.svc.Clear(ctx, f.vendorID, "session:abc"))

	cart, err := f.svc.Get(ctx, f.vendorID, "session:abc")
	require.NoError(t, err)
	require.Empty(t, cart.Items)
	require.True(t, cart.Total.IsZero(), "total %s", cart.Total)
}

func TestMergeFoldsSessionCartIntoUserCart(t *testing.T) {
	f := setupCartService(t)
	ctx := context.Background()
	sessionKey := domain.OwnerKeyForSession("anon-1")
	userKey := domain.OwnerKeyForUser(f.node.Generate())

	_, err := f.svc.AddItem(ctx, domain.AddItemRequest{VendorID: f.vendorID, OwnerKey: sessionKey, ProductID: f.tee.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, domain.AddItemRequest{VendorID: f.vendorID, OwnerKey: sessionKey, ProductID: f.mug.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, domain.AddItemRequest{VendorID: f.vendorID, OwnerKey: userKey, ProductID: f.tee.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, f.svc.Merge(ctx, f.vendorID, sessionKey, userKey))

	merged, err := f.svc.Get(ctx, f.vendorID, userKey)
	require.NoError(t, err)
	require.Len(t, merged.Items, 2)
	for _, item := range merged.Items {
		switch item.ProductID {
		case f.tee.ID:
			require.Equal(t, 3, item.Quantity)
		case f.mug.ID:
			require.Equal(t, 1, item.Quantity)
		default:
			t.Fatalf("unexpected product %s", item.ProductID)
		}
	}
	// 3x19.99 + 1x8.50
	require.True(t, merged.Subtotal.Equal(decimal.RequireFromString("68.47")), "subtotal %s", merged.Subtotal)

	// The session cart is gone, not just emptied.
	leftover, err := f.svc.Get(ctx, f.vendorID, sessionKey)
	require.NoError(t, err)
	require.Empty(t, leftover.Items)
	require.Equal(t, snowflake.ID(0), leftover.ID)
}

func TestMergeWithoutSessionCartIsNoop(t *testing.T) {
	f := setupCartService(t)
	ctx := context.Background()
	userKey := domain.OwnerKeyForUser(f.node.Generate())

	_, err := f.svc.AddItem(ctx, domain.AddItemRequest{VendorID: f.vendorID, OwnerKey: userKey, ProductID: f.tee.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, f.svc.Merge(ctx, f.vendorID, domain.OwnerKeyForSession("ghost"), userKey))

	cart, err := f.svc.Get(ctx, f.vendorID, userKey)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, 1, cart.Items[0].Quantity)
}
