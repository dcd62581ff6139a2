package service

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	cartdomain "github.com/smallbiznis/vendora/internal/cart/domain"
	cartrepo "github.com/smallbiznis/vendora/internal/cart/repository"
	"github.com/smallbiznis/vendora/internal/checkout/domain"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	customerdomain "github.com/smallbiznis/vendora/internal/customer/domain"
	customerrepo "github.com/smallbiznis/vendora/internal/customer/repository"
	ledgerdomain "github.com/smallbiznis/vendora/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/vendora/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/vendora/internal/ledger/service"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	orderrepo "github.com/smallbiznis/vendora/internal/order/repository"
	subscriptiondomain "github.com/smallbiznis/vendora/internal/subscription/domain"
	subscriptionrepo "github.com/smallbiznis/vendora/internal/subscription/repository"
	vendordomain "github.com/smallbiznis/vendora/internal/vendors/domain"
	vendorrepo "github.com/smallbiznis/vendora/internal/vendors/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type checkoutFixture struct {
	svc      domain.Service
	conn     *gorm.DB
	node     *snowflake.Node
	vendorID snowflake.ID
}

func setupCheckoutService(t *testing.T) checkoutFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// Two connections: ConfirmPayment holds one inside its transaction while
	// the fee resolver reads vendors/plans on a second pooled connection.
	sqlDB.SetMaxOpenConns(2)
	require.NoError(t, conn.AutoMigrate(
		&cartdomain.Cart{}, &cartdomain.CartItem{},
		&customerdomain.Customer{},
		&orderdomain.Order{}, &orderdomain.OrderItem{},
		&ledgerdomain.Transaction{},
		&vendordomain.Vendor{}, &subscriptiondomain.Plan{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder := config.NewStaticPolicyHolder(config.DefaultPlatformPolicy())
	svc := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
		Policy:    holder,
		Carts:     cartrepo.Provide(),
		Customers: customerrepo.Provide(),
		Orders:    orderrepo.Provide(),
		Ledger:    ledgerrepo.Provide(),
		Fees: ledgerservice.NewFeeResolver(ledgerservice.FeeResolverParams{
			DB:      conn,
			Log:     zap.NewNop(),
			Policy:  holder,
			Vendors: vendorrepo.Provide(),
			Plans:   subscriptionrepo.Provide(),
		}),
	})
	return checkoutFixture{svc: svc, conn: conn, node: node, vendorID: node.Generate()}
}

// seedCart inserts a cart with two lines totalling 48.48.
func (f checkoutFixture) seedCart(t *testing.T, ownerKey string) cartdomain.Cart {
	t.Helper()

	now := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	cart := cartdomain.Cart{
		ID:           f.node.Generate(),
		VendorID:     f.vendorID,
		OwnerKey:     ownerKey,
		Subtotal:     decimal.RequireFromString("48.48"),
		Tax:          decimal.Zero,
		ShippingCost: decimal.Zero,
		Discount:     decimal.Zero,
		Total:        decimal.RequireFromString("48.48"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.conn.Create(&cart).Error)

	items := []cartdomain.CartItem{
		{ID: f.node.Generate(), CartID: cart.ID, ProductID: f.node.Generate(), Name: "Tee", Price: decimal.RequireFromString("19.99"), Quantity: 2, CreatedAt: now, UpdatedAt: now},
		{ID: f.node.Generate(), CartID: cart.ID, ProductID: f.node.Generate(), Name: "Mug", Price: decimal.RequireFromString("8.50"), Quantity: 1, CreatedAt: now, UpdatedAt: now},
	}
	for i := range items {
		require.NoError(t, f.conn.Create(&items[i]).Error)
	}
	return cart
}

func TestCheckoutRejectsInvalidEmail(t *testing.T) {
	f := setupCheckoutService(t)

	_, err := f.svc.Checkout(context.Background(), domain.CheckoutRequest{
		VendorID:      f.vendorID,
		OwnerKey:      "session:abc",
		Email:         "not-an-email",
		PaymentMethod: "cod",
	})
	require.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestCheckoutRejectsMissingPaymentMethod(t *testing.T) {
	f := setupCheckoutService(t)

	_, err := f.svc.Checkout(context.Background(), domain.CheckoutRequest{
		VendorID: f.vendorID,
		OwnerKey: "session:abc",
		Email:    "shopper@example.com",
	})
	require.ErrorIs(t, err, domain.ErrMissingPaymentMethod)
}

func TestCheckoutEmptyCartHasNoSideEffects(t *testing.T) {
	f := setupCheckoutService(t)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, domain.CheckoutRequest{
		VendorID:      f.vendorID,
		OwnerKey:      "session:never",
		Email:         "shopper@example.com",
		PaymentMethod: "cod",
	})
	require.ErrorIs(t, err, domain.ErrEmptyCart)

	var orders, customers int64
	require.NoError(t, f.conn.Model(&orderdomain.Order{}).Count(&orders).Error)
	require.NoError(t, f.conn.Model(&customerdomain.Customer{}).Count(&customers).Error)
	require.Zero(t, orders)
	require.Zero(t, customers)
}

func TestCheckoutCODCreatesOrderAndConsumesCart(t *testing.T) {
	f := setupCheckoutService(t)
	ctx := context.Background()
	cart := f.seedCart(t, "session:abc")

	order, err := f.svc.Checkout(ctx, domain.CheckoutRequest{
		VendorID:      f.vendorID,
		OwnerKey:      "session:abc",
		Email:         "Shopper@Example.com",
		Name:          "Pat",
		PaymentMethod: "cod",
	})
	require.NoError(t, err)

	require.Equal(t, orderdomain.StatusPending, order.Status)
	require.Equal(t, orderdomain.PaymentPending, order.PaymentStatus)
	require.Equal(t, "cod", order.PaymentMethod)
	require.True(t, order.Total.Equal(cart.Total))
	require.Regexp(t, regexp.MustCompile(`^ORD-20250310-[0-9A-Z]{6}$`), order.OrderNumber)

	require.Len(t, order.Items, 2)
	for _, item := range order.Items {
		require.True(t, item.Total.Equal(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))))
	}

	// Customer created from the lowered email with totals bumped.
	var customer customerdomain.Customer
	require.NoError(t, f.conn.Where("vendor_id = ? AND email = ?", f.vendorID, "shopper@example.com").First(&customer).Error)
	require.Equal(t, "Pat", customer.Name)
	require.Equal(t, 1, customer.TotalOrders)
	require.True(t, customer.TotalSpent.Equal(order.Total))

	// Cart and lines are gone.
	var carts, cartItems int64
	require.NoError(t, f.conn.Model(&cartdomain.Cart{}).Where("id = ?", cart.ID).Count(&carts).Error)
	require.NoError(t, f.conn.Model(&cartdomain.CartItem{}).Where("cart_id = ?", cart.ID).Count(&cartItems).Error)
	require.Zero(t, carts)
	require.Zero(t, cartItems)
}

func TestCheckoutCardStartsUnpaid(t *testing.T) {
	f := setupCheckoutService(t)
	f.seedCart(t, "session:abc")

	order, err := f.svc.Checkout(context.Background(), domain.CheckoutRequest{
		VendorID:      f.vendorID,
		OwnerKey:      "session:abc",
		Email:         "shopper@example.com",
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	require.Equal(t, orderdomain.PaymentUnpaid, order.PaymentStatus)
}

func TestCheckoutReusesExistingCustomer(t *testing.T) {
	f := setupCheckoutService(t)
	ctx := context.Background()

	f.seedCart(t, "session:first")
	first, err := f.svc.Checkout(ctx, domain.CheckoutRequest{
		VendorID:      f.vendorID,
		OwnerKey:      "session:first",
		Email:         "repeat@example.com",
		PaymentMethod: "cod",
	})
	require.NoError(t, err)

	f.seedCart(t, "session:second")
	second, err := f.svc.Checkout(ctx, domain.CheckoutRequest{
		VendorID:      f.vendorID,
		OwnerKey:      "session:second",
		Email:         "repeat@example.com",
		PaymentMethod: "cod",
	})
	require.NoError(t, err)
	require.Equal(t, first.CustomerID, second.CustomerID)

	var customer customerdomain.Customer
	require.NoError(t, f.conn.First(&customer, "id = ?", *first.CustomerID).Error)
	require.Equal(t, 2, customer.TotalOrders)
	require.True(t, customer.TotalSpent.Equal(first.Total.Add(second.Total)))
}

func TestConfirmPaymentBooksLedgerOnce(t *testing.T) {
	f := setupCheckoutService(t)
	ctx := context.Background()
	f.seedCart(t, "session:abc")

	order, err := f.svc.Checkout(ctx, domain.CheckoutRequest{
		VendorID:      f.vendorID,
		OwnerKey:      "session:abc",
		Email:         "shopper@example.com",
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	paid, err := f.svc.ConfirmPayment(ctx, f.vendorID, order.ID)
	require.NoError(t, err)
	require.Equal(t, orderdomain.PaymentPaid, paid.PaymentStatus)

	var payment ledgerdomain.Transaction
	require.NoError(t, f.conn.Where("order_id = ?", order.ID).First(&payment).Error)
	require.Equal(t, ledgerdomain.TxPayment, payment.Type)
	require.True(t, payment.Amount.Equal(order.Total))
	// 48.48 x 0.025 + 0.30
	require.True(t, payment.Fee.Equal(decimal.RequireFromString("1.51")), "fee %s", payment.Fee)
	require.True(t, payment.Net.Equal(decimal.RequireFromString("46.97")), "net %s", payment.Net)

	_, err = f.svc.ConfirmPayment(ctx, f.vendorID, order.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyPaid)

	_, err = f.svc.ConfirmPayment(ctx, f.vendorID, f.node.Generate())
	require.ErrorIs(t, err, orderdomain.ErrNotFound)
}

func TestConfirmPaymentUsesPlanFeeOverride(t *testing.T) {
	f := setupCheckoutService(t)
	ctx := context.Background()

	override := decimal.RequireFromString("0.05")
	plan := subscriptiondomain.Plan{
		ID:            f.node.Generate(),
		Name:          "Growth",
		Price:         decimal.RequireFromString("99.00"),
		Interval:      subscriptiondomain.IntervalMonthly,
		FeePercentage: &override,
	}
	require.NoError(t, f.conn.Create(&plan).Error)
	vendor := vendordomain.Vendor{
		ID:                 f.vendorID,
		UserID:             f.node.Generate(),
		CompanyName:        "Acme Goods",
		Status:             vendordomain.StatusActive,
		SubscriptionPlanID: &plan.ID,
		SubscriptionStatus: vendordomain.SubscriptionActive,
	}
	require.NoError(t, f.conn.Create(&vendor).Error)

	f.seedCart(t, "session:abc")
	order, err := f.svc.Checkout(ctx, domain.CheckoutRequest{
		VendorID:      f.vendorID,
		OwnerKey:      "session:abc",
		Email:         "shopper@example.com",
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	_, err = f.svc.ConfirmPayment(ctx, f.vendorID, order.ID)
	require.NoError(t, err)

	var payment ledgerdomain.Transaction
	require.NoError(t, f.conn.Where("order_id = ?", order.ID).First(&payment).Error)
	// 48.48 x 0.05 + 0.30
	require.True(t, payment.Fee.Equal(decimal.RequireFromString("2.72")), "fee %s", payment.Fee)
	require.True(t, payment.Net.Equal(decimal.RequireFromString("45.76")), "net %s", payment.Net)
}
