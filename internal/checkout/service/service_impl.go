package service

import (
	"context"
	"net/mail"
	"strings"

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
	"github.com/smallbiznis/vendora/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	orderrepo "github.com/smallbiznis/vendora/internal/order/repository"
	"github.com/smallbiznis/vendora/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxNumberAttempts = 5

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Policy    *config.PlatformPolicyHolder
	Carts     cartrepo.Repository
	Customers customerrepo.Repository
	Orders    orderrepo.Repository
	Ledger    ledgerrepo.Repository
	Fees      ledgerdomain.FeeResolver
	Metrics   *metrics.Metrics `optional:"true"`
}

type ServiceImpl struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	policy    *config.PlatformPolicyHolder
	carts     cartrepo.Repository
	customers customerrepo.Repository
	orders    orderrepo.Repository
	ledger    ledgerrepo.Repository
	fees      ledgerdomain.FeeResolver
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &ServiceImpl{
		db:        p.DB,
		log:       p.Log.Named("checkout.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		policy:    p.Policy,
		carts:     p.Carts,
		customers: p.Customers,
		orders:    p.Orders,
		ledger:    p.Ledger,
		fees:      p.Fees,
		metrics:   p.Metrics,
	}
}

func (s *ServiceImpl) Checkout(ctx context.Context, req domain.CheckoutRequest) (orderdomain.Order, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return orderdomain.Order{}, domain.ErrInvalidEmail
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		return orderdomain.Order{}, domain.ErrMissingPaymentMethod
	}

	var out orderdomain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.carts.FindForUpdate(ctx, tx, req.VendorID, req.OwnerKey)
		if err != nil {
			return err
		}
		if cart == nil {
			return domain.ErrEmptyCart
		}
		items, err := s.carts.LoadItems(ctx, tx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.ErrEmptyCart
		}

		customer, err := s.resolveCustomer(ctx, tx, req.VendorID, email, req.Name)
		if err != nil {
			return err
		}

		order, err := s.insertOrder(ctx, tx, req, method, cart, customer.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		orderItems := make([]orderdomain.OrderItem, 0, len(items))
		for _, item := range items {
			orderItems = append(orderItems, orderdomain.OrderItem{
				ID:        s.genID.Generate(),
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Name:      item.Name,
				Quantity:  item.Quantity,
				Price:     item.Price,
				Total:     item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2),
				CreatedAt: now,
			})
		}
		if err := s.orders.InsertItems(ctx, tx, orderItems); err != nil {
			return err
		}
		order.Items = orderItems

		if err := s.customers.BumpTotals(ctx, tx, customer.ID, order.Total, now); err != nil {
			return err
		}

		if err := s.carts.DeleteItems(ctx, tx, cart.ID); err != nil {
			return err
		}
		if err := s.carts.Delete(ctx, tx, cart.ID); err != nil {
			return err
		}

		out = *order
		return nil
	})
	if err != nil {
		return orderdomain.Order{}, err
	}

	s.metrics.RecordCheckout(ctx, method)
	s.log.Info("checkout completed",
		zap.String("vendor_id", req.VendorID.String()),
		zap.String("order_id", out.ID.String()),
		zap.String("order_number", out.OrderNumber),
		zap.String("total", out.Total.String()),
	)
	return out, nil
}

// ConfirmPayment transitions an order to paid and books the payment in the
// ledger atomically.
func (s *ServiceImpl) ConfirmPayment(ctx context.Context, vendorID, orderID snowflake.ID) (orderdomain.Order, error) {
	var out orderdomain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orders.FindByID(ctx, tx, vendorID, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return orderdomain.ErrNotFound
		}
		if order.PaymentStatus == orderdomain.PaymentPaid {
			return domain.ErrAlreadyPaid
		}

		now := s.clock.Now()
		order.PaymentStatus = orderdomain.PaymentPaid
		order.UpdatedAt = now
		if err := s.orders.Update(ctx, tx, order); err != nil {
			return err
		}

		pct, flat := s.fees.FeeScheduleFor(ctx, vendorID)
		fee, net := ledgerdomain.ComputeFee(order.Total, pct, flat)
		payment := ledgerdomain.Transaction{
			ID:             s.genID.Generate(),
			VendorID:       vendorID,
			Type:           ledgerdomain.TxPayment,
			Status:         ledgerdomain.TxStatusCompleted,
			Amount:         order.Total,
			Fee:            fee,
			Net:            net,
			RefundedAmount: decimal.Zero,
			OrderID:        &order.ID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.ledger.InsertTransaction(ctx, tx, &payment); err != nil {
			return err
		}

		out = *order
		return nil
	})
	if err != nil {
		return orderdomain.Order{}, err
	}

	s.metrics.RecordLedgerTransaction(ctx, string(ledgerdomain.TxPayment))
	return out, nil
}

func (s *ServiceImpl) resolveCustomer(ctx context.Context, tx *gorm.DB, vendorID snowflake.ID, email, name string) (*customerdomain.Customer, error) {
	customer, err := s.customers.FindByEmail(ctx, tx, vendorID, email)
	if err != nil {
		return nil, err
	}
	if customer != nil {
		return customer, nil
	}

	now := s.clock.Now()
	fresh := customerdomain.Customer{
		ID:         s.genID.Generate(),
		VendorID:   vendorID,
		Email:      email,
		Name:       strings.TrimSpace(name),
		TotalSpent: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = tx.Transaction(func(inner *gorm.DB) error {
		return s.customers.Insert(ctx, inner, &fresh)
	})
	if db.IsDuplicateKeyErr(err) {
		return s.customers.FindByEmail(ctx, tx, vendorID, email)
	}
	if err != nil {
		return nil, err
	}
	return &fresh, nil
}

// insertOrder persists the order row, regenerating the order number on a
// duplicate-key collision up to maxNumberAttempts times.
func (s *ServiceImpl) insertOrder(ctx context.Context, tx *gorm.DB, req domain.CheckoutRequest, method string, cart *cartdomain.Cart, customerID snowflake.ID) (*orderdomain.Order, error) {
	paymentStatus := orderdomain.PaymentUnpaid
	if method == domain.PaymentMethodCOD {
		paymentStatus = orderdomain.PaymentPending
	}

	policy := s.policy.Get()
	now := s.clock.Now()

	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		order := orderdomain.Order{
			ID:              s.genID.Generate(),
			VendorID:        req.VendorID,
			CustomerID:      &customerID,
			OrderNumber:     orderdomain.GenerateOrderNumber(policy.OrderNumberPrefix, now),
			Status:          orderdomain.StatusPending,
			PaymentStatus:   paymentStatus,
			PaymentMethod:   method,
			Subtotal:        cart.Subtotal,
			Tax:             cart.Tax,
			ShippingCost:    cart.ShippingCost,
			Discount:        cart.Discount,
			Total:           cart.Total,
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  req.BillingAddress,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		// Savepoint keeps a duplicate-key failure from aborting the
		// surrounding transaction on retry.
		err := tx.Transaction(func(inner *gorm.DB) error {
			return s.orders.Insert(ctx, inner, &order)
		})
		if err == nil {
			return &order, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		lastErr = err
	}

	s.log.Error("order number generation kept colliding", zap.Error(lastErr))
	return nil, domain.ErrNumberExhausted
}
