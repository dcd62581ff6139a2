package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/ledger/domain"
	"github.com/smallbiznis/vendora/internal/ledger/repository"
	subscriptiondomain "github.com/smallbiznis/vendora/internal/subscription/domain"
	subscriptionrepo "github.com/smallbiznis/vendora/internal/subscription/repository"
	vendordomain "github.com/smallbiznis/vendora/internal/vendors/domain"
	vendorrepo "github.com/smallbiznis/vendora/internal/vendors/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLedgerDB(t *testing.T) (*gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(
		&domain.Transaction{}, &domain.Payout{},
		&vendordomain.Vendor{}, &subscriptiondomain.Plan{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	return conn, node, fake
}

func newLedgerService(conn *gorm.DB, node *snowflake.Node, fake *clock.FakeClock, repo repository.Repository) domain.Service {
	holder := config.NewStaticPolicyHolder(config.DefaultPlatformPolicy())
	return New(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fake,
		Policy: holder,
		Repo:   repo,
		Fees: NewFeeResolver(FeeResolverParams{
			DB:      conn,
			Log:     zap.NewNop(),
			Policy:  holder,
			Vendors: vendorrepo.Provide(),
			Plans:   subscriptionrepo.Provide(),
		}),
	})
}

func setupLedgerService(t *testing.T) (domain.Service, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	conn, node, fake := setupLedgerDB(t)
	return newLedgerService(conn, node, fake, repository.Provide()), node, fake
}

func TestRecordPaymentAppliesFee(t *testing.T) {
	svc, node, _ := setupLedgerService(t)
	ctx := context.Background()
	vendorID := node.Generate()

	tx, err := svc.RecordPayment(ctx, vendorID, node.Generate(), decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	require.Equal(t, domain.TxPayment, tx.Type)
	require.Equal(t, domain.TxStatusCompleted, tx.Status)
	require.True(t, tx.Fee.Equal(decimal.RequireFromString("2.80")), "fee %s", tx.Fee)
	require.True(t, tx.Net.Equal(decimal.RequireFromString("97.20")), "net %s", tx.Net)
}

func TestRecordPaymentUsesPlanFeeOverride(t *testing.T) {
	conn, node, fake := setupLedgerDB(t)
	svc := newLedgerService(conn, node, fake, repository.Provide())
	ctx := context.Background()

	override := decimal.RequireFromString("0.015")
	plan := subscriptiondomain.Plan{
		ID:            node.Generate(),
		Name:          "Growth",
		Price:         decimal.RequireFromString("99.00"),
		Interval:      subscriptiondomain.IntervalMonthly,
		FeePercentage: &override,
	}
	require.NoError(t, conn.Create(&plan).Error)

	vendor := vendordomain.Vendor{
		ID:                 node.Generate(),
		UserID:             node.Generate(),
		CompanyName:        "Acme Goods",
		Status:             vendordomain.StatusActive,
		SubscriptionPlanID: &plan.ID,
		SubscriptionStatus: vendordomain.SubscriptionActive,
	}
	require.NoError(t, conn.Create(&vendor).Error)

	// 100.00 x 0.015 + 0.30; the flat fee stays at the platform rate.
	tx, err := svc.RecordPayment(ctx, vendor.ID, node.Generate(), decimal.RequireFromString("100.00"))
	require.NoError(t, err)
	require.True(t, tx.Fee.Equal(decimal.RequireFromString("1.80")), "fee %s", tx.Fee)
	require.True(t, tx.Net.Equal(decimal.RequireFromString("98.20")), "net %s", tx.Net)

	// A vendor without a plan stays on the platform schedule.
	plain := vendordomain.Vendor{
		ID:                 node.Generate(),
		UserID:             node.Generate(),
		CompanyName:        "Plain Wares",
		Status:             vendordomain.StatusActive,
		SubscriptionStatus: vendordomain.SubscriptionTrial,
	}
	require.NoError(t, conn.Create(&plain).Error)

	tx, err = svc.RecordPayment(ctx, plain.ID, node.Generate(), decimal.RequireFromString("100.00"))
	require.NoError(t, err)
	require.True(t, tx.Fee.Equal(decimal.RequireFromString("2.80")), "fee %s", tx.Fee)
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	svc, node, _ := setupLedgerService(t)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, node.Generate(), node.Generate(), decimal.Zero)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.RecordPayment(ctx, node.Generate(), node.Generate(), decimal.RequireFromString("-5"))
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestRefundTracksRemainingAmount(t *testing.T) {
	svc, node, _ := setupLedgerService(t)
	ctx := context.Background()
	vendorID := node.Generate()

	payment, err := svc.RecordPayment(ctx, vendorID, node.Generate(), decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	refund, err := svc.Refund(ctx, vendorID, payment.ID, decimal.RequireFromString("30.00"))
	require.NoError(t, err)
	require.Equal(t, domain.TxRefund, refund.Type)
	require.True(t, refund.Net.Equal(decimal.RequireFromString("-30.00")), "net %s", refund.Net)

	// 30 of 100 is refunded; another 80 would exceed the original.
	_, err = svc.Refund(ctx, vendorID, payment.ID, decimal.RequireFromString("80.00"))
	require.ErrorIs(t, err, domain.ErrOverRefund)

	_, err = svc.Refund(ctx, vendorID, payment.ID, decimal.RequireFromString("70.00"))
	require.NoError(t, err)

	list, err := svc.ListTransactions(ctx, domain.ListTransactionRequest{VendorID: vendorID, Type: domain.TxPayment})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, domain.TxStatusRefunded, list[0].Status)
	require.True(t, list[0].RefundedAmount.Equal(decimal.RequireFromString("100.00")))
}

func TestRefundUnknownTransaction(t *testing.T) {
	svc, node, _ := setupLedgerService(t)
	ctx := context.Background()

	_, err := svc.Refund(ctx, node.Generate(), node.Generate(), decimal.RequireFromString("5.00"))
	require.ErrorIs(t, err, domain.ErrTransactionMissing)
}

func TestAvailableBalanceSubtractsRefunds(t *testing.T) {
	svc, node, _ := setupLedgerService(t)
	ctx := context.Background()
	vendorID := node.Generate()

	first, err := svc.RecordPayment(ctx, vendorID, node.Generate(), decimal.RequireFromString("100.00"))
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, vendorID, node.Generate(), decimal.RequireFromString("50.00"))
	require.NoError(t, err)

	_, err = svc.Refund(ctx, vendorID, first.ID, decimal.RequireFromString("20.00"))
	require.NoError(t, err)

	// net(100) - 20 + net(50) = 97.20 - 20 + 48.45
	balance, err := svc.AvailableBalance(ctx, vendorID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("125.65")), "balance %s", balance)
}

func TestRequestPayoutClaimsOldestFirst(t *testing.T) {
	svc, node, fake := setupLedgerService(t)
	ctx := context.Background()
	vendorID := node.Generate()

	_, err := svc.RecordPayment(ctx, vendorID, node.Generate(), decimal.RequireFromString("100.00"))
	require.NoError(t, err)
	fake.Advance(time.Hour)
	_, err = svc.RecordPayment(ctx, vendorID, node.Generate(), decimal.RequireFromString("50.00"))
	require.NoError(t, err)

	payout, err := svc.RequestPayout(ctx, vendorID, decimal.RequireFromString("90.00"))
	require.NoError(t, err)
	require.Equal(t, domain.PayoutPending, payout.Status)

	// The 100.00 payment alone covers 90.00, so only it gets claimed.
	balance, err := svc.AvailableBalance(ctx, vendorID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("48.45")), "balance %s", balance)
}

func TestRequestPayoutGating(t *testing.T) {
	svc, node, _ := setupLedgerService(t)
	ctx := context.Background()
	vendorID := node.Generate()

	_, err := svc.RecordPayment(ctx, vendorID, node.Generate(), decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	// Below the minimum payout threshold.
	_, err = svc.RequestPayout(ctx, vendorID, decimal.RequireFromString("10.00"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Above the available balance.
	_, err = svc.RequestPayout(ctx, vendorID, decimal.RequireFromString("200.00"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = svc.RequestPayout(ctx, vendorID, decimal.Zero)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

// racingClaimRepo stamps a claim on the first row between the locked read
// and the claim update, the way a concurrent payout request would.
type racingClaimRepo struct {
	repository.Repository
	rivalPayoutID snowflake.ID
}

func (r *racingClaimRepo) UnclaimedPayments(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]*domain.Transaction, error) {
	rows, err := r.Repository.UnclaimedPayments(ctx, db, vendorID)
	if err != nil || len(rows) == 0 {
		return rows, err
	}
	err = db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("id = ?", rows[0].ID).
		Update("payout_id", r.rivalPayoutID).Error
	return rows, err
}

func TestRequestPayoutConflictRollsBack(t *testing.T) {
	conn, node, fake := setupLedgerDB(t)
	svc := newLedgerService(conn, node, fake, repository.Provide())
	ctx := context.Background()
	vendorID := node.Generate()

	_, err := svc.RecordPayment(ctx, vendorID, node.Generate(), decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	racing := newLedgerService(conn, node, fake, &racingClaimRepo{
		Repository:    repository.Provide(),
		rivalPayoutID: node.Generate(),
	})
	_, err = racing.RequestPayout(ctx, vendorID, decimal.RequireFromString("90.00"))
	require.ErrorIs(t, err, domain.ErrPayoutConflict)

	// The whole request rolled back: no payout row, nothing claimed.
	var payouts int64
	require.NoError(t, conn.Model(&domain.Payout{}).Count(&payouts).Error)
	require.Zero(t, payouts)

	balance, err := svc.AvailableBalance(ctx, vendorID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("97.20")), "balance %s", balance)
}

func TestCompletePayoutFailureRestoresBalance(t *testing.T) {
	svc, node, _ := setupLedgerService(t)
	ctx := context.Background()
	vendorID := node.Generate()

	_, err := svc.RecordPayment(ctx, vendorID, node.Generate(), decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	payout, err := svc.RequestPayout(ctx, vendorID, decimal.RequireFromString("90.00"))
	require.NoError(t, err)

	drained, err := svc.AvailableBalance(ctx, vendorID)
	require.NoError(t, err)
	require.True(t, drained.IsZero(), "balance %s", drained)

	failed, err := svc.CompletePayout(ctx, payout.ID, false)
	require.NoError(t, err)
	require.Equal(t, domain.PayoutFailed, failed.Status)

	restored, err := svc.AvailableBalance(ctx, vendorID)
	require.NoError(t, err)
	require.True(t, restored.Equal(decimal.RequireFromString("97.20")), "balance %s", restored)

	// Terminal payouts cannot be settled twice.
	_, err = svc.CompletePayout(ctx, payout.ID, true)
	require.ErrorIs(t, err, domain.ErrPayoutNotPending)
}

func TestCompletePayoutSuccessKeepsClaims(t *testing.T) {
	svc, node, _ := setupLedgerService(t)
	ctx := context.Background()
	vendorID := node.Generate()

	_, err := svc.RecordPayment(ctx, vendorID, node.Generate(), decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	payout, err := svc.RequestPayout(ctx, vendorID, decimal.RequireFromString("90.00"))
	require.NoError(t, err)

	completed, err := svc.CompletePayout(ctx, payout.ID, true)
	require.NoError(t, err)
	require.Equal(t, domain.PayoutCompleted, completed.Status)

	balance, err := svc.AvailableBalance(ctx, vendorID)
	require.NoError(t, err)
	require.True(t, balance.IsZero(), "balance %s", balance)
}

func TestAnalyticsBucketsByDay(t *testing.T) {
	svc, node, fake := setupLedgerService(t)
	ctx := context.Background()
	vendorID := node.Generate()
	start := fake.Now()

	first, err := svc.RecordPayment(ctx, vendorID, node.Generate(), decimal.RequireFromString("100.00"))
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, vendorID, node.Generate(), decimal.RequireFromString("40.00"))
	require.NoError(t, err)

	fake.Advance(24 * time.Hour)
	_, err = svc.RecordPayment(ctx, vendorID, node.Generate(), decimal.RequireFromString("60.00"))
	require.NoError(t, err)

	// A refund reduces that day's revenue, not the refund day's.
	_, err = svc.Refund(ctx, vendorID, first.ID, decimal.RequireFromString("25.00"))
	require.NoError(t, err)

	series, err := svc.Analytics(ctx, domain.AnalyticsRequest{
		VendorID:    vendorID,
		Granularity: domain.GranularityDay,
		From:        start.Add(-time.Hour),
		To:          start.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, series, 2)

	require.Equal(t, "2025-03-10", series[0].Period)
	require.Equal(t, 2, series[0].Orders)
	require.True(t, series[0].Revenue.Equal(decimal.RequireFromString("115.00")), "revenue %s", series[0].Revenue)

	require.Equal(t, "2025-03-11", series[1].Period)
	require.Equal(t, 1, series[1].Orders)
	require.True(t, series[1].Revenue.Equal(decimal.RequireFromString("60.00")), "revenue %s", series[1].Revenue)
}

func TestAnalyticsRejectsUnknownGranularity(t *testing.T) {
	svc, node, _ := setupLedgerService(t)

	_, err := svc.Analytics(context.Background(), domain.AnalyticsRequest{
		VendorID:    node.Generate(),
		Granularity: "hour",
	})
	require.ErrorIs(t, err, domain.ErrInvalidGranularity)
}
