package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/ledger/domain"
	"github.com/smallbiznis/vendora/internal/ledger/repository"
	"github.com/smallbiznis/vendora/internal/observability/metrics"
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
	Policy  *config.PlatformPolicyHolder
	Repo    repository.Repository
	Fees    domain.FeeResolver
	Metrics *metrics.Metrics `optional:"true"`
}

type ServiceImpl struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	policy  *config.PlatformPolicyHolder
	repo    repository.Repository
	fees    domain.FeeResolver
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &ServiceImpl{
		db:      p.DB,
		log:     p.Log.Named("ledger.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		policy:  p.Policy,
		repo:    p.Repo,
		fees:    p.Fees,
		metrics: p.Metrics,
	}
}

// RecordPayment books a completed payment transaction for an order, with
// the fee applied per the vendor's schedule.
func (s *ServiceImpl) RecordPayment(ctx context.Context, vendorID, orderID snowflake.ID, amount decimal.Decimal) (domain.Transaction, error) {
	if !amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	pct, flat := s.fees.FeeScheduleFor(ctx, vendorID)
	fee, net := domain.ComputeFee(amount, pct, flat)

	now := s.clock.Now()
	tx := domain.Transaction{
		ID:             s.genID.Generate(),
		VendorID:       vendorID,
		Type:           domain.TxPayment,
		Status:         domain.TxStatusCompleted,
		Amount:         amount.Round(2),
		Fee:            fee,
		Net:            net,
		RefundedAmount: decimal.Zero,
		OrderID:        &orderID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertTransaction(ctx, s.db, &tx); err != nil {
		return domain.Transaction{}, err
	}

	s.metrics.RecordLedgerTransaction(ctx, string(domain.TxPayment))
	s.log.Info("payment recorded",
		zap.String("vendor_id", vendorID.String()),
		zap.String("order_id", orderID.String()),
		zap.String("amount", tx.Amount.String()),
		zap.String("fee", tx.Fee.String()),
	)
	return tx, nil
}

// RecordSubscriptionCharge books a platform subscription fee against the
// vendor. The full amount is platform revenue, so fee equals amount.
func (s *ServiceImpl) RecordSubscriptionCharge(ctx context.Context, vendorID snowflake.ID, amount decimal.Decimal, description string) (domain.Transaction, error) {
	if !amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	tx := domain.Transaction{
		ID:             s.genID.Generate(),
		VendorID:       vendorID,
		Type:           domain.TxSubscription,
		Status:         domain.TxStatusCompleted,
		Amount:         amount.Round(2),
		Fee:            amount.Round(2),
		Net:            decimal.Zero,
		RefundedAmount: decimal.Zero,
		Description:    description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertTransaction(ctx, s.db, &tx); err != nil {
		return domain.Transaction{}, err
	}

	s.metrics.RecordLedgerTransaction(ctx, string(domain.TxSubscription))
	return tx, nil
}

// Refund books a partial or full refund against a payment transaction.
// The cumulative refunded amount can never exceed the original amount.
func (s *ServiceImpl) Refund(ctx context.Context, vendorID, transactionID snowflake.ID, amount decimal.Decimal) (domain.Transaction, error) {
	if !amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	var out domain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		original, err := s.repo.FindTransactionForUpdate(ctx, dbtx, vendorID, transactionID)
		if err != nil {
			return err
		}
		if original == nil || original.Type != domain.TxPayment {
			return domain.ErrTransactionMissing
		}
		if original.RefundedAmount.Add(amount).GreaterThan(original.Amount) {
			return domain.ErrOverRefund
		}

		now := s.clock.Now()
		original.RefundedAmount = original.RefundedAmount.Add(amount).Round(2)
		if original.RefundedAmount.Equal(original.Amount) {
			original.Status = domain.TxStatusRefunded
		}
		original.UpdatedAt = now
		if err := s.repo.UpdateTransaction(ctx, dbtx, original); err != nil {
			return err
		}

		refund := domain.Transaction{
			ID:             s.genID.Generate(),
			VendorID:       vendorID,
			Type:           domain.TxRefund,
			Status:         domain.TxStatusCompleted,
			Amount:         amount.Round(2),
			Fee:            decimal.Zero,
			Net:            amount.Round(2).Neg(),
			RefundedAmount: decimal.Zero,
			OrderID:        original.OrderID,
			Description:    fmt.Sprintf("refund of %s", original.ID.String()),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.InsertTransaction(ctx, dbtx, &refund); err != nil {
			return err
		}
		out = refund
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.metrics.RecordLedgerTransaction(ctx, string(domain.TxRefund))
	return out, nil
}

func (s *ServiceImpl) ListTransactions(ctx context.Context, req domain.ListTransactionRequest) ([]domain.Transaction, error) {
	transactions, err := s.repo.ListTransactions(ctx, s.db, req)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		out = append(out, *tx)
	}
	return out, nil
}

// AvailableBalance sums the net of completed, unclaimed payment rows less
// their refunded portions.
func (s *ServiceImpl) AvailableBalance(ctx context.Context, vendorID snowflake.ID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		candidates, err := s.repo.UnclaimedPayments(ctx, dbtx, vendorID)
		if err != nil {
			return err
		}
		balance = sumAvailable(candidates)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// RequestPayout creates a pending payout and claims the backing payment
// transactions in one database transaction. The claim update filters on
// payout_id IS NULL, so a concurrent request for the same rows loses and
// the whole payout rolls back.
func (s *ServiceImpl) RequestPayout(ctx context.Context, vendorID snowflake.ID, amount decimal.Decimal) (domain.Payout, error) {
	if !amount.IsPositive() {
		return domain.Payout{}, domain.ErrInvalidAmount
	}

	var out domain.Payout
	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		candidates, err := s.repo.UnclaimedPayments(ctx, dbtx, vendorID)
		if err != nil {
			return err
		}

		policy := s.policy.Get()
		available := sumAvailable(candidates)
		if amount.LessThan(policy.MinimumPayout) || amount.GreaterThan(available) {
			return fmt.Errorf("%w: available %s, requested %s",
				domain.ErrInsufficientFunds, available.String(), amount.String())
		}

		// Claim oldest rows first until they cover the requested amount.
		covered := decimal.Zero
		var ids []snowflake.ID
		for _, tx := range candidates {
			ids = append(ids, tx.ID)
			covered = covered.Add(tx.Net.Sub(tx.RefundedAmount))
			if covered.GreaterThanOrEqual(amount) {
				break
			}
		}

		now := s.clock.Now()
		payout := domain.Payout{
			ID:        s.genID.Generate(),
			VendorID:  vendorID,
			Amount:    amount.Round(2),
			Status:    domain.PayoutPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.InsertPayout(ctx, dbtx, &payout); err != nil {
			return err
		}

		claimed, err := s.repo.ClaimTransactions(ctx, dbtx, payout.ID, ids, now)
		if err != nil {
			return err
		}
		if claimed != int64(len(ids)) {
			return domain.ErrPayoutConflict
		}
		out = payout
		return nil
	})
	if err != nil {
		return domain.Payout{}, err
	}

	s.metrics.RecordPayout(ctx, string(domain.PayoutPending))
	s.log.Info("payout requested",
		zap.String("vendor_id", vendorID.String()),
		zap.String("payout_id", out.ID.String()),
		zap.String("amount", out.Amount.String()),
	)
	return out, nil
}

// CompletePayout finalizes a payout. Failure releases the claimed
// transactions back into the available balance.
func (s *ServiceImpl) CompletePayout(ctx context.Context, payoutID snowflake.ID, success bool) (domain.Payout, error) {
	var out domain.Payout
	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		payout, err := s.repo.FindPayoutForUpdate(ctx, dbtx, payoutID)
		if err != nil {
			return err
		}
		if payout == nil {
			return domain.ErrPayoutMissing
		}
		if payout.Status != domain.PayoutPending && payout.Status != domain.PayoutProcessing {
			return domain.ErrPayoutNotPending
		}

		now := s.clock.Now()
		if success {
			payout.Status = domain.PayoutCompleted
		} else {
			payout.Status = domain.PayoutFailed
			if err := s.repo.UnclaimTransactions(ctx, dbtx, payout.ID, now); err != nil {
				return err
			}
		}
		payout.UpdatedAt = now
		if err := s.repo.UpdatePayout(ctx, dbtx, payout); err != nil {
			return err
		}
		out = *payout
		return nil
	})
	if err != nil {
		return domain.Payout{}, err
	}

	s.metrics.RecordPayout(ctx, string(out.Status))
	return out, nil
}

func (s *ServiceImpl) ListPayouts(ctx context.Context, vendorID snowflake.ID) ([]domain.Payout, error) {
	payouts, err := s.repo.ListPayouts(ctx, s.db, vendorID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Payout, 0, len(payouts))
	for _, p := range payouts {
		out = append(out, *p)
	}
	return out, nil
}

// Analytics projects completed payments into a revenue and order-count
// series. Empty input yields an empty series.
func (s *ServiceImpl) Analytics(ctx context.Context, req domain.AnalyticsRequest) ([]domain.SeriesPoint, error) {
	switch req.Granularity {
	case domain.GranularityDay, domain.GranularityWeek, domain.GranularityMonth:
	default:
		return nil, domain.ErrInvalidGranularity
	}

	transactions, err := s.repo.CompletedPaymentsBetween(ctx, s.db, req.VendorID, req.From, req.To)
	if err != nil {
		return nil, err
	}
	return bucketSeries(transactions, req.Granularity), nil
}

func bucketSeries(transactions []*domain.Transaction, granularity domain.Granularity) []domain.SeriesPoint {
	buckets := make(map[string]*domain.SeriesPoint)
	for _, tx := range transactions {
		period := periodKey(tx, granularity)
		point, ok := buckets[period]
		if !ok {
			point = &domain.SeriesPoint{Period: period, Revenue: decimal.Zero}
			buckets[period] = point
		}
		point.Revenue = point.Revenue.Add(tx.Amount.Sub(tx.RefundedAmount))
		point.Orders++
	}

	out := make([]domain.SeriesPoint, 0, len(buckets))
	for _, point := range buckets {
		out = append(out, *point)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

func periodKey(tx *domain.Transaction, granularity domain.Granularity) string {
	t := tx.CreatedAt.UTC()
	switch granularity {
	case domain.GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case domain.GranularityMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

func sumAvailable(transactions []*domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range transactions {
		total = total.Add(tx.Net.Sub(tx.RefundedAmount))
	}
	return total
}
