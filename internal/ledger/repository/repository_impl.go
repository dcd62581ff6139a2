package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/ledger/domain"
	pkgdb "github.com/smallbiznis/vendora/pkg/db"
	"gorm.io/gorm"
)

type Repository interface {
	InsertTransaction(ctx context.Context, db *gorm.DB, tx *domain.Transaction) error
	FindTransaction(ctx context.Context, db *gorm.DB, vendorID, id snowflake.ID) (*domain.Transaction, error)
	FindTransactionForUpdate(ctx context.Context, db *gorm.DB, vendorID, id snowflake.ID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, db *gorm.DB, req domain.ListTransactionRequest) ([]*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, db *gorm.DB, tx *domain.Transaction) error

	// UnclaimedPayments loads completed, not-yet-claimed payment rows for
	// the vendor, oldest first, locked FOR UPDATE. Must run inside a
	// transaction.
	UnclaimedPayments(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]*domain.Transaction, error)

	// ClaimTransactions stamps payoutID on the given rows. The filter on
	// payout_id IS NULL makes concurrent claims lose instead of
	// double-claiming; the caller checks the affected count.
	ClaimTransactions(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, ids []snowflake.ID, at time.Time) (int64, error)
	UnclaimTransactions(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, at time.Time) error

	CompletedPaymentsBetween(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, from, to time.Time) ([]*domain.Transaction, error)

	InsertPayout(ctx context.Context, db *gorm.DB, payout *domain.Payout) error
	FindPayoutForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payout, error)
	ListPayouts(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]*domain.Payout, error)
	UpdatePayout(ctx context.Context, db *gorm.DB, payout *domain.Payout) error
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, tx *domain.Transaction) error {
	return db.WithContext(ctx).Create(tx).Error
}

func (r *repo) FindTransaction(ctx context.Context, db *gorm.DB, vendorID, id snowflake.ID) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := db.WithContext(ctx).
		Where("id = ? AND vendor_id = ?", id, vendorID).
		First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *repo) FindTransactionForUpdate(ctx context.Context, db *gorm.DB, vendorID, id snowflake.ID) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := pkgdb.RowLock(db.WithContext(ctx)).
		Where("id = ? AND vendor_id = ?", id, vendorID).
		First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, req domain.ListTransactionRequest) ([]*domain.Transaction, error) {
	tx := db.WithContext(ctx).Where("vendor_id = ?", req.VendorID)
	if req.Type != "" {
		tx = tx.Where("type = ?", req.Type)
	}

	var transactions []*domain.Transaction
	if err := tx.Order("created_at DESC").Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repo) UpdateTransaction(ctx context.Context, db *gorm.DB, tx *domain.Transaction) error {
	return db.WithContext(ctx).Save(tx).Error
}

func (r *repo) UnclaimedPayments(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]*domain.Transaction, error) {
	var transactions []*domain.Transaction
	err := pkgdb.RowLock(db.WithContext(ctx)).
		Where("vendor_id = ? AND type = ? AND status = ? AND payout_id IS NULL",
			vendorID, domain.TxPayment, domain.TxStatusCompleted).
		Order("created_at ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repo) ClaimTransactions(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, ids []snowflake.ID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("id IN ? AND payout_id IS NULL", ids).
		Updates(map[string]interface{}{
			"payout_id":  payoutID,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repo) UnclaimTransactions(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("payout_id = ?", payoutID).
		Updates(map[string]interface{}{
			"payout_id":  nil,
			"updated_at": at,
		}).Error
}

func (r *repo) CompletedPaymentsBetween(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, from, to time.Time) ([]*domain.Transaction, error) {
	var transactions []*domain.Transaction
	err := db.WithContext(ctx).
		Where("vendor_id = ? AND type = ? AND status IN ? AND created_at >= ? AND created_at < ?",
			vendorID, domain.TxPayment,
			[]domain.TxStatus{domain.TxStatusCompleted, domain.TxStatusRefunded},
			from, to).
		Order("created_at ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repo) InsertPayout(ctx context.Context, db *gorm.DB, payout *domain.Payout) error {
	return db.WithContext(ctx).Create(payout).Error
}

func (r *repo) FindPayoutForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payout, error) {
	var payout domain.Payout
	err := pkgdb.RowLock(db.WithContext(ctx)).
		Where("id = ?", id).
		First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repo) ListPayouts(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]*domain.Payout, error) {
	var payouts []*domain.Payout
	err := db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repo) UpdatePayout(ctx context.Context, db *gorm.DB, payout *domain.Payout) error {
	return db.WithContext(ctx).Save(payout).Error
}
