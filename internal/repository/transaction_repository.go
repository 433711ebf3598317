package repository

import (
	"errors"
	"time"

	"github.com/betlink/affiliate-engine/internal/constants"
	"github.com/betlink/affiliate-engine/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionRepository is the read contract the validator depends on, plus
// the idempotent upsert used to mirror inbound events.
type TransactionRepository interface {
	GetByID(id uint) (*models.Transaction, error)
	Upsert(txn *models.Transaction) error
	CountCompletedDeposits(customerID uint) (int64, error)
	CountCompletedSince(customerID uint, since time.Time) (int64, error)
	SumCompletedAmountSince(customerID uint, since time.Time) (decimal.Decimal, error)
}

// GormTransactionRepository is the gorm implementation.
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates the transaction repository.
func NewTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// GetByID fetches a transaction by id.
func (r *GormTransactionRepository) GetByID(id uint) (*models.Transaction, error) {
	if id == 0 {
		return nil, nil
	}
	var txn models.Transaction
	if err := r.db.First(&txn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// Upsert creates the read-model row if absent. Re-delivered events hit the
// primary key and are ignored; the row is never updated afterwards because
// transactions are immutable once created.
func (r *GormTransactionRepository) Upsert(txn *models.Transaction) error {
	if txn == nil || txn.ID == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(txn).Error
}

// CountCompletedDeposits counts the customer's completed deposits.
func (r *GormTransactionRepository) CountCompletedDeposits(customerID uint) (int64, error) {
	if customerID == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.Transaction{}).
		Where("customer_id = ? AND type = ? AND status = ?",
			customerID, constants.TransactionTypeDeposit, constants.TransactionStatusCompleted).
		Count(&count).Error
	return count, err
}

// CountCompletedSince counts the customer's completed transactions after the
// given instant.
func (r *GormTransactionRepository) CountCompletedSince(customerID uint, since time.Time) (int64, error) {
	if customerID == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.Transaction{}).
		Where("customer_id = ? AND status = ? AND created_at >= ?",
			customerID, constants.TransactionStatusCompleted, since).
		Count(&count).Error
	return count, err
}

// SumCompletedAmountSince sums the customer's completed transaction amounts
// after the given instant.
func (r *GormTransactionRepository) SumCompletedAmountSince(customerID uint, since time.Time) (decimal.Decimal, error) {
	if customerID == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	err := r.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("customer_id = ? AND status = ? AND created_at >= ?",
			customerID, constants.TransactionStatusCompleted, since).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
