package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/betlink/affiliate-engine/internal/constants"
	"github.com/betlink/affiliate-engine/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionRepository is the data-access contract for commission records.
// The (transaction, affiliate, level, model) unique index on the table is the
// authoritative idempotency guard; GetByUniqueKey is the cheap pre-check.
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	GetByUniqueKey(transactionID, affiliateID uint, level int, validationModel string) (*models.Commission, error)
	Create(commission *models.Commission) error
	List(filter CommissionListFilter) ([]models.Commission, int64, error)
	ListByTransaction(transactionID uint) ([]models.Commission, error)
	SumFinalByAffiliate(affiliateID uint, statuses []string) (decimal.Decimal, error)
	ApproveCalculatedBefore(cutoff, now time.Time) (int64, error)
	UpdateStatus(id uint, status string) error
}

// GormCommissionRepository is the gorm implementation.
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository creates the commission repository.
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction runs fn inside a database transaction.
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByUniqueKey looks up the commission identified by the idempotency tuple.
func (r *GormCommissionRepository) GetByUniqueKey(transactionID, affiliateID uint, level int, validationModel string) (*models.Commission, error) {
	if transactionID == 0 || affiliateID == 0 || level <= 0 {
		return nil, nil
	}
	var commission models.Commission
	err := r.db.Where(
		"transaction_id = ? AND affiliate_id = ? AND level = ? AND validation_model = ?",
		transactionID, affiliateID, level, strings.TrimSpace(validationModel),
	).First(&commission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// Create inserts a commission record.
func (r *GormCommissionRepository) Create(commission *models.Commission) error {
	return r.db.Create(commission).Error
}

// List pages through commissions.
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.Commission, int64, error) {
	query := r.db.Model(&models.Commission{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if filter.TransactionID != 0 {
		query = query.Where("transaction_id = ?", filter.TransactionID)
	}
	if strings.TrimSpace(filter.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Commission
	query = applyPagination(query.Order("id DESC"), filter.Page, filter.PageSize)
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListByTransaction returns every commission created for a transaction.
func (r *GormCommissionRepository) ListByTransaction(transactionID uint) ([]models.Commission, error) {
	if transactionID == 0 {
		return []models.Commission{}, nil
	}
	var rows []models.Commission
	if err := r.db.Where("transaction_id = ?", transactionID).
		Order("level ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SumFinalByAffiliate sums final amounts for the affiliate in the given
// statuses.
func (r *GormCommissionRepository) SumFinalByAffiliate(affiliateID uint, statuses []string) (decimal.Decimal, error) {
	if affiliateID == 0 || len(statuses) == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	err := r.db.Model(&models.Commission{}).
		Select("COALESCE(SUM(final_amount), 0) AS total").
		Where("affiliate_id = ? AND status IN ?", affiliateID, statuses).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// ApproveCalculatedBefore flips calculated commissions created before the
// cutoff to approved. Used by the worker sweep.
func (r *GormCommissionRepository) ApproveCalculatedBefore(cutoff, now time.Time) (int64, error) {
	result := r.db.Model(&models.Commission{}).
		Where("status = ? AND created_at <= ?", constants.CommissionStatusCalculated, cutoff).
		Updates(map[string]interface{}{
			"status":      constants.CommissionStatusApproved,
			"approved_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// UpdateStatus sets a commission's status.
func (r *GormCommissionRepository) UpdateStatus(id uint, status string) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Commission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     strings.TrimSpace(status),
			"updated_at": time.Now(),
		}).Error
}
