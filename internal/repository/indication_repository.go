package repository

import (
	"errors"
	"strings"

	"github.com/betlink/affiliate-engine/internal/constants"
	"github.com/betlink/affiliate-engine/internal/models"

	"gorm.io/gorm"
)

// IndicationRepository is the data-access contract for indications. The
// unique (source, customer) index backs the bonus-duplication guard.
type IndicationRepository interface {
	WithTx(tx *gorm.DB) IndicationRepository

	GetActiveByPair(sourceAffiliateID, customerID uint) (*models.Indication, error)
	Create(indication *models.Indication) error
	List(filter IndicationListFilter) ([]models.Indication, int64, error)
	CountBySource(sourceAffiliateID uint) (int64, error)
}

// GormIndicationRepository is the gorm implementation.
type GormIndicationRepository struct {
	db *gorm.DB
}

// NewIndicationRepository creates the indication repository.
func NewIndicationRepository(db *gorm.DB) *GormIndicationRepository {
	return &GormIndicationRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *GormIndicationRepository) WithTx(tx *gorm.DB) IndicationRepository {
	if tx == nil {
		return r
	}
	return &GormIndicationRepository{db: tx}
}

// GetActiveByPair returns the validated-or-paid indication for the pair, if
// one exists.
func (r *GormIndicationRepository) GetActiveByPair(sourceAffiliateID, customerID uint) (*models.Indication, error) {
	if sourceAffiliateID == 0 || customerID == 0 {
		return nil, nil
	}
	var indication models.Indication
	err := r.db.Where(
		"source_affiliate_id = ? AND customer_id = ? AND status IN ?",
		sourceAffiliateID, customerID,
		[]string{constants.IndicationStatusValidated, constants.IndicationStatusPaid},
	).First(&indication).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &indication, nil
}

// Create inserts an indication.
func (r *GormIndicationRepository) Create(indication *models.Indication) error {
	return r.db.Create(indication).Error
}

// List pages through indications.
func (r *GormIndicationRepository) List(filter IndicationListFilter) ([]models.Indication, int64, error) {
	query := r.db.Model(&models.Indication{})
	if filter.SourceAffiliateID != 0 {
		query = query.Where("source_affiliate_id = ?", filter.SourceAffiliateID)
	}
	if strings.TrimSpace(filter.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Indication
	query = applyPagination(query.Order("id DESC"), filter.Page, filter.PageSize)
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountBySource counts non-rejected indications for an affiliate.
func (r *GormIndicationRepository) CountBySource(sourceAffiliateID uint) (int64, error) {
	if sourceAffiliateID == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.Indication{}).
		Where("source_affiliate_id = ? AND status <> ?", sourceAffiliateID, constants.IndicationStatusRejected).
		Count(&count).Error
	return count, err
}
