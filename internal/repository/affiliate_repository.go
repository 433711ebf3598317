package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/betlink/affiliate-engine/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AffiliateRepository is the data-access contract for affiliates. Balance and
// counter mutations are expressed as atomic increments so two concurrent
// commission credits to the same affiliate are both reflected.
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	GetByID(id uint) (*models.Affiliate, error)
	GetByReferralCode(code string) (*models.Affiliate, error)
	Create(affiliate *models.Affiliate) error
	List(filter AffiliateListFilter) ([]models.Affiliate, int64, error)

	IncrementEarnings(id uint, amount decimal.Decimal) error
	IncrementBalance(id uint, amount decimal.Decimal) error
	IncrementIndications(id uint, direct, total int64) error
	AddMonthVolume(id uint, amount decimal.Decimal) error
	TouchActivity(id uint, at time.Time) error
	UpdateCategoryLevel(id uint, category string, level int) error
}

// GormAffiliateRepository is the gorm implementation.
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository creates the affiliate repository.
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction runs fn inside a database transaction.
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID fetches an affiliate by id.
func (r *GormAffiliateRepository) GetByID(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.First(&affiliate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByReferralCode fetches an affiliate by its referral code.
func (r *GormAffiliateRepository) GetByReferralCode(code string) (*models.Affiliate, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("referral_code = ?", normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// Create inserts a new affiliate.
func (r *GormAffiliateRepository) Create(affiliate *models.Affiliate) error {
	return r.db.Create(affiliate).Error
}

// List pages through affiliates.
func (r *GormAffiliateRepository) List(filter AffiliateListFilter) ([]models.Affiliate, int64, error) {
	query := r.db.Model(&models.Affiliate{})
	if strings.TrimSpace(filter.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(filter.Category))
	}
	if strings.TrimSpace(filter.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Affiliate
	query = applyPagination(query.Order("id ASC"), filter.Page, filter.PageSize)
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// IncrementEarnings atomically adds a credited commission to both the
// available balance and the lifetime commission total.
func (r *GormAffiliateRepository) IncrementEarnings(id uint, amount decimal.Decimal) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"available_balance": gorm.Expr("available_balance + ?", amount),
			"total_commissions": gorm.Expr("total_commissions + ?", amount),
			"updated_at":        time.Now(),
		}).Error
}

// IncrementBalance atomically adds to the available balance only.
func (r *GormAffiliateRepository) IncrementBalance(id uint, amount decimal.Decimal) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"available_balance": gorm.Expr("available_balance + ?", amount),
			"updated_at":        time.Now(),
		}).Error
}

// IncrementIndications atomically bumps the indication counters.
func (r *GormAffiliateRepository) IncrementIndications(id uint, direct, total int64) error {
	if id == 0 || (direct == 0 && total == 0) {
		return nil
	}
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if direct != 0 {
		updates["direct_indications"] = gorm.Expr("direct_indications + ?", direct)
	}
	if total != 0 {
		updates["total_indications"] = gorm.Expr("total_indications + ?", total)
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// AddMonthVolume atomically adds the transaction amount to the current
// month accumulator.
func (r *GormAffiliateRepository) AddMonthVolume(id uint, amount decimal.Decimal) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_month_volume": gorm.Expr("current_month_volume + ?", amount),
			"updated_at":           time.Now(),
		}).Error
}

// TouchActivity stamps the last activity time.
func (r *GormAffiliateRepository) TouchActivity(id uint, at time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_activity_at": at,
			"updated_at":       time.Now(),
		}).Error
}

// UpdateCategoryLevel assigns the affiliate's category and level. This is
// the single whole-field mutation point in the engine (promotions).
func (r *GormAffiliateRepository) UpdateCategoryLevel(id uint, category string, level int) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"category":       strings.TrimSpace(category),
			"category_level": level,
			"updated_at":     time.Now(),
		}).Error
}
