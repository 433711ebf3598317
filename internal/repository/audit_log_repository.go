package repository

import (
	"github.com/betlink/affiliate-engine/internal/models"

	"gorm.io/gorm"
)

// AuditLogRepository persists engine audit entries.
type AuditLogRepository interface {
	Create(entry *models.AuditLog) error
	List(filter AuditLogListFilter, page, pageSize int) ([]models.AuditLog, int64, error)
}

// GormAuditLogRepository is the gorm implementation.
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates the audit log repository.
func NewAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Create appends one audit entry.
func (r *GormAuditLogRepository) Create(entry *models.AuditLog) error {
	return r.db.Create(entry).Error
}

// List queries entries with pagination, most recent first.
func (r *GormAuditLogRepository) List(filter AuditLogListFilter, page, pageSize int) ([]models.AuditLog, int64, error) {
	query := r.db.Model(&models.AuditLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.ResourceID != "" {
		query = query.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.RequestID != "" {
		query = query.Where("request_id = ?", filter.RequestID)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.AuditLog
	query = applyPagination(query, page, pageSize)
	if err := query.Order("id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
