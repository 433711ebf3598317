package service

import (
	"context"

	"github.com/betlink/affiliate-engine/internal/logger"
	"github.com/betlink/affiliate-engine/internal/models"
	"github.com/betlink/affiliate-engine/internal/repository"
)

// AuditService writes the engine's trail. Every entry point swallows its
// own failures: a broken audit store must never change a financial outcome.
type AuditService struct {
	repo repository.AuditLogRepository
}

// NewAuditService creates the audit service.
func NewAuditService(repo repository.AuditLogRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log records one audit entry.
func (s *AuditService) Log(ctx context.Context, action, resourceID, severity string, detail map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	entry := &models.AuditLog{
		Action:     action,
		ResourceID: resourceID,
		Severity:   severity,
		RequestID:  requestID,
		DetailJSON: models.JSON(detail),
	}
	if err := s.repo.Create(entry); err != nil {
		logger.Warnw("audit write failed",
			"action", action,
			"resource_id", resourceID,
			"error", err)
	}
}

// List pages through audit entries.
func (s *AuditService) List(filter repository.AuditLogListFilter, page, pageSize int) ([]models.AuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuditLog{}, 0, nil
	}
	return s.repo.List(filter, page, pageSize)
}

type requestIDKey struct{}

// WithRequestID tags a context so audit entries can be correlated with the
// inbound request or task that caused them.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}
