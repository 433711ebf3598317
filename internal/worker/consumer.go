package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/betlink/affiliate-engine/internal/constants"
	"github.com/betlink/affiliate-engine/internal/logger"
	"github.com/betlink/affiliate-engine/internal/models"
	"github.com/betlink/affiliate-engine/internal/provider"
	"github.com/betlink/affiliate-engine/internal/queue"
	"github.com/betlink/affiliate-engine/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer handles queued engine tasks.
type Consumer struct {
	*provider.Container
}

// NewConsumer creates the consumer.
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register attaches the handlers.
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskTransactionValidated, c.handleTransactionValidated)
	mux.HandleFunc(queue.TaskDomainEvent, c.handleDomainEvent)
}

// handleTransactionValidated feeds one inbound event through the engine.
// Returning an error requeues the task; the engine is idempotent, so a
// retried delivery completes whatever the failed run left unfinished.
func (c *Consumer) handleTransactionValidated(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_transaction_validated_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.TransactionValidatedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_transaction_validated_unmarshal_failed", "error", err)
		return err
	}
	if payload.TransactionID == 0 || payload.AffiliateID == 0 {
		logger.Debugw("worker_transaction_validated_skip_invalid_payload",
			"transaction_id", payload.TransactionID,
			"affiliate_id", payload.AffiliateID)
		return nil
	}

	occurredAt := time.Time{}
	if payload.OccurredAt > 0 {
		occurredAt = time.Unix(payload.OccurredAt, 0)
	}
	result, err := c.Engine.ProcessTransaction(ctx, service.ProcessInput{
		TransactionID:   payload.TransactionID,
		AffiliateID:     payload.AffiliateID,
		CustomerID:      payload.CustomerID,
		ValidationModel: payload.ValidationModel,
		TransactionType: payload.TransactionType,
		Amount:          payload.Amount,
		OccurredAt:      occurredAt,
		Metadata:        payload.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAffiliateNotFound):
			// A retry cannot make the affiliate appear.
			logger.Warnw("worker_transaction_validated_skip_affiliate_missing",
				"transaction_id", payload.TransactionID,
				"affiliate_id", payload.AffiliateID)
			return nil
		case errors.Is(err, service.ErrInvalidInput):
			logger.Warnw("worker_transaction_validated_skip_invalid_input",
				"transaction_id", payload.TransactionID)
			return nil
		default:
			logger.Warnw("worker_transaction_validated_failed",
				"transaction_id", payload.TransactionID,
				"error", err)
			return err
		}
	}

	logger.Infow("worker_transaction_validated_processed",
		"transaction_id", payload.TransactionID,
		"validation_passed", result.ValidationPassed,
		"commissions", len(result.Commissions),
		"total_distributed", result.TotalDistributed.String(),
		"bonus_triggered", result.BonusTriggered,
		"level_up_triggered", result.LevelUpTriggered)
	return nil
}

// handleDomainEvent lands outbound engine events in the audit trail so the
// full event stream is queryable even without external subscribers.
func (c *Consumer) handleDomainEvent(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_domain_event_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.DomainEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_domain_event_unmarshal_failed", "error", err)
		return err
	}
	if payload.EventType == "" {
		logger.Debugw("worker_domain_event_skip_empty_type")
		return nil
	}

	detail := models.JSON{"event_type": payload.EventType}
	for k, v := range payload.Detail {
		detail[k] = v
	}
	if err := c.AuditLogRepo.Create(&models.AuditLog{
		Action:     "domain_event_" + payload.EventType,
		ResourceID: payload.ResourceID,
		Severity:   constants.AuditSeverityInfo,
		DetailJSON: detail,
	}); err != nil {
		logger.Warnw("worker_domain_event_record_failed",
			"event_type", payload.EventType,
			"error", err)
		return err
	}
	return nil
}
