package queue

import (
	"encoding/json"

	"github.com/betlink/affiliate-engine/internal/constants"
	"github.com/betlink/affiliate-engine/internal/models"

	"github.com/hibiken/asynq"
)

const (
	// TaskTransactionValidated carries an inbound validated transaction.
	TaskTransactionValidated = constants.TaskTransactionValidated
	// TaskDomainEvent carries an outbound engine event for consumers.
	TaskDomainEvent = constants.TaskDomainEvent
)

// TransactionValidatedPayload is the body of an inbound transaction task.
type TransactionValidatedPayload struct {
	TransactionID   uint                   `json:"transaction_id"`
	AffiliateID     uint                   `json:"affiliate_id"`
	CustomerID      uint                   `json:"customer_id"`
	ValidationModel string                 `json:"validation_model"`
	TransactionType string                 `json:"transaction_type"`
	Amount          models.Money           `json:"amount"`
	OccurredAt      int64                  `json:"occurred_at"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// DomainEventPayload is the body of an outbound engine event task.
type DomainEventPayload struct {
	EventType  string                 `json:"event_type"`
	ResourceID string                 `json:"resource_id"`
	OccurredAt int64                  `json:"occurred_at"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
}

// NewTransactionValidatedTask builds an inbound transaction task.
func NewTransactionValidatedTask(payload TransactionValidatedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTransactionValidated, body), nil
}

// NewDomainEventTask builds an outbound event task.
func NewDomainEventTask(payload DomainEventPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDomainEvent, body), nil
}
