package api

import (
	"errors"
	"time"

	"github.com/betlink/affiliate-engine/internal/http/response"
	"github.com/betlink/affiliate-engine/internal/models"
	"github.com/betlink/affiliate-engine/internal/queue"
	"github.com/betlink/affiliate-engine/internal/service"

	"github.com/gin-gonic/gin"
)

type transactionValidatedRequest struct {
	TransactionID   uint                   `json:"transaction_id" binding:"required"`
	AffiliateID     uint                   `json:"affiliate_id" binding:"required"`
	CustomerID      uint                   `json:"customer_id" binding:"required"`
	ValidationModel string                 `json:"validation_model" binding:"required"`
	TransactionType string                 `json:"transaction_type" binding:"required"`
	Amount          models.Money           `json:"amount"`
	OccurredAt      *time.Time             `json:"occurred_at"`
	Metadata        map[string]interface{} `json:"metadata"`
	// Sync forces inline processing even when the queue is available.
	Sync bool `json:"sync"`
}

type enqueuedResponse struct {
	Queued        bool `json:"queued"`
	TransactionID uint `json:"transaction_id"`
}

// IngestTransactionValidated accepts one validated-transaction event. With a
// queue available the event is enqueued and processed by the worker; without
// one, or when the caller asks for a synchronous run, the engine runs inline
// and the full result is returned.
func (h *Handler) IngestTransactionValidated(c *gin.Context) {
	var req transactionValidatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	if !req.Sync && h.QueueClient != nil && h.QueueClient.Enabled() {
		payload := queue.TransactionValidatedPayload{
			TransactionID:   req.TransactionID,
			AffiliateID:     req.AffiliateID,
			CustomerID:      req.CustomerID,
			ValidationModel: req.ValidationModel,
			TransactionType: req.TransactionType,
			Amount:          req.Amount,
			OccurredAt:      occurredAt.Unix(),
			Metadata:        req.Metadata,
		}
		if err := h.QueueClient.EnqueueTransactionValidated(payload); err != nil {
			respondError(c, response.CodeInternal, "failed to enqueue event", err)
			return
		}
		response.Success(c, enqueuedResponse{Queued: true, TransactionID: req.TransactionID})
		return
	}

	result, err := h.Engine.ProcessTransaction(c.Request.Context(), service.ProcessInput{
		TransactionID:   req.TransactionID,
		AffiliateID:     req.AffiliateID,
		CustomerID:      req.CustomerID,
		ValidationModel: req.ValidationModel,
		TransactionType: req.TransactionType,
		Amount:          req.Amount,
		OccurredAt:      occurredAt,
		Metadata:        req.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			respondError(c, response.CodeBadRequest, "invalid event payload", err)
		case errors.Is(err, service.ErrAffiliateNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", err)
		default:
			respondError(c, response.CodeInternal, "event processing failed", err)
		}
		return
	}
	response.Success(c, result)
}
