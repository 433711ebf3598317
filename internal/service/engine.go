package service

import (
	"context"
	"fmt"
	"time"

	"github.com/betlink/affiliate-engine/internal/constants"
	"github.com/betlink/affiliate-engine/internal/models"
	"github.com/betlink/affiliate-engine/internal/repository"

	"github.com/shopspring/decimal"
)

// ProcessInput is one inbound validated-transaction event.
type ProcessInput struct {
	TransactionID   uint                   `json:"transaction_id"`
	AffiliateID     uint                   `json:"affiliate_id"`
	CustomerID      uint                   `json:"customer_id"`
	ValidationModel string                 `json:"validation_model"`
	TransactionType string                 `json:"transaction_type"`
	Amount          models.Money           `json:"amount"`
	OccurredAt      time.Time              `json:"occurred_at"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// ProcessResult is the full outcome of one engine run.
type ProcessResult struct {
	Commissions      []models.Commission `json:"commissions"`
	TotalDistributed models.Money        `json:"total_distributed"`
	ValidationPassed bool                `json:"validation_passed"`
	BonusTriggered   bool                `json:"bonus_triggered"`
	BonusAmount      models.Money        `json:"bonus_amount"`
	LevelUpTriggered bool                `json:"level_up_triggered"`
	NewCategory      string              `json:"new_category,omitempty"`
	NewCategoryLevel int                 `json:"new_category_level,omitempty"`
}

// Engine runs the full commission pipeline for one validated transaction:
// validate, resolve the hierarchy, distribute, award the referral bonus,
// evaluate progression. Every stage can short-circuit on ineligibility
// without side effects on later stages.
type Engine struct {
	affiliates   repository.AffiliateRepository
	transactions repository.TransactionRepository
	validator    *TransactionValidator
	resolver     *HierarchyResolver
	distributor  *CommissionDistributor
	bonus        *IndicationBonusProcessor
	progression  *ProgressionEvaluator
	audit        *AuditService
}

// NewEngine wires the pipeline.
func NewEngine(
	affiliates repository.AffiliateRepository,
	transactions repository.TransactionRepository,
	validator *TransactionValidator,
	resolver *HierarchyResolver,
	distributor *CommissionDistributor,
	bonus *IndicationBonusProcessor,
	progression *ProgressionEvaluator,
	audit *AuditService,
) *Engine {
	return &Engine{
		affiliates:   affiliates,
		transactions: transactions,
		validator:    validator,
		resolver:     resolver,
		distributor:  distributor,
		bonus:        bonus,
		progression:  progression,
		audit:        audit,
	}
}

func emptyResult() *ProcessResult {
	return &ProcessResult{
		Commissions:      []models.Commission{},
		TotalDistributed: models.NewMoney(decimal.Zero),
		BonusAmount:      models.NewMoney(decimal.Zero),
	}
}

// ProcessTransaction runs the pipeline once. Ineligibility comes back as a
// result with ValidationPassed=false; returned errors are storage faults
// the caller should retry, safe because every write is idempotent.
func (e *Engine) ProcessTransaction(ctx context.Context, input ProcessInput) (*ProcessResult, error) {
	result := emptyResult()
	if input.TransactionID == 0 || input.AffiliateID == 0 || input.CustomerID == 0 {
		return result, ErrInvalidInput
	}

	auditDetail := map[string]interface{}{
		"transaction_id":   input.TransactionID,
		"affiliate_id":     input.AffiliateID,
		"customer_id":      input.CustomerID,
		"validation_model": input.ValidationModel,
	}

	source, err := e.affiliates.GetByID(input.AffiliateID)
	if err != nil {
		return result, e.fault(ctx, input, auditDetail, err)
	}
	if source == nil {
		return result, e.fault(ctx, input, auditDetail, ErrAffiliateNotFound)
	}
	if source.Status != constants.AffiliateStatusActive {
		e.audit.Log(ctx, constants.AuditActionValidationRejected,
			fmt.Sprintf("%d", input.TransactionID),
			constants.AuditSeverityWarn,
			withReason(auditDetail, "affiliate not active"))
		return result, nil
	}

	// The read-model copy must exist before validation: first-deposit
	// counting includes the triggering transaction itself.
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	err = e.transactions.Upsert(&models.Transaction{
		ID:          input.TransactionID,
		CustomerID:  input.CustomerID,
		AffiliateID: input.AffiliateID,
		Type:        input.TransactionType,
		Amount:      input.Amount,
		Status:      constants.TransactionStatusCompleted,
		CreatedAt:   occurredAt,
	})
	if err != nil {
		return result, e.fault(ctx, input, auditDetail, err)
	}

	eligible, err := e.validator.Validate(ValidationInput{
		CustomerID:      input.CustomerID,
		ValidationModel: input.ValidationModel,
		TransactionType: input.TransactionType,
		Amount:          input.Amount,
	})
	if err != nil {
		return result, e.fault(ctx, input, auditDetail, err)
	}
	if !eligible {
		e.audit.Log(ctx, constants.AuditActionValidationRejected,
			fmt.Sprintf("%d", input.TransactionID),
			constants.AuditSeverityInfo,
			auditDetail)
		return result, nil
	}
	result.ValidationPassed = true

	chain, err := e.resolver.Resolve(source.ID)
	if err != nil {
		return result, e.fault(ctx, input, auditDetail, err)
	}

	distribution, err := e.distributor.Distribute(ctx, DistributionInput{
		TransactionID:   input.TransactionID,
		SourceAffiliate: source,
		CustomerID:      input.CustomerID,
		ValidationModel: input.ValidationModel,
		TransactionType: input.TransactionType,
		Amount:          input.Amount,
	}, chain)
	if err != nil {
		return result, e.fault(ctx, input, auditDetail, err)
	}
	result.Commissions = distribution.Commissions
	result.TotalDistributed = distribution.TotalDistributed

	bonus, err := e.bonus.Process(ctx, chain, input.CustomerID)
	if err != nil {
		return result, e.fault(ctx, input, auditDetail, err)
	}
	result.BonusTriggered = bonus.BonusTriggered
	result.BonusAmount = bonus.BonusAmount

	progression, err := e.progression.Evaluate(ctx, source.ID)
	if err != nil {
		return result, e.fault(ctx, input, auditDetail, err)
	}
	result.LevelUpTriggered = progression.LevelUpTriggered
	result.NewCategory = progression.NewCategory
	result.NewCategoryLevel = progression.NewCategoryLevel

	auditDetail["commissions_created"] = len(result.Commissions)
	auditDetail["total_distributed"] = result.TotalDistributed.String()
	auditDetail["bonus_triggered"] = result.BonusTriggered
	auditDetail["level_up_triggered"] = result.LevelUpTriggered
	e.audit.Log(ctx, constants.AuditActionDistributionCompleted,
		fmt.Sprintf("%d", input.TransactionID),
		constants.AuditSeverityInfo,
		auditDetail)

	return result, nil
}

// fault audits a storage failure with full context and hands the error back
// to the caller, an at-least-once consumer that will retry.
func (e *Engine) fault(ctx context.Context, input ProcessInput, detail map[string]interface{}, err error) error {
	e.audit.Log(ctx, constants.AuditActionDistributionFailed,
		fmt.Sprintf("%d", input.TransactionID),
		constants.AuditSeverityError,
		withReason(detail, err.Error()))
	return err
}

func withReason(detail map[string]interface{}, reason string) map[string]interface{} {
	out := make(map[string]interface{}, len(detail)+1)
	for k, v := range detail {
		out[k] = v
	}
	out["reason"] = reason
	return out
}
