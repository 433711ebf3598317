package constants

// Affiliate categories, lowest tier first. Progression only ever moves
// forward through this ordering.
const (
	CategoryJogador      = "jogador"
	CategoryIniciante    = "iniciante"
	CategoryAfiliado     = "afiliado"
	CategoryProfissional = "profissional"
	CategoryExpert       = "expert"
	CategoryMestre       = "mestre"
	CategoryLenda        = "lenda"
)

// CategoryOrder is the canonical tier ordering.
var CategoryOrder = []string{
	CategoryJogador,
	CategoryIniciante,
	CategoryAfiliado,
	CategoryProfissional,
	CategoryExpert,
	CategoryMestre,
	CategoryLenda,
}

// Affiliate status values.
const (
	AffiliateStatusActive   = "active"
	AffiliateStatusDisabled = "disabled"
)

// Commission status values.
const (
	CommissionStatusCalculated = "calculated"
	CommissionStatusApproved   = "approved"
	CommissionStatusPaid       = "paid"
	CommissionStatusCancelled  = "cancelled"
)

// Indication status values.
const (
	IndicationStatusValidated = "validated"
	IndicationStatusPaid      = "paid"
	IndicationStatusRejected  = "rejected"
)

// Transaction types and statuses (read-only inputs to the engine).
const (
	TransactionTypeDeposit = "deposit"
	TransactionTypeBet     = "bet"
	TransactionTypeGGR     = "ggr"

	TransactionStatusCompleted = "completed"
	TransactionStatusPending   = "pending"
	TransactionStatusFailed    = "failed"
)

// Validation models for commission eligibility.
const (
	ValidationModelFirstDeposit = "1.1"
	ValidationModelActivity     = "1.2"
)

// Asynq task type names.
const (
	TaskTransactionValidated = "engine:transaction_validated"
	TaskDomainEvent          = "engine:domain_event"
)

// QueueDefault is the asynq queue used by all engine tasks.
const QueueDefault = "default"

// Domain event types emitted by the engine.
const (
	EventCommissionCalculated = "commission.calculated"
	EventIndicationValidated  = "indication.validated"
	EventAffiliateLevelUp     = "affiliate.level_up"
)

// Audit severities.
const (
	AuditSeverityInfo  = "info"
	AuditSeverityWarn  = "warn"
	AuditSeverityError = "error"
)

// Audit actions recorded by the engine.
const (
	AuditActionDistributionCompleted = "commission_distribution_completed"
	AuditActionDistributionFailed    = "commission_distribution_failed"
	AuditActionValidationRejected    = "transaction_validation_rejected"
	AuditActionLevelUp               = "affiliate_level_up"
	AuditActionRateTableUpdated      = "rate_table_updated"
)

// SettingKeyRateTable is the settings-store key of the category rate table.
const SettingKeyRateTable = "commission.rate_table"
