package service

import (
	"time"

	"github.com/betlink/affiliate-engine/internal/constants"
	"github.com/betlink/affiliate-engine/internal/models"
	"github.com/betlink/affiliate-engine/internal/repository"

	"github.com/shopspring/decimal"
)

// Validation thresholds.
var (
	minFirstDepositAmount = decimal.NewFromInt(50)
	activityMinAmount     = decimal.NewFromInt(200)
)

const (
	activityMinCount  = 3
	activityWindowDur = 30 * 24 * time.Hour
)

// ValidationInput is what the validator decides on.
type ValidationInput struct {
	CustomerID      uint
	ValidationModel string
	TransactionType string
	Amount          models.Money
}

// TransactionValidator decides commission eligibility per validation model.
// Precondition: the triggering transaction has already been persisted as
// completed before Validate runs, so first-deposit counting sees it.
type TransactionValidator struct {
	transactions repository.TransactionRepository
}

// NewTransactionValidator creates the validator.
func NewTransactionValidator(transactions repository.TransactionRepository) *TransactionValidator {
	return &TransactionValidator{transactions: transactions}
}

// Validate returns whether the transaction qualifies. A false result is a
// normal outcome, not an error; errors are reserved for storage faults.
func (v *TransactionValidator) Validate(input ValidationInput) (bool, error) {
	if v == nil || v.transactions == nil || input.CustomerID == 0 {
		return false, nil
	}
	switch input.ValidationModel {
	case constants.ValidationModelFirstDeposit:
		return v.validateFirstDeposit(input)
	case constants.ValidationModelActivity:
		return v.validateActivity(input)
	default:
		// Unknown model fails closed.
		return false, nil
	}
}

// validateFirstDeposit passes only for the customer's first completed
// deposit of at least the minimum amount. The triggering deposit is already
// in the store, so exactly one completed deposit must exist.
func (v *TransactionValidator) validateFirstDeposit(input ValidationInput) (bool, error) {
	if input.TransactionType != constants.TransactionTypeDeposit {
		return false, nil
	}
	if input.Amount.Decimal.LessThan(minFirstDepositAmount) {
		return false, nil
	}
	count, err := v.transactions.CountCompletedDeposits(input.CustomerID)
	if err != nil {
		return false, err
	}
	return count == 1, nil
}

// validateActivity passes when the trailing 30 days of completed
// transactions reach the count threshold or the volume threshold.
func (v *TransactionValidator) validateActivity(input ValidationInput) (bool, error) {
	since := time.Now().Add(-activityWindowDur)
	count, err := v.transactions.CountCompletedSince(input.CustomerID, since)
	if err != nil {
		return false, err
	}
	if count >= activityMinCount {
		return true, nil
	}
	total, err := v.transactions.SumCompletedAmountSince(input.CustomerID, since)
	if err != nil {
		return false, err
	}
	return total.GreaterThanOrEqual(activityMinAmount), nil
}
