package service

import (
	"context"
	"fmt"
	"time"

	"github.com/betlink/affiliate-engine/internal/constants"
	"github.com/betlink/affiliate-engine/internal/logger"
	"github.com/betlink/affiliate-engine/internal/models"
	"github.com/betlink/affiliate-engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// baseAmountVector is the fixed per-level base distribution. The sum is the
// total commission pool of 60.00 per validated transaction; it is a product
// constant, not a per-call parameter.
var baseAmountVector = []decimal.Decimal{
	decimal.NewFromInt(35),
	decimal.NewFromInt(10),
	decimal.NewFromInt(5),
	decimal.NewFromInt(5),
	decimal.NewFromInt(5),
}

// DistributionInput identifies one validated transaction to pay out.
type DistributionInput struct {
	TransactionID   uint
	SourceAffiliate *models.Affiliate
	CustomerID      uint
	ValidationModel string
	TransactionType string
	Amount          models.Money
}

// DistributionOutcome is what one distribution run produced.
type DistributionOutcome struct {
	Commissions      []models.Commission
	TotalDistributed models.Money
}

// CommissionDistributor walks the resolved hierarchy and credits each
// ancestor its level's share of the pool.
type CommissionDistributor struct {
	affiliates  repository.AffiliateRepository
	commissions repository.CommissionRepository
	configs     *CategoryConfigProvider
	decay       *InactivityDecayCalculator
	events      EventPublisher
}

// NewCommissionDistributor creates the distributor.
func NewCommissionDistributor(
	affiliates repository.AffiliateRepository,
	commissions repository.CommissionRepository,
	configs *CategoryConfigProvider,
	decay *InactivityDecayCalculator,
	events EventPublisher,
) *CommissionDistributor {
	return &CommissionDistributor{
		affiliates:  affiliates,
		commissions: commissions,
		configs:     configs,
		decay:       decay,
		events:      events,
	}
}

// Distribute pays each present hierarchy level its share. Each level commits
// in its own transaction so a run that faults midway leaves the completed
// levels in place; re-running skips them through the idempotency guard and
// finishes the remainder. Errors are storage faults only and propagate to
// the caller for retry.
func (d *CommissionDistributor) Distribute(ctx context.Context, input DistributionInput, chain []models.Affiliate) (*DistributionOutcome, error) {
	outcome := &DistributionOutcome{
		Commissions:      []models.Commission{},
		TotalDistributed: models.NewMoney(decimal.Zero),
	}
	if input.SourceAffiliate == nil || len(chain) == 0 {
		return outcome, nil
	}

	now := time.Now()
	total := decimal.Zero

	for i, ancestor := range chain {
		if i >= len(baseAmountVector) {
			break
		}
		level := i + 1

		existing, err := d.commissions.GetByUniqueKey(input.TransactionID, ancestor.ID, level, input.ValidationModel)
		if err != nil {
			return outcome, err
		}
		if existing != nil {
			// Already paid on a previous delivery of this event.
			continue
		}

		cfg := d.configs.GetConfig(ctx, ancestor.Category, ancestor.CategoryLevel)
		percentage := cfg.RevShareLevel1
		if level > 1 {
			percentage = cfg.RevShareLevels2to5
		}

		baseAmount := baseAmountVector[i]
		commissionAmount := baseAmount.Mul(percentage).Div(decimal.NewFromInt(100))
		decayPercent := d.decay.DecayFor(ancestor.LastActivityAt, now)
		finalAmount := d.decay.Apply(commissionAmount, decayPercent)

		commission := &models.Commission{
			AffiliateID:       ancestor.ID,
			SourceAffiliateID: input.SourceAffiliate.ID,
			CustomerID:        input.CustomerID,
			TransactionID:     input.TransactionID,
			Level:             level,
			ValidationModel:   input.ValidationModel,
			BaseAmount:        models.NewMoney(baseAmount),
			Percentage:        models.NewMoney(percentage),
			CommissionAmount:  models.NewMoney(commissionAmount),
			FinalAmount:       models.NewMoney(finalAmount),
			Status:            constants.CommissionStatusCalculated,
			Metadata: models.JSON{
				"validation_model": input.ValidationModel,
				"transaction_type": input.TransactionType,
				"decay_percent":    decayPercent.String(),
				"category":         cfg.Category,
				"category_level":   cfg.Level,
			},
		}

		err = d.commissions.Transaction(func(tx *gorm.DB) error {
			if err := d.commissions.WithTx(tx).Create(commission); err != nil {
				return err
			}
			return d.affiliates.WithTx(tx).IncrementEarnings(ancestor.ID, commission.FinalAmount.Decimal)
		})
		if err != nil {
			if isUniqueViolation(err) {
				// Lost the insert race to a concurrent delivery; the
				// other writer owns this level.
				logger.Infow("commission level already written concurrently",
					"transaction_id", input.TransactionID,
					"affiliate_id", ancestor.ID,
					"level", level)
				continue
			}
			return outcome, err
		}

		outcome.Commissions = append(outcome.Commissions, *commission)
		total = total.Add(commission.FinalAmount.Decimal)

		d.events.Publish(ctx, constants.EventCommissionCalculated,
			fmt.Sprintf("%d", commission.ID),
			map[string]interface{}{
				"affiliate_id":   ancestor.ID,
				"transaction_id": input.TransactionID,
				"level":          level,
				"final_amount":   commission.FinalAmount.String(),
			})
	}

	// The triggering activity belongs to the source affiliate: refresh its
	// activity stamp and monthly volume. Skipped entirely on a pure
	// redelivery (no new records) so re-runs leave every accumulator
	// untouched.
	if len(outcome.Commissions) > 0 {
		if err := d.affiliates.TouchActivity(input.SourceAffiliate.ID, now); err != nil {
			return outcome, err
		}
		if err := d.affiliates.AddMonthVolume(input.SourceAffiliate.ID, input.Amount.Decimal); err != nil {
			return outcome, err
		}
	}

	outcome.TotalDistributed = models.NewMoney(total)
	return outcome, nil
}

// BasePoolTotal returns the fixed pool the base vector sums to.
func BasePoolTotal() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range baseAmountVector {
		total = total.Add(amount)
	}
	return total
}
