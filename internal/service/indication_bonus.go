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

// indicationBonusAmount is the flat one-time referral bonus. Fixed business
// constant, like the distribution pool.
var indicationBonusAmount = decimal.RequireFromString("5.00")

// BonusOutcome reports whether a run awarded the referral bonus.
type BonusOutcome struct {
	BonusTriggered bool
	BonusAmount    models.Money
}

// IndicationBonusProcessor awards the one-time bonus for a validated
// referral. It runs alongside the hierarchy distribution; one transaction
// can trigger both.
type IndicationBonusProcessor struct {
	affiliates  repository.AffiliateRepository
	indications repository.IndicationRepository
	events      EventPublisher
}

// NewIndicationBonusProcessor creates the processor.
func NewIndicationBonusProcessor(
	affiliates repository.AffiliateRepository,
	indications repository.IndicationRepository,
	events EventPublisher,
) *IndicationBonusProcessor {
	return &IndicationBonusProcessor{
		affiliates:  affiliates,
		indications: indications,
		events:      events,
	}
}

// Process awards the bonus at most once per (source affiliate, customer)
// pair. The source affiliate gains the bonus, a direct indication and a
// total indication; every ancestor above it gains a total indication, so
// tree-wide counts stay consistent for progression checks.
func (p *IndicationBonusProcessor) Process(ctx context.Context, chain []models.Affiliate, customerID uint) (*BonusOutcome, error) {
	outcome := &BonusOutcome{BonusAmount: models.NewMoney(decimal.Zero)}
	if len(chain) == 0 || customerID == 0 {
		return outcome, nil
	}
	source := chain[0]

	existing, err := p.indications.GetActiveByPair(source.ID, customerID)
	if err != nil {
		return outcome, err
	}
	if existing != nil {
		return outcome, nil
	}

	now := time.Now()
	indication := &models.Indication{
		SourceAffiliateID: source.ID,
		CustomerID:        customerID,
		Status:            constants.IndicationStatusValidated,
		BonusAmount:       models.NewMoney(indicationBonusAmount),
		ValidatedAt:       &now,
	}

	err = p.affiliates.Transaction(func(tx *gorm.DB) error {
		if err := p.indications.WithTx(tx).Create(indication); err != nil {
			return err
		}
		affiliates := p.affiliates.WithTx(tx)
		if err := affiliates.IncrementBalance(source.ID, indicationBonusAmount); err != nil {
			return err
		}
		if err := affiliates.IncrementIndications(source.ID, 1, 1); err != nil {
			return err
		}
		for _, ancestor := range chain[1:] {
			if err := affiliates.IncrementIndications(ancestor.ID, 0, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			// A concurrent delivery won the insert; the bonus is theirs.
			logger.Infow("indication already recorded concurrently",
				"source_affiliate_id", source.ID,
				"customer_id", customerID)
			return outcome, nil
		}
		return outcome, err
	}

	outcome.BonusTriggered = true
	outcome.BonusAmount = indication.BonusAmount

	p.events.Publish(ctx, constants.EventIndicationValidated,
		fmt.Sprintf("%d", indication.ID),
		map[string]interface{}{
			"source_affiliate_id": source.ID,
			"customer_id":         customerID,
			"bonus_amount":        indication.BonusAmount.String(),
		})
	return outcome, nil
}
