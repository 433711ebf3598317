package service

import (
	"context"
	"fmt"

	"github.com/betlink/affiliate-engine/internal/constants"
	"github.com/betlink/affiliate-engine/internal/repository"
)

// ProgressionOutcome reports whether an evaluation promoted the affiliate.
type ProgressionOutcome struct {
	LevelUpTriggered bool
	NewCategory      string
	NewCategoryLevel int
}

// ProgressionEvaluator promotes an affiliate when it meets the next
// category/level requirements. Progression only moves forward through the
// category ordering and upward within a category; it never regresses.
type ProgressionEvaluator struct {
	affiliates repository.AffiliateRepository
	configs    *CategoryConfigProvider
	events     EventPublisher
}

// NewProgressionEvaluator creates the evaluator.
func NewProgressionEvaluator(
	affiliates repository.AffiliateRepository,
	configs *CategoryConfigProvider,
	events EventPublisher,
) *ProgressionEvaluator {
	return &ProgressionEvaluator{
		affiliates: affiliates,
		configs:    configs,
		events:     events,
	}
}

// Evaluate checks the affiliate against the next config and promotes it by
// one step when all three thresholds hold. The affiliate is re-read so the
// check sees the increments the current run just committed.
func (e *ProgressionEvaluator) Evaluate(ctx context.Context, affiliateID uint) (*ProgressionOutcome, error) {
	outcome := &ProgressionOutcome{}
	if e == nil || e.affiliates == nil || affiliateID == 0 {
		return outcome, nil
	}

	affiliate, err := e.affiliates.GetByID(affiliateID)
	if err != nil {
		return outcome, err
	}
	if affiliate == nil {
		return outcome, ErrAffiliateNotFound
	}

	next := e.configs.GetNextConfig(ctx, affiliate.Category, affiliate.CategoryLevel)
	if next == nil {
		// Already at the top of the ladder.
		return outcome, nil
	}

	if affiliate.DirectIndications < next.MinDirectIndications {
		return outcome, nil
	}
	if affiliate.TotalIndications < next.MinTotalIndications {
		return outcome, nil
	}
	if affiliate.TotalCommissions.Decimal.LessThan(next.MinCommissions) {
		return outcome, nil
	}

	// The promotion is the one whole-field write in the engine; balances
	// stay increment-only.
	if err := e.affiliates.UpdateCategoryLevel(affiliate.ID, next.Category, next.Level); err != nil {
		return outcome, err
	}
	if next.LevelUpBonus.IsPositive() {
		if err := e.affiliates.IncrementBalance(affiliate.ID, next.LevelUpBonus); err != nil {
			return outcome, err
		}
	}

	outcome.LevelUpTriggered = true
	outcome.NewCategory = next.Category
	outcome.NewCategoryLevel = next.Level

	e.events.Publish(ctx, constants.EventAffiliateLevelUp,
		fmt.Sprintf("%d", affiliate.ID),
		map[string]interface{}{
			"affiliate_id":  affiliate.ID,
			"from_category": affiliate.Category,
			"from_level":    affiliate.CategoryLevel,
			"to_category":   next.Category,
			"to_level":      next.Level,
			"level_up_bonus": next.LevelUpBonus.String(),
		})
	return outcome, nil
}
