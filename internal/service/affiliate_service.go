package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/betlink/affiliate-engine/internal/constants"
	"github.com/betlink/affiliate-engine/internal/logger"
	"github.com/betlink/affiliate-engine/internal/models"
	"github.com/betlink/affiliate-engine/internal/repository"
)

const referralCodeLength = 8

// AffiliateService covers the affiliate lifecycle around the engine:
// registration into the hierarchy, summaries, and the commission approval
// sweep.
type AffiliateService struct {
	affiliates  repository.AffiliateRepository
	commissions repository.CommissionRepository
	indications repository.IndicationRepository
	configs     *CategoryConfigProvider
}

// NewAffiliateService creates the service.
func NewAffiliateService(
	affiliates repository.AffiliateRepository,
	commissions repository.CommissionRepository,
	indications repository.IndicationRepository,
	configs *CategoryConfigProvider,
) *AffiliateService {
	return &AffiliateService{
		affiliates:  affiliates,
		commissions: commissions,
		indications: indications,
		configs:     configs,
	}
}

// RegisterInput creates one affiliate. ParentReferralCode is optional; a
// blank one registers a root affiliate.
type RegisterInput struct {
	ParentReferralCode string `json:"parent_referral_code"`
}

// Register creates an affiliate at the bottom of the ladder with a fresh
// referral code. Code generation retries on the rare collision; the unique
// index on the column is the authoritative guard.
func (s *AffiliateService) Register(input RegisterInput) (*models.Affiliate, error) {
	var parentID *uint
	if code := strings.TrimSpace(input.ParentReferralCode); code != "" {
		parent, err := s.affiliates.GetByReferralCode(code)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrReferralCodeNotFound
		}
		if parent.Status != constants.AffiliateStatusActive {
			return nil, ErrAffiliateDisabled
		}
		parentID = &parent.ID
	}

	const maxRetry = 8
	for i := 0; i < maxRetry; i++ {
		code, err := generateReferralCode()
		if err != nil {
			return nil, err
		}
		affiliate := &models.Affiliate{
			ReferralCode:  code,
			ParentID:      parentID,
			Category:      constants.CategoryJogador,
			CategoryLevel: 1,
			Status:        constants.AffiliateStatusActive,
		}
		if err := s.affiliates.Create(affiliate); err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		return affiliate, nil
	}
	return nil, ErrReferralCodeExhausted
}

// AffiliateSummary is the per-affiliate standing report.
type AffiliateSummary struct {
	Affiliate           models.Affiliate `json:"affiliate"`
	PendingCommissions  models.Money     `json:"pending_commissions"`
	ApprovedCommissions models.Money     `json:"approved_commissions"`
	IndicationCount     int64            `json:"indication_count"`
	NextConfig          *CategoryConfig  `json:"next_config,omitempty"`
}

// GetSummary assembles the affiliate's standing: balances, commission sums
// by stage, indication count and the next progression target.
func (s *AffiliateService) GetSummary(ctx context.Context, affiliateID uint) (*AffiliateSummary, error) {
	affiliate, err := s.affiliates.GetByID(affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrAffiliateNotFound
	}

	pending, err := s.commissions.SumFinalByAffiliate(affiliateID, []string{constants.CommissionStatusCalculated})
	if err != nil {
		return nil, err
	}
	approved, err := s.commissions.SumFinalByAffiliate(affiliateID, []string{
		constants.CommissionStatusApproved,
		constants.CommissionStatusPaid,
	})
	if err != nil {
		return nil, err
	}
	indicationCount, err := s.indications.CountBySource(affiliateID)
	if err != nil {
		return nil, err
	}

	return &AffiliateSummary{
		Affiliate:           *affiliate,
		PendingCommissions:  models.NewMoney(pending),
		ApprovedCommissions: models.NewMoney(approved),
		IndicationCount:     indicationCount,
		NextConfig:          s.configs.GetNextConfig(ctx, affiliate.Category, affiliate.CategoryLevel),
	}, nil
}

// GetByID fetches one affiliate.
func (s *AffiliateService) GetByID(affiliateID uint) (*models.Affiliate, error) {
	affiliate, err := s.affiliates.GetByID(affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrAffiliateNotFound
	}
	return affiliate, nil
}

// ListAffiliates pages through affiliates.
func (s *AffiliateService) ListAffiliates(filter repository.AffiliateListFilter) ([]models.Affiliate, int64, error) {
	return s.affiliates.List(filter)
}

// ListCommissions pages through commission records.
func (s *AffiliateService) ListCommissions(filter repository.CommissionListFilter) ([]models.Commission, int64, error) {
	return s.commissions.List(filter)
}

// ListIndications pages through indications.
func (s *AffiliateService) ListIndications(filter repository.IndicationListFilter) ([]models.Indication, int64, error) {
	return s.indications.List(filter)
}

// ApproveDueCommissions flips calculated commissions older than the confirm
// window to approved. Called by the worker sweep.
func (s *AffiliateService) ApproveDueCommissions(confirmDays int) (int64, error) {
	if confirmDays < 0 {
		confirmDays = 0
	}
	now := time.Now()
	cutoff := now.AddDate(0, 0, -confirmDays)
	approved, err := s.commissions.ApproveCalculatedBefore(cutoff, now)
	if err != nil {
		return 0, err
	}
	if approved > 0 {
		logger.Infow("commissions approved", "count", approved, "cutoff", cutoff)
	}
	return approved, nil
}

func generateReferralCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(referralCodeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}
