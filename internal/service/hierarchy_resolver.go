package service

import (
	"github.com/betlink/affiliate-engine/internal/logger"
	"github.com/betlink/affiliate-engine/internal/models"
	"github.com/betlink/affiliate-engine/internal/repository"
)

// DefaultMaxHierarchyDepth bounds the ancestor chain a commission run pays.
const DefaultMaxHierarchyDepth = 5

// HierarchyResolver walks the referral parent chain.
type HierarchyResolver struct {
	affiliates repository.AffiliateRepository
	maxDepth   int
}

// NewHierarchyResolver creates the resolver.
func NewHierarchyResolver(affiliates repository.AffiliateRepository, maxDepth int) *HierarchyResolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxHierarchyDepth
	}
	return &HierarchyResolver{affiliates: affiliates, maxDepth: maxDepth}
}

// Resolve returns the chain starting at the referring affiliate itself
// (level 1) followed by its ancestors, nearest first, up to the configured
// depth. The walk stops at the root, at a missing parent row, or on a
// revisited id. The parent graph should never contain a cycle, but a
// corrupted one must not hang a distribution run.
func (r *HierarchyResolver) Resolve(affiliateID uint) ([]models.Affiliate, error) {
	if r == nil || r.affiliates == nil || affiliateID == 0 {
		return []models.Affiliate{}, nil
	}

	chain := make([]models.Affiliate, 0, r.maxDepth)
	visited := make(map[uint]bool, r.maxDepth)
	currentID := affiliateID

	for len(chain) < r.maxDepth {
		if visited[currentID] {
			logger.Warnw("cycle detected in referral hierarchy",
				"affiliate_id", affiliateID,
				"revisited_id", currentID)
			break
		}
		visited[currentID] = true

		affiliate, err := r.affiliates.GetByID(currentID)
		if err != nil {
			return nil, err
		}
		if affiliate == nil {
			break
		}
		chain = append(chain, *affiliate)

		if affiliate.ParentID == nil || *affiliate.ParentID == 0 {
			break
		}
		currentID = *affiliate.ParentID
	}
	return chain, nil
}
