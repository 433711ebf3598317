package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/betlink/affiliate-engine/internal/constants"
	"github.com/betlink/affiliate-engine/internal/models"
	"github.com/betlink/affiliate-engine/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupHierarchyTest(t *testing.T) (*HierarchyResolver, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:hierarchy_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Affiliate{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewHierarchyResolver(repository.NewAffiliateRepository(db), DefaultMaxHierarchyDepth), db
}

func createChain(t *testing.T, db *gorm.DB, length int) []models.Affiliate {
	t.Helper()

	chain := make([]models.Affiliate, 0, length)
	var parentID *uint
	for i := 0; i < length; i++ {
		row := models.Affiliate{
			ReferralCode:  fmt.Sprintf("CHAIN%03d", i),
			ParentID:      parentID,
			Category:      constants.CategoryJogador,
			CategoryLevel: 1,
			Status:        constants.AffiliateStatusActive,
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("create affiliate failed: %v", err)
		}
		id := row.ID
		parentID = &id
		chain = append(chain, row)
	}
	return chain
}

func TestResolveNearestFirstWithSourceAsLevelOne(t *testing.T) {
	resolver, db := setupHierarchyTest(t)

	// chain[0] is the root; chain[2] is the deepest descendant.
	created := createChain(t, db, 3)
	deepest := created[2]

	resolved, err := resolver.Resolve(deepest.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(resolved) != 3 {
		t.Fatalf("expected chain of 3, got %d", len(resolved))
	}
	if resolved[0].ID != deepest.ID {
		t.Fatalf("level 1 must be the source affiliate, got %d", resolved[0].ID)
	}
	if resolved[1].ID != created[1].ID || resolved[2].ID != created[0].ID {
		t.Fatalf("ancestors out of order: %d, %d", resolved[1].ID, resolved[2].ID)
	}
}

func TestResolveStopsAtMaxDepth(t *testing.T) {
	resolver, db := setupHierarchyTest(t)

	created := createChain(t, db, 8)
	resolved, err := resolver.Resolve(created[7].ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(resolved) != DefaultMaxHierarchyDepth {
		t.Fatalf("expected %d levels, got %d", DefaultMaxHierarchyDepth, len(resolved))
	}
}

func TestResolveTerminatesOnCycle(t *testing.T) {
	resolver, db := setupHierarchyTest(t)

	created := createChain(t, db, 2)
	// Corrupt the graph: root points back at its child.
	if err := db.Model(&models.Affiliate{}).
		Where("id = ?", created[0].ID).
		Update("parent_id", created[1].ID).Error; err != nil {
		t.Fatalf("introduce cycle failed: %v", err)
	}

	resolved, err := resolver.Resolve(created[1].ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(resolved) != 2 {
		t.Fatalf("expected cycle to stop after 2, got %d", len(resolved))
	}
}

func TestResolveUnknownAffiliateEmpty(t *testing.T) {
	resolver, _ := setupHierarchyTest(t)

	resolved, err := resolver.Resolve(424242)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(resolved) != 0 {
		t.Fatalf("expected empty chain, got %d", len(resolved))
	}
}
