package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/betlink/affiliate-engine/internal/constants"
	"github.com/betlink/affiliate-engine/internal/models"
	"github.com/betlink/affiliate-engine/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCategoryConfigTest(t *testing.T) (*CategoryConfigProvider, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:category_config_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Setting{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewCategoryConfigProvider(repository.NewSettingRepository(db), time.Minute), db
}

func TestDefaultRateTableRespectsCaps(t *testing.T) {
	table := DefaultRateTable()
	if err := table.Validate(); err != nil {
		t.Fatalf("default table must validate: %v", err)
	}

	for category, rates := range table.Categories {
		for level := 1; level <= rates.MaxLevel; level++ {
			cfg, ok := resolveLevel(category, level, rates)
			if !ok {
				t.Fatalf("category %s level %d unresolvable", category, level)
			}
			if cfg.RevShareLevel1.GreaterThan(decimal.NewFromInt(50)) {
				t.Fatalf("%s/%d level-1 share %s exceeds 50", category, level, cfg.RevShareLevel1)
			}
			if cfg.RevShareLevels2to5.GreaterThan(decimal.NewFromInt(10)) {
				t.Fatalf("%s/%d sublevel share %s exceeds 10", category, level, cfg.RevShareLevels2to5)
			}
		}
	}
}

func TestGetConfigExplicitTableValues(t *testing.T) {
	provider, _ := setupCategoryConfigTest(t)
	ctx := context.Background()

	jogadorOne := provider.GetConfig(ctx, constants.CategoryJogador, 1)
	if !jogadorOne.RevShareLevel1.Equal(decimal.RequireFromString("1.00")) {
		t.Fatalf("expected jogador/1 level-1 share 1.00, got %s", jogadorOne.RevShareLevel1)
	}

	jogadorTwo := provider.GetConfig(ctx, constants.CategoryJogador, 2)
	if !jogadorTwo.RevShareLevel1.Equal(decimal.RequireFromString("6.00")) {
		t.Fatalf("expected jogador/2 level-1 share 6.00, got %s", jogadorTwo.RevShareLevel1)
	}
	if !jogadorTwo.RevShareLevels2to5.Equal(decimal.RequireFromString("3.00")) {
		t.Fatalf("expected jogador/2 sublevel share 3.00, got %s", jogadorTwo.RevShareLevels2to5)
	}
	if jogadorTwo.MinDirectIndications != 5 {
		t.Fatalf("expected jogador/2 min direct 5, got %d", jogadorTwo.MinDirectIndications)
	}
}

func TestGetConfigParametricFormula(t *testing.T) {
	provider, _ := setupCategoryConfigTest(t)
	ctx := context.Background()

	// profissional level 3 = 30.00 + 2 * 1.00 and 6.50 + 2 * 0.25.
	cfg := provider.GetConfig(ctx, constants.CategoryProfissional, 3)
	if !cfg.RevShareLevel1.Equal(decimal.RequireFromString("32.00")) {
		t.Fatalf("expected 32.00, got %s", cfg.RevShareLevel1)
	}
	if !cfg.RevShareLevels2to5.Equal(decimal.RequireFromString("7.00")) {
		t.Fatalf("expected 7.00, got %s", cfg.RevShareLevels2to5)
	}

	// lenda's top levels hit both caps.
	top := provider.GetConfig(ctx, constants.CategoryLenda, 90)
	if !top.RevShareLevel1.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected capped 50, got %s", top.RevShareLevel1)
	}
	if !top.RevShareLevels2to5.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected capped 10, got %s", top.RevShareLevels2to5)
	}
}

func TestGetConfigFallsBackToLowestTier(t *testing.T) {
	provider, _ := setupCategoryConfigTest(t)
	ctx := context.Background()

	lowest := provider.GetConfig(ctx, constants.CategoryJogador, 1)

	unknownCategory := provider.GetConfig(ctx, "diamante", 3)
	if unknownCategory.Category != constants.CategoryJogador || unknownCategory.Level != 1 {
		t.Fatalf("expected fallback to jogador/1, got %s/%d", unknownCategory.Category, unknownCategory.Level)
	}
	if !unknownCategory.RevShareLevel1.Equal(lowest.RevShareLevel1) {
		t.Fatalf("fallback rates differ from jogador/1")
	}

	unknownLevel := provider.GetConfig(ctx, constants.CategoryJogador, 99)
	if unknownLevel.Category != constants.CategoryJogador || unknownLevel.Level != 1 {
		t.Fatalf("expected out-of-range level to fall back, got %s/%d", unknownLevel.Category, unknownLevel.Level)
	}
}

func TestGetNextConfigOrdering(t *testing.T) {
	provider, _ := setupCategoryConfigTest(t)
	ctx := context.Background()

	withinCategory := provider.GetNextConfig(ctx, constants.CategoryJogador, 1)
	if withinCategory == nil || withinCategory.Category != constants.CategoryJogador || withinCategory.Level != 2 {
		t.Fatalf("expected jogador/2, got %+v", withinCategory)
	}

	acrossCategories := provider.GetNextConfig(ctx, constants.CategoryJogador, 5)
	if acrossCategories == nil || acrossCategories.Category != constants.CategoryIniciante || acrossCategories.Level != 1 {
		t.Fatalf("expected iniciante/1, got %+v", acrossCategories)
	}

	top := provider.GetNextConfig(ctx, constants.CategoryLenda, 90)
	if top != nil {
		t.Fatalf("expected no config past the top, got %+v", top)
	}
}

func TestUpdateTablePersistsAndOverridesDefault(t *testing.T) {
	provider, _ := setupCategoryConfigTest(t)
	ctx := context.Background()

	table := DefaultRateTable()
	jogador := table.Categories[constants.CategoryJogador]
	jogador.Levels[0].RevShareLevel1 = decimal.RequireFromString("2.50")
	table.Categories[constants.CategoryJogador] = jogador

	if err := provider.UpdateTable(ctx, table); err != nil {
		t.Fatalf("update table failed: %v", err)
	}

	cfg := provider.GetConfig(ctx, constants.CategoryJogador, 1)
	if !cfg.RevShareLevel1.Equal(decimal.RequireFromString("2.50")) {
		t.Fatalf("expected stored rate 2.50, got %s", cfg.RevShareLevel1)
	}
}

func TestUpdateTableRejectsCapViolations(t *testing.T) {
	provider, _ := setupCategoryConfigTest(t)

	table := DefaultRateTable()
	jogador := table.Categories[constants.CategoryJogador]
	jogador.Levels[0].RevShareLevels2to5 = decimal.RequireFromString("11.00")
	table.Categories[constants.CategoryJogador] = jogador

	err := provider.UpdateTable(context.Background(), table)
	if err == nil {
		t.Fatalf("expected cap violation to be rejected")
	}
}

func TestUpdateTableRejectsMissingCategory(t *testing.T) {
	provider, _ := setupCategoryConfigTest(t)

	table := DefaultRateTable()
	delete(table.Categories, constants.CategoryMestre)

	if err := provider.UpdateTable(context.Background(), table); err == nil {
		t.Fatalf("expected missing category to be rejected")
	}
}
