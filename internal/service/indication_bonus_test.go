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

func setupBonusTest(t *testing.T) (*IndicationBonusProcessor, *gorm.DB, *MemoryEventRecorder) {
	t.Helper()

	dsn := fmt.Sprintf("file:bonus_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Affiliate{}, &models.Indication{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	events := NewMemoryEventRecorder()
	processor := NewIndicationBonusProcessor(
		repository.NewAffiliateRepository(db),
		repository.NewIndicationRepository(db),
		events,
	)
	return processor, db, events
}

func TestProcessAwardsBonusOnce(t *testing.T) {
	processor, db, events := setupBonusTest(t)

	rows := createChain(t, db, 2)
	chain := []models.Affiliate{rows[1], rows[0]}

	first, err := processor.Process(context.Background(), chain, 900)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !first.BonusTriggered {
		t.Fatalf("expected bonus on first validation")
	}
	if !first.BonusAmount.Decimal.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("expected bonus 5.00, got %s", first.BonusAmount)
	}

	second, err := processor.Process(context.Background(), chain, 900)
	if err != nil {
		t.Fatalf("second process failed: %v", err)
	}
	if second.BonusTriggered {
		t.Fatalf("expected no bonus for the same pair")
	}

	source := reloadEngineTestAffiliate(t, db, rows[1].ID)
	if !source.AvailableBalance.Decimal.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("expected balance 5.00 after both runs, got %s", source.AvailableBalance)
	}
	if source.DirectIndications != 1 || source.TotalIndications != 1 {
		t.Fatalf("expected counters 1/1, got %d/%d", source.DirectIndications, source.TotalIndications)
	}
	if events.CountByType(constants.EventIndicationValidated) != 1 {
		t.Fatalf("expected a single event, got %d", events.CountByType(constants.EventIndicationValidated))
	}
}

func TestProcessPropagatesTotalIndications(t *testing.T) {
	processor, db, _ := setupBonusTest(t)

	rows := createChain(t, db, 3)
	chain := []models.Affiliate{rows[2], rows[1], rows[0]}

	if _, err := processor.Process(context.Background(), chain, 901); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	source := reloadEngineTestAffiliate(t, db, rows[2].ID)
	if source.DirectIndications != 1 || source.TotalIndications != 1 {
		t.Fatalf("source counters wrong: %d/%d", source.DirectIndications, source.TotalIndications)
	}
	for _, ancestorID := range []uint{rows[1].ID, rows[0].ID} {
		ancestor := reloadEngineTestAffiliate(t, db, ancestorID)
		if ancestor.DirectIndications != 0 {
			t.Fatalf("ancestor %d gained a direct indication", ancestorID)
		}
		if ancestor.TotalIndications != 1 {
			t.Fatalf("ancestor %d missing total indication, got %d", ancestorID, ancestor.TotalIndications)
		}
	}
}

func TestProcessSameSourceDifferentCustomers(t *testing.T) {
	processor, db, _ := setupBonusTest(t)

	rows := createChain(t, db, 1)
	chain := []models.Affiliate{rows[0]}

	for _, customerID := range []uint{902, 903, 904} {
		outcome, err := processor.Process(context.Background(), chain, customerID)
		if err != nil {
			t.Fatalf("process customer %d failed: %v", customerID, err)
		}
		if !outcome.BonusTriggered {
			t.Fatalf("expected bonus for customer %d", customerID)
		}
	}

	source := reloadEngineTestAffiliate(t, db, rows[0].ID)
	if source.DirectIndications != 3 {
		t.Fatalf("expected 3 direct indications, got %d", source.DirectIndications)
	}
	if !source.AvailableBalance.Decimal.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("expected balance 15.00, got %s", source.AvailableBalance)
	}
}
