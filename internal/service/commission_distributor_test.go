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

func setupDistributorTest(t *testing.T) (*CommissionDistributor, *gorm.DB, *MemoryEventRecorder) {
	t.Helper()

	dsn := fmt.Sprintf("file:distributor_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Affiliate{}, &models.Commission{}, &models.Setting{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	events := NewMemoryEventRecorder()
	distributor := NewCommissionDistributor(
		repository.NewAffiliateRepository(db),
		repository.NewCommissionRepository(db),
		NewCategoryConfigProvider(repository.NewSettingRepository(db), time.Minute),
		NewInactivityDecayCalculator(),
		events,
	)
	return distributor, db, events
}

func TestBasePoolTotalIsSixty(t *testing.T) {
	if !BasePoolTotal().Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected base pool 60.00, got %s", BasePoolTotal())
	}
}

func TestDistributeFiveLevelChain(t *testing.T) {
	distributor, db, events := setupDistributorTest(t)

	chainRows := createChain(t, db, 6)
	// The deepest affiliate is the source; its 5 nearest ancestors plus
	// itself exceed the payable depth, so exactly 5 records come out.
	chain := make([]models.Affiliate, 0, 5)
	for i := len(chainRows) - 1; i >= 1; i-- {
		chain = append(chain, chainRows[i])
	}

	source := chainRows[len(chainRows)-1]
	outcome, err := distributor.Distribute(context.Background(), DistributionInput{
		TransactionID:   7001,
		SourceAffiliate: &source,
		CustomerID:      700,
		ValidationModel: constants.ValidationModelFirstDeposit,
		TransactionType: constants.TransactionTypeDeposit,
		Amount:          models.NewMoney(decimal.RequireFromString("50.00")),
	}, chain)
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if len(outcome.Commissions) != 5 {
		t.Fatalf("expected 5 commissions, got %d", len(outcome.Commissions))
	}

	baseTotal := decimal.Zero
	for i, record := range outcome.Commissions {
		if record.Level != i+1 {
			t.Fatalf("expected level %d, got %d", i+1, record.Level)
		}
		baseTotal = baseTotal.Add(record.BaseAmount.Decimal)
	}
	if !baseTotal.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected base amounts to sum to 60.00, got %s", baseTotal)
	}
	if events.CountByType(constants.EventCommissionCalculated) != 5 {
		t.Fatalf("expected 5 events, got %d", events.CountByType(constants.EventCommissionCalculated))
	}
}

func TestDistributeResumesPartialRun(t *testing.T) {
	distributor, db, _ := setupDistributorTest(t)

	chainRows := createChain(t, db, 3)
	source := chainRows[2]
	chain := []models.Affiliate{chainRows[2], chainRows[1], chainRows[0]}

	// A previous run wrote levels 1 and 2 before faulting.
	input := DistributionInput{
		TransactionID:   7002,
		SourceAffiliate: &source,
		CustomerID:      701,
		ValidationModel: constants.ValidationModelFirstDeposit,
		TransactionType: constants.TransactionTypeDeposit,
		Amount:          models.NewMoney(decimal.RequireFromString("50.00")),
	}
	for level := 1; level <= 2; level++ {
		pre := models.Commission{
			AffiliateID:       chain[level-1].ID,
			SourceAffiliateID: source.ID,
			CustomerID:        701,
			TransactionID:     7002,
			Level:             level,
			ValidationModel:   constants.ValidationModelFirstDeposit,
			Status:            constants.CommissionStatusCalculated,
		}
		if err := db.Create(&pre).Error; err != nil {
			t.Fatalf("seed partial run failed: %v", err)
		}
	}

	outcome, err := distributor.Distribute(context.Background(), input, chain)
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if len(outcome.Commissions) != 1 {
		t.Fatalf("expected only the missing level, got %d records", len(outcome.Commissions))
	}
	if outcome.Commissions[0].Level != 3 {
		t.Fatalf("expected level 3 to be completed, got level %d", outcome.Commissions[0].Level)
	}

	var total int64
	if err := db.Model(&models.Commission{}).Where("transaction_id = ?", 7002).Count(&total).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 rows after resume, got %d", total)
	}
}

func TestDistributeEmptyChainNoOp(t *testing.T) {
	distributor, db, events := setupDistributorTest(t)

	rows := createChain(t, db, 1)
	outcome, err := distributor.Distribute(context.Background(), DistributionInput{
		TransactionID:   7003,
		SourceAffiliate: &rows[0],
		CustomerID:      702,
		ValidationModel: constants.ValidationModelFirstDeposit,
	}, nil)
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if len(outcome.Commissions) != 0 || !outcome.TotalDistributed.Decimal.IsZero() {
		t.Fatalf("expected no-op outcome, got %+v", outcome)
	}
	if len(events.Events()) != 0 {
		t.Fatalf("expected no events, got %d", len(events.Events()))
	}
}
