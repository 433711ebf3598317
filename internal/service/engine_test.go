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

func setupEngineTest(t *testing.T) (*Engine, *gorm.DB, *MemoryEventRecorder) {
	t.Helper()

	dsn := fmt.Sprintf("file:engine_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Affiliate{},
		&models.Transaction{},
		&models.Commission{},
		&models.Indication{},
		&models.Setting{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	affiliateRepo := repository.NewAffiliateRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	indicationRepo := repository.NewIndicationRepository(db)

	events := NewMemoryEventRecorder()
	configs := NewCategoryConfigProvider(repository.NewSettingRepository(db), time.Minute)
	decay := NewInactivityDecayCalculator()

	engine := NewEngine(
		affiliateRepo,
		transactionRepo,
		NewTransactionValidator(transactionRepo),
		NewHierarchyResolver(affiliateRepo, DefaultMaxHierarchyDepth),
		NewCommissionDistributor(affiliateRepo, commissionRepo, configs, decay, events),
		NewIndicationBonusProcessor(affiliateRepo, indicationRepo, events),
		NewProgressionEvaluator(affiliateRepo, configs, events),
		NewAuditService(repository.NewAuditLogRepository(db)),
	)
	return engine, db, events
}

func createEngineTestAffiliate(t *testing.T, db *gorm.DB, code string, parentID *uint, category string, level int) models.Affiliate {
	t.Helper()

	row := models.Affiliate{
		ReferralCode:  code,
		ParentID:      parentID,
		Category:      category,
		CategoryLevel: level,
		Status:        constants.AffiliateStatusActive,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	return row
}

func reloadEngineTestAffiliate(t *testing.T, db *gorm.DB, id uint) models.Affiliate {
	t.Helper()

	var row models.Affiliate
	if err := db.First(&row, id).Error; err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	return row
}

func firstDepositInput(transactionID, affiliateID, customerID uint, amount string) ProcessInput {
	return ProcessInput{
		TransactionID:   transactionID,
		AffiliateID:     affiliateID,
		CustomerID:      customerID,
		ValidationModel: constants.ValidationModelFirstDeposit,
		TransactionType: constants.TransactionTypeDeposit,
		Amount:          models.NewMoney(decimal.RequireFromString(amount)),
	}
}

func TestProcessTransactionFirstDepositTwoLevels(t *testing.T) {
	engine, db, events := setupEngineTest(t)

	parent := createEngineTestAffiliate(t, db, "ENGPAR01", nil, constants.CategoryJogador, 2)
	source := createEngineTestAffiliate(t, db, "ENGSRC01", &parent.ID, constants.CategoryJogador, 1)

	result, err := engine.ProcessTransaction(context.Background(), firstDepositInput(1001, source.ID, 501, "50.00"))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !result.ValidationPassed {
		t.Fatalf("expected validation to pass")
	}
	if len(result.Commissions) != 2 {
		t.Fatalf("expected 2 commissions, got %d", len(result.Commissions))
	}

	// Level 1: 35.00 at jogador/1's 1% = 0.35.
	levelOne := result.Commissions[0]
	if levelOne.AffiliateID != source.ID || levelOne.Level != 1 {
		t.Fatalf("unexpected level-1 record: %+v", levelOne)
	}
	if !levelOne.FinalAmount.Decimal.Equal(decimal.RequireFromString("0.35")) {
		t.Fatalf("expected level-1 final 0.35, got %s", levelOne.FinalAmount)
	}

	// Level 2: 10.00 at jogador/2's 3% = 0.30.
	levelTwo := result.Commissions[1]
	if levelTwo.AffiliateID != parent.ID || levelTwo.Level != 2 {
		t.Fatalf("unexpected level-2 record: %+v", levelTwo)
	}
	if !levelTwo.FinalAmount.Decimal.Equal(decimal.RequireFromString("0.30")) {
		t.Fatalf("expected level-2 final 0.30, got %s", levelTwo.FinalAmount)
	}

	if !result.TotalDistributed.Decimal.Equal(decimal.RequireFromString("0.65")) {
		t.Fatalf("expected total 0.65, got %s", result.TotalDistributed)
	}

	if !result.BonusTriggered {
		t.Fatalf("expected indication bonus")
	}
	if !result.BonusAmount.Decimal.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("expected bonus 5.00, got %s", result.BonusAmount)
	}

	reloadedSource := reloadEngineTestAffiliate(t, db, source.ID)
	if !reloadedSource.AvailableBalance.Decimal.Equal(decimal.RequireFromString("5.35")) {
		t.Fatalf("expected source balance 5.35, got %s", reloadedSource.AvailableBalance)
	}
	if !reloadedSource.TotalCommissions.Decimal.Equal(decimal.RequireFromString("0.35")) {
		t.Fatalf("expected source total commissions 0.35, got %s", reloadedSource.TotalCommissions)
	}
	if reloadedSource.DirectIndications != 1 || reloadedSource.TotalIndications != 1 {
		t.Fatalf("expected source indication counters 1/1, got %d/%d",
			reloadedSource.DirectIndications, reloadedSource.TotalIndications)
	}
	if reloadedSource.LastActivityAt == nil {
		t.Fatalf("expected source activity stamp")
	}

	reloadedParent := reloadEngineTestAffiliate(t, db, parent.ID)
	if !reloadedParent.AvailableBalance.Decimal.Equal(decimal.RequireFromString("0.30")) {
		t.Fatalf("expected parent balance 0.30, got %s", reloadedParent.AvailableBalance)
	}
	if reloadedParent.TotalIndications != 1 || reloadedParent.DirectIndications != 0 {
		t.Fatalf("expected parent counters 0/1, got %d/%d",
			reloadedParent.DirectIndications, reloadedParent.TotalIndications)
	}

	if events.CountByType(constants.EventCommissionCalculated) != 2 {
		t.Fatalf("expected 2 commission events, got %d", events.CountByType(constants.EventCommissionCalculated))
	}
	if events.CountByType(constants.EventIndicationValidated) != 1 {
		t.Fatalf("expected 1 indication event, got %d", events.CountByType(constants.EventIndicationValidated))
	}
}

func TestProcessTransactionInactiveAncestorDecayed(t *testing.T) {
	engine, db, _ := setupEngineTest(t)

	source := createEngineTestAffiliate(t, db, "ENGDCY01", nil, constants.CategoryJogador, 1)
	inactiveSince := time.Now().AddDate(0, 0, -95)
	if err := db.Model(&models.Affiliate{}).
		Where("id = ?", source.ID).
		Update("last_activity_at", inactiveSince).Error; err != nil {
		t.Fatalf("set activity failed: %v", err)
	}

	result, err := engine.ProcessTransaction(context.Background(), firstDepositInput(2001, source.ID, 502, "50.00"))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(result.Commissions) != 1 {
		t.Fatalf("expected 1 commission, got %d", len(result.Commissions))
	}

	// 0.35 halved by the 50% decay tier.
	record := result.Commissions[0]
	if !record.CommissionAmount.Decimal.Equal(decimal.RequireFromString("0.35")) {
		t.Fatalf("expected pre-decay 0.35, got %s", record.CommissionAmount)
	}
	if !record.FinalAmount.Decimal.Equal(decimal.RequireFromString("0.175")) {
		t.Fatalf("expected post-decay 0.175, got %s", record.FinalAmount)
	}
}

func TestProcessTransactionRerunIsNoOp(t *testing.T) {
	engine, db, events := setupEngineTest(t)

	parent := createEngineTestAffiliate(t, db, "ENGRRN01", nil, constants.CategoryJogador, 2)
	source := createEngineTestAffiliate(t, db, "ENGRRN02", &parent.ID, constants.CategoryJogador, 1)

	input := firstDepositInput(3001, source.ID, 503, "50.00")
	if _, err := engine.ProcessTransaction(context.Background(), input); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	balanceAfterFirst := reloadEngineTestAffiliate(t, db, source.ID).AvailableBalance
	volumeAfterFirst := reloadEngineTestAffiliate(t, db, source.ID).CurrentMonthVolume

	rerun, err := engine.ProcessTransaction(context.Background(), input)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if len(rerun.Commissions) != 0 {
		t.Fatalf("expected no new commissions on rerun, got %d", len(rerun.Commissions))
	}
	if !rerun.TotalDistributed.Decimal.IsZero() {
		t.Fatalf("expected zero redistribution, got %s", rerun.TotalDistributed)
	}
	if rerun.BonusTriggered {
		t.Fatalf("expected no second bonus")
	}

	var commissionCount int64
	if err := db.Model(&models.Commission{}).Where("transaction_id = ?", 3001).Count(&commissionCount).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if commissionCount != 2 {
		t.Fatalf("expected 2 commission rows total, got %d", commissionCount)
	}

	reloaded := reloadEngineTestAffiliate(t, db, source.ID)
	if !reloaded.AvailableBalance.Decimal.Equal(balanceAfterFirst.Decimal) {
		t.Fatalf("expected balance unchanged %s, got %s", balanceAfterFirst, reloaded.AvailableBalance)
	}
	if !reloaded.CurrentMonthVolume.Decimal.Equal(volumeAfterFirst.Decimal) {
		t.Fatalf("expected month volume unchanged %s, got %s", volumeAfterFirst, reloaded.CurrentMonthVolume)
	}

	if events.CountByType(constants.EventCommissionCalculated) != 2 {
		t.Fatalf("expected events only from first run, got %d", events.CountByType(constants.EventCommissionCalculated))
	}
}

func TestProcessTransactionUnknownModelIneligible(t *testing.T) {
	engine, db, _ := setupEngineTest(t)

	source := createEngineTestAffiliate(t, db, "ENGUNK01", nil, constants.CategoryJogador, 1)

	input := firstDepositInput(4001, source.ID, 504, "50.00")
	input.ValidationModel = "9.9"
	result, err := engine.ProcessTransaction(context.Background(), input)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.ValidationPassed {
		t.Fatalf("unknown model must fail closed")
	}
	if len(result.Commissions) != 0 || result.BonusTriggered {
		t.Fatalf("expected no side effects, got %+v", result)
	}
}

func TestProcessTransactionDisabledSourceSkipped(t *testing.T) {
	engine, db, _ := setupEngineTest(t)

	source := createEngineTestAffiliate(t, db, "ENGDIS01", nil, constants.CategoryJogador, 1)
	if err := db.Model(&models.Affiliate{}).
		Where("id = ?", source.ID).
		Update("status", constants.AffiliateStatusDisabled).Error; err != nil {
		t.Fatalf("disable affiliate failed: %v", err)
	}

	result, err := engine.ProcessTransaction(context.Background(), firstDepositInput(5001, source.ID, 505, "50.00"))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.ValidationPassed || len(result.Commissions) != 0 {
		t.Fatalf("expected disabled source to be skipped, got %+v", result)
	}
}

func TestProcessTransactionMissingAffiliateFails(t *testing.T) {
	engine, _, _ := setupEngineTest(t)

	_, err := engine.ProcessTransaction(context.Background(), firstDepositInput(6001, 999999, 506, "50.00"))
	if err != ErrAffiliateNotFound {
		t.Fatalf("expected ErrAffiliateNotFound, got %v", err)
	}
}
