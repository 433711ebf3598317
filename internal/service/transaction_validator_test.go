package service

import (
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

func setupValidatorTest(t *testing.T) (*TransactionValidator, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:validator_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Transaction{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewTransactionValidator(repository.NewTransactionRepository(db)), db
}

func createValidatorTestTransaction(t *testing.T, db *gorm.DB, id, customerID uint, txType, amount, status string, createdAt time.Time) {
	t.Helper()

	row := models.Transaction{
		ID:          id,
		CustomerID:  customerID,
		AffiliateID: 1,
		Type:        txType,
		Amount:      models.NewMoney(decimal.RequireFromString(amount)),
		Status:      status,
		CreatedAt:   createdAt,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
}

func TestValidateFirstDepositQualifies(t *testing.T) {
	validator, db := setupValidatorTest(t)

	// The triggering deposit is persisted before validation runs.
	createValidatorTestTransaction(t, db, 1, 100, constants.TransactionTypeDeposit, "50.00", constants.TransactionStatusCompleted, time.Now())

	ok, err := validator.Validate(ValidationInput{
		CustomerID:      100,
		ValidationModel: constants.ValidationModelFirstDeposit,
		TransactionType: constants.TransactionTypeDeposit,
		Amount:          models.NewMoney(decimal.RequireFromString("50.00")),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected first deposit of 50.00 to qualify")
	}
}

func TestValidateFirstDepositBelowMinimum(t *testing.T) {
	validator, db := setupValidatorTest(t)

	createValidatorTestTransaction(t, db, 1, 101, constants.TransactionTypeDeposit, "49.99", constants.TransactionStatusCompleted, time.Now())

	ok, err := validator.Validate(ValidationInput{
		CustomerID:      101,
		ValidationModel: constants.ValidationModelFirstDeposit,
		TransactionType: constants.TransactionTypeDeposit,
		Amount:          models.NewMoney(decimal.RequireFromString("49.99")),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if ok {
		t.Fatalf("expected deposit below 50.00 to be rejected")
	}
}

func TestValidateFirstDepositNotFirst(t *testing.T) {
	validator, db := setupValidatorTest(t)

	createValidatorTestTransaction(t, db, 1, 102, constants.TransactionTypeDeposit, "80.00", constants.TransactionStatusCompleted, time.Now().AddDate(0, 0, -5))
	createValidatorTestTransaction(t, db, 2, 102, constants.TransactionTypeDeposit, "90.00", constants.TransactionStatusCompleted, time.Now())

	ok, err := validator.Validate(ValidationInput{
		CustomerID:      102,
		ValidationModel: constants.ValidationModelFirstDeposit,
		TransactionType: constants.TransactionTypeDeposit,
		Amount:          models.NewMoney(decimal.RequireFromString("90.00")),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if ok {
		t.Fatalf("expected second deposit to be rejected under the first-deposit model")
	}
}

func TestValidateFirstDepositWrongType(t *testing.T) {
	validator, _ := setupValidatorTest(t)

	ok, err := validator.Validate(ValidationInput{
		CustomerID:      103,
		ValidationModel: constants.ValidationModelFirstDeposit,
		TransactionType: constants.TransactionTypeBet,
		Amount:          models.NewMoney(decimal.RequireFromString("500.00")),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if ok {
		t.Fatalf("expected non-deposit to be rejected under the first-deposit model")
	}
}

func TestValidateActivityByCount(t *testing.T) {
	validator, db := setupValidatorTest(t)

	// Three completed deposits totaling 150.00: qualifies by count even
	// though volume is under 200.00.
	now := time.Now()
	createValidatorTestTransaction(t, db, 1, 104, constants.TransactionTypeDeposit, "50.00", constants.TransactionStatusCompleted, now.AddDate(0, 0, -10))
	createValidatorTestTransaction(t, db, 2, 104, constants.TransactionTypeDeposit, "50.00", constants.TransactionStatusCompleted, now.AddDate(0, 0, -5))
	createValidatorTestTransaction(t, db, 3, 104, constants.TransactionTypeDeposit, "50.00", constants.TransactionStatusCompleted, now)

	ok, err := validator.Validate(ValidationInput{
		CustomerID:      104,
		ValidationModel: constants.ValidationModelActivity,
		TransactionType: constants.TransactionTypeDeposit,
		Amount:          models.NewMoney(decimal.RequireFromString("50.00")),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected 3 transactions in the window to qualify by count")
	}
}

func TestValidateActivityByVolume(t *testing.T) {
	validator, db := setupValidatorTest(t)

	now := time.Now()
	createValidatorTestTransaction(t, db, 1, 105, constants.TransactionTypeDeposit, "120.00", constants.TransactionStatusCompleted, now.AddDate(0, 0, -3))
	createValidatorTestTransaction(t, db, 2, 105, constants.TransactionTypeBet, "80.00", constants.TransactionStatusCompleted, now)

	ok, err := validator.Validate(ValidationInput{
		CustomerID:      105,
		ValidationModel: constants.ValidationModelActivity,
		TransactionType: constants.TransactionTypeBet,
		Amount:          models.NewMoney(decimal.RequireFromString("80.00")),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected 200.00 volume in the window to qualify")
	}
}

func TestValidateActivityOutsideWindowIgnored(t *testing.T) {
	validator, db := setupValidatorTest(t)

	now := time.Now()
	// Old volume plus one fresh transaction: neither threshold holds.
	createValidatorTestTransaction(t, db, 1, 106, constants.TransactionTypeDeposit, "500.00", constants.TransactionStatusCompleted, now.AddDate(0, 0, -45))
	createValidatorTestTransaction(t, db, 2, 106, constants.TransactionTypeDeposit, "20.00", constants.TransactionStatusCompleted, now)

	ok, err := validator.Validate(ValidationInput{
		CustomerID:      106,
		ValidationModel: constants.ValidationModelActivity,
		TransactionType: constants.TransactionTypeDeposit,
		Amount:          models.NewMoney(decimal.RequireFromString("20.00")),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if ok {
		t.Fatalf("expected stale activity to be ignored")
	}
}

func TestValidateUnknownModelFailsClosed(t *testing.T) {
	validator, db := setupValidatorTest(t)

	createValidatorTestTransaction(t, db, 1, 107, constants.TransactionTypeDeposit, "500.00", constants.TransactionStatusCompleted, time.Now())

	ok, err := validator.Validate(ValidationInput{
		CustomerID:      107,
		ValidationModel: "2.0",
		TransactionType: constants.TransactionTypeDeposit,
		Amount:          models.NewMoney(decimal.RequireFromString("500.00")),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if ok {
		t.Fatalf("unknown model must be ineligible")
	}
}
