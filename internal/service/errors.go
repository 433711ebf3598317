package service

import (
	"errors"
	"strings"
)

var (
	// ErrAffiliateNotFound is returned when a referenced affiliate does not exist.
	ErrAffiliateNotFound = errors.New("affiliate not found")
	// ErrAffiliateDisabled is returned when a disabled affiliate is used as a parent.
	ErrAffiliateDisabled = errors.New("affiliate disabled")
	// ErrReferralCodeNotFound is returned when a referral code resolves to nothing.
	ErrReferralCodeNotFound = errors.New("referral code not found")
	// ErrReferralCodeExhausted is returned when code generation keeps colliding.
	ErrReferralCodeExhausted = errors.New("referral code generation exhausted")
	// ErrTransactionNotFound is returned when a referenced transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrRateTableInvalid is returned when an uploaded rate table fails validation.
	ErrRateTableInvalid = errors.New("rate table invalid")
	// ErrInvalidInput is returned on malformed service input.
	ErrInvalidInput = errors.New("invalid input")
)

// isUniqueViolation reports whether err is a duplicate-key insert failure.
// Both sqlite and postgres are matched; the unique index is the authoritative
// idempotency guard so this is checked on every guarded insert.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "Duplicate entry")
}
