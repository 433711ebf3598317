package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decay tiers, steepest first.
var (
	decayOver90Days = decimal.NewFromInt(50)
	decayOver60Days = decimal.NewFromInt(30)
	decayOver30Days = decimal.NewFromInt(15)
)

// InactivityDecayCalculator maps days since an affiliate's last activity to
// a commission reduction percentage.
type InactivityDecayCalculator struct{}

// NewInactivityDecayCalculator creates the calculator.
func NewInactivityDecayCalculator() *InactivityDecayCalculator {
	return &InactivityDecayCalculator{}
}

// DecayFor returns the reduction percentage, one of 0, 15, 30 or 50. An
// affiliate with no recorded activity yet takes no decay; decay punishes
// going quiet, not being new.
func (c *InactivityDecayCalculator) DecayFor(lastActivityAt *time.Time, now time.Time) decimal.Decimal {
	if lastActivityAt == nil || lastActivityAt.IsZero() {
		return decimal.Zero
	}
	days := now.Sub(*lastActivityAt).Hours() / 24
	switch {
	case days > 90:
		return decayOver90Days
	case days > 60:
		return decayOver60Days
	case days > 30:
		return decayOver30Days
	default:
		return decimal.Zero
	}
}

// Apply reduces an amount by the decay percentage:
// final = amount * (1 - decay/100).
func (c *InactivityDecayCalculator) Apply(amount, decayPercent decimal.Decimal) decimal.Decimal {
	if decayPercent.IsZero() {
		return amount
	}
	factor := decimal.NewFromInt(1).Sub(decayPercent.Div(decimal.NewFromInt(100)))
	return amount.Mul(factor)
}
