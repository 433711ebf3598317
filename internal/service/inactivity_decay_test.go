package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDecayForTiers(t *testing.T) {
	calc := NewInactivityDecayCalculator()
	now := time.Now()

	cases := []struct {
		daysAgo  int
		expected int64
	}{
		{0, 0},
		{15, 0},
		{30, 0},
		{31, 15},
		{45, 15},
		{60, 15},
		{61, 30},
		{90, 30},
		{91, 50},
		{365, 50},
	}
	for _, tc := range cases {
		lastActivity := now.AddDate(0, 0, -tc.daysAgo)
		got := calc.DecayFor(&lastActivity, now)
		if !got.Equal(decimal.NewFromInt(tc.expected)) {
			t.Fatalf("days=%d: expected decay %d, got %s", tc.daysAgo, tc.expected, got)
		}
	}
}

func TestDecayForIsMonotonic(t *testing.T) {
	calc := NewInactivityDecayCalculator()
	now := time.Now()

	previous := decimal.Zero
	for days := 0; days <= 200; days++ {
		lastActivity := now.AddDate(0, 0, -days)
		got := calc.DecayFor(&lastActivity, now)
		if got.LessThan(previous) {
			t.Fatalf("decay decreased at day %d: %s < %s", days, got, previous)
		}
		previous = got
	}
}

func TestDecayForNoActivityRecorded(t *testing.T) {
	calc := NewInactivityDecayCalculator()

	if got := calc.DecayFor(nil, time.Now()); !got.IsZero() {
		t.Fatalf("expected no decay without an activity stamp, got %s", got)
	}
}

func TestApplyDecay(t *testing.T) {
	calc := NewInactivityDecayCalculator()

	amount := decimal.RequireFromString("0.35")
	halved := calc.Apply(amount, decimal.NewFromInt(50))
	if !halved.Equal(decimal.RequireFromString("0.175")) {
		t.Fatalf("expected 0.175, got %s", halved)
	}

	untouched := calc.Apply(amount, decimal.Zero)
	if !untouched.Equal(amount) {
		t.Fatalf("expected amount unchanged, got %s", untouched)
	}
}
