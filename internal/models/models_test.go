package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRetryAfter(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	tests := []struct {
		name     string
		decision RateDecision
		want     int
	}{
		{name: "allowed", decision: RateDecision{Allowed: true, ResetAt: now.Add(time.Minute)}, want: 0},
		{name: "exact seconds", decision: RateDecision{ResetAt: now.Add(3 * time.Second)}, want: 3},
		{name: "rounds up", decision: RateDecision{ResetAt: now.Add(2001 * time.Millisecond)}, want: 3},
		{name: "already reset", decision: RateDecision{ResetAt: now.Add(-time.Second)}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.decision.RetryAfter(now); got != tt.want {
				t.Errorf("RetryAfter() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPriceStateChange(t *testing.T) {
	state := PriceState{
		LastPrice: decimal.RequireFromString("105"),
		PrevPrice: decimal.RequireFromString("100"),
	}
	abs, pct := state.Change()
	if !abs.Equal(decimal.NewFromInt(5)) || !pct.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected change 5 (5%%), got %s (%s%%)", abs, pct)
	}
	if state.DisplayPrice() != 105 {
		t.Errorf("Expected display price 105, got %f", state.DisplayPrice())
	}

	zero := PriceState{LastPrice: decimal.NewFromInt(1)}
	if _, pct := zero.Change(); !pct.IsZero() {
		t.Errorf("Expected zero percent with zero previous price, got %s", pct)
	}
}
