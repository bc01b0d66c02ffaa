package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestApplyPercentage(t *testing.T) {
	tests := []struct {
		cost    string
		percent int
		want    string
	}{
		{cost: "40", percent: 10, want: "36"},
		{cost: "40", percent: 0, want: "40"},
		{cost: "40", percent: 100, want: "0"},
		{cost: "10.05", percent: 50, want: "5.02"},
		{cost: "0.01", percent: 50, want: "0"},
		{cost: "19.99", percent: 15, want: "16.99"},
	}

	for _, tt := range tests {
		t.Run(tt.cost, func(t *testing.T) {
			got := ApplyPercentage(decimal.RequireFromString(tt.cost), tt.percent)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestPercentageDiscount_RoundsHalfUp(t *testing.T) {
	// 10.05 * 50% = 5.025 -> 5.03
	got := PercentageDiscount(decimal.RequireFromString("10.05"), 50)
	assert.Equal(t, "5.03", got.StringFixed(2))
}

func TestParseDonationAmount(t *testing.T) {
	valid := []string{"23.45", "0.01", "1", "100.10", " 5 "}
	for _, raw := range valid {
		t.Run("valid "+raw, func(t *testing.T) {
			_, ok := ParseDonationAmount(raw)
			assert.True(t, ok)
		})
	}

	invalid := []string{"abcd", "-1.00", "0", "0.00", "0.001", "", "1.234"}
	for _, raw := range invalid {
		t.Run("invalid "+raw, func(t *testing.T) {
			_, ok := ParseDonationAmount(raw)
			assert.False(t, ok)
		})
	}
}
