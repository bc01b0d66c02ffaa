// Package pricing holds the money arithmetic shared by carts and donations.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred     = decimal.NewFromInt(100)
	minDonation = decimal.RequireFromString("0.01")
)

// PercentageDiscount returns cost*percent/100 rounded half-up to cents.
func PercentageDiscount(cost decimal.Decimal, percent int) decimal.Decimal {
	return cost.Mul(decimal.NewFromInt(int64(percent))).Div(hundred).Round(2)
}

// ApplyPercentage returns cost reduced by PercentageDiscount.
func ApplyPercentage(cost decimal.Decimal, percent int) decimal.Decimal {
	return cost.Sub(PercentageDiscount(cost, percent))
}

// ParseDonationAmount parses a donation amount. The amount must be at least
// 0.01 and carry no more than two decimal places.
func ParseDonationAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}

	if amount.LessThan(minDonation) || !amount.Equal(amount.Round(2)) {
		return decimal.Zero, false
	}

	return amount, true
}
