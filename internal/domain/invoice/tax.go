package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

var taxRates = map[string]decimal.Decimal{
	"electronics": decimal.RequireFromString("0.18"),
	"clothing":    decimal.RequireFromString("0.12"),
	"grocery":     decimal.RequireFromString("0.05"),
}

// TaxRate returns the tax rate for a category. Matching is exact and
// case-insensitive; nil, empty and unknown categories are untaxed.
func TaxRate(category *string) decimal.Decimal {
	if category == nil {
		return decimal.Zero
	}
	if rate, ok := taxRates[strings.ToLower(*category)]; ok {
		return rate
	}
	return decimal.Zero
}
