package domain

import (
	"github.com/shopspring/decimal"
)

// CurrencyPrefix is the display prefix for amounts at the till boundary
// (e.g. "R123.45"). Formatting is a boundary convention only; computation
// never depends on it.
const CurrencyPrefix = "R"

// FormatAmount renders an amount with the currency prefix and exactly two
// decimal places.
func FormatAmount(amount decimal.Decimal) string {
	return CurrencyPrefix + amount.StringFixed(2)
}
