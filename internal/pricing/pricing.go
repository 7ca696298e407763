// Package pricing computes the money breakdown for a sale: subtotal, tax,
// discount and grand total. Everything here is a pure function of the cart
// lines and the active discount; callers recompute on every read rather than
// caching results.
//
// Ordering is load-bearing and matches the transaction service: tax is
// computed on the pre-discount line subtotal, the discount is not clamped
// to the subtotal, and only the final grand total is clamped to zero.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/deliverpoint/pos/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// LineTotals returns the subtotal, tax and total for a single cart line.
// Tax applies only to taxable lines, at the line's snapshot rate, on the
// pre-discount subtotal.
func LineTotals(line domain.CartLineItem) (subtotal, tax, total decimal.Decimal) {
	subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	if line.Taxable {
		tax = subtotal.Mul(line.TaxRate).Div(hundred)
	}
	total = subtotal.Add(tax)
	return subtotal, tax, total
}

// ComputeTotals derives Totals for the whole cart under the given discount.
func ComputeTotals(lines []domain.CartLineItem, discount domain.DiscountSpec) domain.Totals {
	var subtotal, taxTotal decimal.Decimal

	for _, line := range lines {
		lineSubtotal, lineTax, _ := LineTotals(line)
		subtotal = subtotal.Add(lineSubtotal)
		taxTotal = taxTotal.Add(lineTax)
	}

	var discountApplied decimal.Decimal
	if discount.Amount.IsPositive() {
		if discount.Kind == domain.DiscountPercentage {
			discountApplied = subtotal.Mul(discount.Amount).Div(hundred)
		} else {
			discountApplied = discount.Amount
		}
	}

	grand := subtotal.Sub(discountApplied).Add(taxTotal)
	if grand.IsNegative() {
		grand = decimal.Zero
	}

	return domain.Totals{
		Subtotal:        subtotal,
		TaxTotal:        taxTotal,
		DiscountApplied: discountApplied,
		GrandTotal:      grand,
	}
}
