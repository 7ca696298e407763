// Package payment reconciles a tendered amount against the computed total:
// change calculation plus the pre-submission checks. Tender entry is free
// text at the till, so parsing is deliberately lenient.
package payment

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/deliverpoint/pos/internal/domain"
)

var (
	ErrInsufficientPayment = domain.Errorf(domain.EPAYMENT, "", "Amount paid is less than total")
)

// ParseTendered parses a free-text tendered amount. Empty or non-numeric
// input is zero, never an error at this layer; validation happens in
// ValidateForCheckout.
func ParseTendered(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// ChangeDue returns max(0, tendered - grand total).
func ChangeDue(totals domain.Totals, tendered decimal.Decimal) decimal.Decimal {
	change := tendered.Sub(totals.GrandTotal)
	if change.IsNegative() {
		return decimal.Zero
	}
	return change
}

// Reconcile builds the PaymentInput for the current totals and raw tender
// entry. Recomputed whenever the total or the entry changes.
func Reconcile(totals domain.Totals, tenderedRaw string, method domain.PaymentMethod) domain.PaymentInput {
	tendered := ParseTendered(tenderedRaw)
	return domain.PaymentInput{
		Tendered:  tendered,
		Method:    method,
		ChangeDue: ChangeDue(totals, tendered),
	}
}

// ValidateForCheckout runs the pre-submission checks: a sale needs at
// least one cart line and tender covering the grand total. Both checks
// happen before any submission attempt.
func ValidateForCheckout(totals domain.Totals, tendered decimal.Decimal, cartLines int) error {
	if cartLines == 0 {
		return domain.ErrEmptyCart
	}
	if tendered.LessThan(totals.GrandTotal) {
		return ErrInsufficientPayment
	}
	return nil
}
