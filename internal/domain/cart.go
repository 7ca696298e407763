package domain

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrOutOfStock    = &Error{Code: ECONFLICT, Message: "Product out of stock"}
	ErrStockExceeded = &Error{Code: ECONFLICT, Message: "Requested quantity exceeds available stock"}
	ErrEmptyCart     = &Error{Code: EINVALID, Message: "Cart is empty"}
)

// CartLineItem is one line of the in-progress sale. Price, taxability and
// tax rate are snapshots taken when the line was created; later catalog
// changes do not flow into an open cart.
type CartLineItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Taxable     bool
	TaxRate     decimal.Decimal
	ImageURL    string
}

// Cart is an ordered sequence of line items. At most one line exists per
// product; adding the same product again merges into its quantity.
type Cart struct {
	Lines []CartLineItem
}

// Len returns the number of lines (not total units).
func (c Cart) Len() int {
	return len(c.Lines)
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// UnitCount returns the total units across all lines.
func (c Cart) UnitCount() int {
	n := 0
	for _, line := range c.Lines {
		n += line.Quantity
	}
	return n
}

// =============================================================================
// DISCOUNT
// =============================================================================

// DiscountKind selects how a cart-level discount amount is interpreted.
type DiscountKind string

const (
	DiscountAmount     DiscountKind = "amount"     // flat amount off the subtotal
	DiscountPercentage DiscountKind = "percentage" // percentage of the subtotal
)

// Valid reports whether k is a known discount kind.
func (k DiscountKind) Valid() bool {
	return k == DiscountAmount || k == DiscountPercentage
}

// DiscountSpec is a whole-cart discount. Amount is either a flat value or a
// percentage depending on Kind. A zero-value spec means no discount.
type DiscountSpec struct {
	Amount decimal.Decimal
	Kind   DiscountKind
}

// IsZero reports whether the spec applies no discount.
func (d DiscountSpec) IsZero() bool {
	return d.Amount.IsZero()
}

// Totals is the derived money breakdown for a cart + discount. Never stored;
// always recomputed from the cart and the active discount.
type Totals struct {
	Subtotal        decimal.Decimal
	TaxTotal        decimal.Decimal
	DiscountApplied decimal.Decimal
	// GrandTotal is clamped to zero; it never goes negative regardless of
	// discount magnitude.
	GrandTotal decimal.Decimal
}

// =============================================================================
// PAYMENT
// =============================================================================

// PaymentMethod identifies how the customer tendered payment.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentCheck  PaymentMethod = "check"
	PaymentMobile PaymentMethod = "mobile"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentCheck, PaymentMobile:
		return true
	}
	return false
}

// PaymentInput is the reconciled tender for the current sale.
type PaymentInput struct {
	Tendered decimal.Decimal
	Method   PaymentMethod
	// ChangeDue = max(0, Tendered - GrandTotal).
	ChangeDue decimal.Decimal
}
