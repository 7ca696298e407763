package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cashier is the authenticated operator identity, provided externally.
// The till never manages credentials; it only attributes transactions.
type Cashier struct {
	ID   string
	Name string
}

// TransactionLine is a cart line snapshot carried on a submitted
// transaction, with its own computed subtotal, tax and total.
type TransactionLine struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Taxable     bool
	TaxRate     decimal.Decimal
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

// TransactionRecord is the outbound sale record built at checkout and
// handed to the transaction service. The till does not own its lifecycle
// after submission; ID and CreatedAt are filled from the service response.
type TransactionRecord struct {
	ID    string
	Items []TransactionLine

	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	DiscountType DiscountKind
	Tax          decimal.Decimal
	Total        decimal.Decimal

	PaymentMethod PaymentMethod
	AmountPaid    decimal.Decimal
	Change        decimal.Decimal

	Comment string
	Cashier Cashier

	// IdempotencyKey is generated per submission attempt so the backend can
	// de-duplicate a retried request.
	IdempotencyKey string

	CreatedAt time.Time
}
