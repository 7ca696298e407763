// Package checkout owns the sale lifecycle: collecting tender, building
// the transaction record, and submitting it to the backend exactly once.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/deliverpoint/pos/internal/cart"
	"github.com/deliverpoint/pos/internal/domain"
	"github.com/deliverpoint/pos/internal/payment"
	"github.com/deliverpoint/pos/internal/pricing"
	"github.com/deliverpoint/pos/internal/telemetry"
)

// State is where the current sale sits in its lifecycle.
type State string

const (
	// StateIdle means the cashier is ringing items up.
	StateIdle State = "idle"
	// StateAwaitingPayment means the payment panel is open and tender
	// is being collected.
	StateAwaitingPayment State = "awaiting_payment"
	// StateSubmitting means a checkout attempt is on the wire.
	StateSubmitting State = "submitting"
)

var (
	// ErrCheckoutInFlight rejects a second attempt while one is on the
	// wire. The in-flight attempt settles the sale either way.
	ErrCheckoutInFlight = &domain.Error{
		Code:    domain.ECONFLICT,
		Message: "A checkout is already in progress",
	}

	// ErrNoSaleInProgress rejects checkout before payment collection
	// has started.
	ErrNoSaleInProgress = &domain.Error{
		Code:    domain.EINVALID,
		Message: "No payment is being collected",
	}

	// ErrSubmissionFailed wraps a backend failure during checkout. The
	// cart and tender survive so the cashier can retry.
	ErrSubmissionFailed = &domain.Error{
		Code:    domain.EUNAVAILABLE,
		Message: "Transaction could not be recorded",
	}
)

// Submitter records a completed sale with the backend.
type Submitter interface {
	Create(ctx context.Context, rec domain.TransactionRecord) (*domain.TransactionRecord, error)
}

// Coordinator drives one sale at a time for a single till. All methods
// are safe for concurrent use; the network call in Checkout happens
// outside the lock so setters stay responsive.
type Coordinator struct {
	mu          sync.Mutex
	state       State
	store       *cart.Store
	discount    domain.DiscountSpec
	comment     string
	tenderedRaw string
	method      domain.PaymentMethod

	// inflight keys the submission on the wire to the cart generation it
	// was built from; zero when nothing is on the wire.
	inflight uint64

	cashier   domain.Cashier
	submitter Submitter
	logger    *slog.Logger
	metrics   *telemetry.BusinessMetrics
}

// Options configures a Coordinator.
type Options struct {
	Cashier domain.Cashier
	Logger  *slog.Logger
	Metrics *telemetry.BusinessMetrics // optional
}

// New creates a Coordinator over the given cart.
func New(store *cart.Store, submitter Submitter, opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		state:     StateIdle,
		store:     store,
		method:    domain.PaymentCash,
		cashier:   opts.Cashier,
		submitter: submitter,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// State reports the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetDiscount replaces the sale-level discount.
func (c *Coordinator) SetDiscount(spec domain.DiscountSpec) error {
	if spec.Kind == "" {
		spec.Kind = domain.DiscountAmount
	}
	if !spec.Kind.Valid() {
		return domain.Invalid("checkout.set_discount", fmt.Sprintf("unknown discount type %q", spec.Kind))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.discount = spec
	return nil
}

// Discount returns the current discount.
func (c *Coordinator) Discount() domain.DiscountSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discount
}

// SetComment attaches a free-text note to the sale.
func (c *Coordinator) SetComment(comment string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.comment = strings.TrimSpace(comment)
}

// Comment returns the sale note.
func (c *Coordinator) Comment() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.comment
}

// SetTendered records the amount-paid entry as typed. Parsing is
// deferred so a half-typed value never errors.
func (c *Coordinator) SetTendered(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenderedRaw = raw
}

// SetPaymentMethod selects how the customer is paying.
func (c *Coordinator) SetPaymentMethod(method domain.PaymentMethod) error {
	if !method.Valid() {
		return domain.Invalid("checkout.set_payment_method", fmt.Sprintf("unknown payment method %q", method))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.method = method
	return nil
}

// Totals recomputes the sale totals from the live cart and discount.
func (c *Coordinator) Totals() domain.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pricing.ComputeTotals(c.store.Lines(), c.discount)
}

// Payment reports the tender as currently entered, with change due.
func (c *Coordinator) Payment() domain.PaymentInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	totals := pricing.ComputeTotals(c.store.Lines(), c.discount)
	return payment.Reconcile(totals, c.tenderedRaw, c.method)
}

// BeginPayment opens payment collection. The cart must have at least
// one line.
func (c *Coordinator) BeginPayment() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != 0 {
		return ErrCheckoutInFlight
	}
	if c.state == StateAwaitingPayment {
		return nil
	}
	if c.store.IsEmpty() {
		return domain.ErrEmptyCart
	}
	c.state = StateAwaitingPayment
	return nil
}

// CancelPayment returns to ringing up items. The cart, discount and
// comment are kept; the tender entry is dropped.
func (c *Coordinator) CancelPayment() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != 0 {
		return ErrCheckoutInFlight
	}
	c.state = StateIdle
	c.tenderedRaw = ""
	return nil
}

// ClearSale abandons the sale: cart, discount, comment and tender all
// reset.
func (c *Coordinator) ClearSale() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != 0 {
		return ErrCheckoutInFlight
	}
	c.resetLocked()
	if c.metrics != nil {
		c.metrics.CartCleared.Inc()
	}
	return nil
}

// Checkout validates the sale, submits it, and settles the till. On
// success the sale resets; on failure everything is kept for a retry.
func (c *Coordinator) Checkout(ctx context.Context) (*domain.TransactionRecord, error) {
	c.mu.Lock()

	if c.inflight != 0 {
		c.mu.Unlock()
		return nil, ErrCheckoutInFlight
	}
	if c.state != StateAwaitingPayment {
		c.mu.Unlock()
		return nil, ErrNoSaleInProgress
	}

	lines := c.store.Lines()
	totals := pricing.ComputeTotals(lines, c.discount)
	tendered := payment.ParseTendered(c.tenderedRaw)

	if err := payment.ValidateForCheckout(totals, tendered, len(lines)); err != nil {
		c.mu.Unlock()
		c.recordFailure(err)
		return nil, err
	}

	rec := c.buildRecordLocked(lines, totals, tendered)
	gen := c.store.Generation()
	c.inflight = gen
	c.state = StateSubmitting
	c.mu.Unlock()

	c.logger.Info("submitting transaction",
		"idempotency_key", rec.IdempotencyKey,
		"cart_generation", gen,
		"total", rec.Total,
		"payment_method", rec.PaymentMethod,
		"lines", len(rec.Items),
	)
	created, err := c.submitter.Create(ctx, rec)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight = 0

	if err != nil {
		c.state = StateAwaitingPayment
		c.logger.Error("transaction submission failed",
			"idempotency_key", rec.IdempotencyKey,
			"error", err,
		)
		telemetry.CaptureError(err, map[string]interface{}{
			"idempotency_key": rec.IdempotencyKey,
			"total":           rec.Total.String(),
		})
		if c.metrics != nil {
			c.metrics.SalesFailed.WithLabelValues("submission").Inc()
		}
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	c.logger.Info("transaction recorded",
		"transaction_id", created.ID,
		"total", created.Total,
		"change", rec.Change,
	)
	if c.metrics != nil {
		c.metrics.SalesCompleted.WithLabelValues(string(rec.PaymentMethod)).Inc()
		c.metrics.SaleValue.Observe(rec.Total.InexactFloat64())
		c.metrics.SaleItemCount.Observe(float64(unitCount(rec.Items)))
		c.metrics.ChangeGiven.Add(rec.Change.InexactFloat64())
		if rec.Discount.IsPositive() {
			c.metrics.DiscountsGiven.WithLabelValues(string(rec.DiscountType)).Inc()
		}
	}
	c.resetLocked()
	return created, nil
}

// buildRecordLocked assembles the wire-ready record from a consistent
// snapshot. Caller holds the lock.
func (c *Coordinator) buildRecordLocked(lines []domain.CartLineItem, totals domain.Totals, tendered decimal.Decimal) domain.TransactionRecord {
	items := make([]domain.TransactionLine, 0, len(lines))
	for _, line := range lines {
		subtotal, tax, total := pricing.LineTotals(line)
		items = append(items, domain.TransactionLine{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Taxable:     line.Taxable,
			TaxRate:     line.TaxRate,
			Subtotal:    subtotal,
			Tax:         tax,
			Total:       total,
		})
	}

	discountKind := c.discount.Kind
	if discountKind == "" {
		discountKind = domain.DiscountAmount
	}

	return domain.TransactionRecord{
		Items:          items,
		Subtotal:       totals.Subtotal,
		Discount:       c.discount.Amount,
		DiscountType:   discountKind,
		Tax:            totals.TaxTotal,
		Total:          totals.GrandTotal,
		PaymentMethod:  c.method,
		AmountPaid:     tendered,
		Change:         payment.ChangeDue(totals, tendered),
		Comment:        c.comment,
		Cashier:        c.cashier,
		IdempotencyKey: uuid.NewString(),
	}
}

// resetLocked restores the till to a fresh sale. Caller holds the lock.
func (c *Coordinator) resetLocked() {
	c.store.Clear()
	c.discount = domain.DiscountSpec{}
	c.comment = ""
	c.tenderedRaw = ""
	c.method = domain.PaymentCash
	c.state = StateIdle
}

func (c *Coordinator) recordFailure(err error) {
	if c.metrics == nil {
		return
	}
	switch {
	case domain.IsCode(err, domain.EINVALID):
		c.metrics.SalesFailed.WithLabelValues("empty_cart").Inc()
	case domain.IsCode(err, domain.EPAYMENT):
		c.metrics.SalesFailed.WithLabelValues("insufficient_payment").Inc()
	default:
		c.metrics.SalesFailed.WithLabelValues("other").Inc()
	}
}

func unitCount(items []domain.TransactionLine) int {
	var n int
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
