package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/deliverpoint/pos/internal/cart"
	"github.com/deliverpoint/pos/internal/catalog"
	"github.com/deliverpoint/pos/internal/checkout"
	"github.com/deliverpoint/pos/internal/domain"
	"github.com/deliverpoint/pos/internal/posapi"
	"github.com/deliverpoint/pos/internal/pricing"
	"github.com/deliverpoint/pos/internal/router"
	"github.com/deliverpoint/pos/internal/telemetry"
	"github.com/deliverpoint/pos/internal/validate"
)

// ProductBackend covers the catalog reads the till makes on demand
// rather than from its refreshed snapshot.
type ProductBackend interface {
	GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

// TransactionLister reads sale history from the backend.
type TransactionLister interface {
	List(ctx context.Context, params posapi.ListTransactionsParams) ([]domain.TransactionRecord, error)
}

// TillHandler serves the till's JSON API: catalog browsing, the cart,
// and the sale lifecycle.
type TillHandler struct {
	browser      *catalog.Browser
	store        *cart.Store
	checkout     *checkout.Coordinator
	products     ProductBackend
	transactions TransactionLister
	logger       *slog.Logger
	metrics      *telemetry.BusinessMetrics
}

// NewTillHandler creates the till handler.
func NewTillHandler(
	browser *catalog.Browser,
	store *cart.Store,
	coordinator *checkout.Coordinator,
	products ProductBackend,
	transactions TransactionLister,
	logger *slog.Logger,
	metrics *telemetry.BusinessMetrics,
) *TillHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TillHandler{
		browser:      browser,
		store:        store,
		checkout:     coordinator,
		products:     products,
		transactions: transactions,
		logger:       logger,
		metrics:      metrics,
	}
}

// RegisterRoutes attaches every till route to the router.
func (h *TillHandler) RegisterRoutes(r *router.Router) {
	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/categories", h.ListCategories)
	r.Get("/api/products/barcode/{code}", h.ScanBarcode)
	r.Post("/api/catalog/refresh", h.RefreshCatalog)

	r.Get("/api/cart", h.GetCart)
	r.Post("/api/cart/items", h.AddItem)
	r.Patch("/api/cart/items/{productId}", h.UpdateQuantity)
	r.Delete("/api/cart/items/{productId}", h.RemoveItem)
	r.Delete("/api/cart", h.ClearSale)

	r.Put("/api/sale/discount", h.SetDiscount)
	r.Put("/api/sale/comment", h.SetComment)
	r.Put("/api/sale/payment", h.CollectPayment)
	r.Delete("/api/sale/payment", h.CancelPayment)
	r.Post("/api/checkout", h.Checkout)

	r.Get("/api/transactions", h.ListTransactions)
}

// ============================================================================
// Views
// ============================================================================

type productView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Barcode  string `json:"barcode,omitempty"`
	Category string `json:"category"`
	Price    string `json:"price"`
	Display  string `json:"priceDisplay"`
	Stock    int    `json:"stock"`
	Taxable  bool   `json:"taxable"`
	TaxRate  string `json:"taxRate"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func toProductView(p domain.Product) productView {
	return productView{
		ID:       p.ID,
		Name:     p.Name,
		SKU:      p.SKU,
		Barcode:  p.Barcode,
		Category: p.Category,
		Price:    p.Price.StringFixed(2),
		Display:  domain.FormatAmount(p.Price),
		Stock:    p.Stock,
		Taxable:  p.Taxable,
		TaxRate:  p.TaxRate.String(),
		ImageURL: p.ImageURL,
	}
}

type lineView struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Taxable     bool   `json:"taxable"`
	TaxRate     string `json:"taxRate"`
	Subtotal    string `json:"subtotal"`
	Tax         string `json:"tax"`
	Total       string `json:"total"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type totalsView struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
	Display  string `json:"totalDisplay"`
}

func toTotalsView(t domain.Totals) totalsView {
	return totalsView{
		Subtotal: t.Subtotal.StringFixed(2),
		Tax:      t.TaxTotal.StringFixed(2),
		Discount: t.DiscountApplied.StringFixed(2),
		Total:    t.GrandTotal.StringFixed(2),
		Display:  domain.FormatAmount(t.GrandTotal),
	}
}

type paymentView struct {
	Tendered  string `json:"amountPaid"`
	Method    string `json:"paymentMethod"`
	ChangeDue string `json:"changeDue"`
	Display   string `json:"changeDueDisplay"`
}

type cartView struct {
	Items     []lineView  `json:"items"`
	UnitCount int         `json:"unitCount"`
	Totals    totalsView  `json:"totals"`
	Payment   paymentView `json:"payment"`
	Comment   string      `json:"comment,omitempty"`
	State     string      `json:"state"`
}

func (h *TillHandler) cartView() cartView {
	lines := h.store.Lines()
	items := make([]lineView, 0, len(lines))
	for _, line := range lines {
		subtotal, tax, total := pricing.LineTotals(line)
		items = append(items, lineView{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.StringFixed(2),
			Taxable:     line.Taxable,
			TaxRate:     line.TaxRate.String(),
			Subtotal:    subtotal.StringFixed(2),
			Tax:         tax.StringFixed(2),
			Total:       total.StringFixed(2),
			ImageURL:    line.ImageURL,
		})
	}

	pay := h.checkout.Payment()
	return cartView{
		Items:     items,
		UnitCount: h.store.UnitCount(),
		Totals:    toTotalsView(h.checkout.Totals()),
		Payment: paymentView{
			Tendered:  pay.Tendered.StringFixed(2),
			Method:    string(pay.Method),
			ChangeDue: pay.ChangeDue.StringFixed(2),
			Display:   domain.FormatAmount(pay.ChangeDue),
		},
		Comment: h.checkout.Comment(),
		State:   string(h.checkout.State()),
	}
}

type transactionView struct {
	ID            string `json:"id"`
	Subtotal      string `json:"subtotal"`
	Discount      string `json:"discount"`
	DiscountType  string `json:"discountType"`
	Tax           string `json:"tax"`
	Total         string `json:"total"`
	Display       string `json:"totalDisplay"`
	PaymentMethod string `json:"paymentMethod"`
	AmountPaid    string `json:"amountPaid"`
	Change        string `json:"change"`
	Comment       string `json:"comment,omitempty"`
	ItemCount     int    `json:"itemCount"`
	CreatedAt     string `json:"createdAt,omitempty"`
}

func toTransactionView(rec domain.TransactionRecord) transactionView {
	v := transactionView{
		ID:            rec.ID,
		Subtotal:      rec.Subtotal.StringFixed(2),
		Discount:      rec.Discount.StringFixed(2),
		DiscountType:  string(rec.DiscountType),
		Tax:           rec.Tax.StringFixed(2),
		Total:         rec.Total.StringFixed(2),
		Display:       domain.FormatAmount(rec.Total),
		PaymentMethod: string(rec.PaymentMethod),
		AmountPaid:    rec.AmountPaid.StringFixed(2),
		Change:        rec.Change.StringFixed(2),
		Comment:       rec.Comment,
		ItemCount:     len(rec.Items),
	}
	if !rec.CreatedAt.IsZero() {
		v.CreatedAt = rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return v
}

// ============================================================================
// Catalog
// ============================================================================

// ListProducts handles GET /api/products?category=&q=&page=
// The category/query/page selection is sticky between calls; omitted
// parameters keep their current value.
func (h *TillHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("category") {
		h.browser.SetCategory(q.Get("category"))
	}
	if q.Has("q") {
		h.browser.SetQuery(q.Get("q"))
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			ErrorResponse(w, r, domain.Invalid("till.list_products", "page must be a number"))
			return
		}
		h.browser.SetPage(page)
	}

	h.recordSearch()

	pageItems, totalPages := h.browser.Page()
	products := make([]productView, 0, len(pageItems))
	for _, p := range pageItems {
		products = append(products, toProductView(p))
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"products":   products,
		"page":       h.browser.PageNumber(),
		"totalPages": totalPages,
		"matches":    len(h.browser.Visible()),
		"category":   h.browser.Category(),
		"query":      h.browser.Query(),
	})
}

func (h *TillHandler) recordSearch() {
	if h.metrics == nil {
		return
	}
	hasCategory := h.browser.Category() != domain.CategoryAll
	hasQuery := strings.TrimSpace(h.browser.Query()) != ""
	switch {
	case hasCategory && hasQuery:
		h.metrics.ProductSearches.WithLabelValues("both").Inc()
	case hasCategory:
		h.metrics.ProductSearches.WithLabelValues("category").Inc()
	case hasQuery:
		h.metrics.ProductSearches.WithLabelValues("query").Inc()
	default:
		h.metrics.ProductSearches.WithLabelValues("none").Inc()
	}
}

// ListCategories handles GET /api/products/categories. The list comes
// from the backend's distinct categories, with the static set covering
// for an unreachable backend.
func (h *TillHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.Categories(r.Context())
	if err != nil {
		h.logger.Warn("category listing failed, serving static set", "error", err)
		RespondJSON(w, http.StatusOK, domain.KnownCategories())
		return
	}

	out := make([]string, 0, len(categories)+1)
	out = append(out, domain.CategoryAll)
	for _, c := range categories {
		if c != domain.CategoryAll {
			out = append(out, c)
		}
	}
	RespondJSON(w, http.StatusOK, out)
}

// ScanBarcode handles GET /api/products/barcode/{code}
func (h *TillHandler) ScanBarcode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	product, err := h.products.GetByBarcode(r.Context(), code)
	if err != nil {
		if h.metrics != nil && domain.IsCode(err, domain.ENOTFOUND) {
			h.metrics.BarcodeScans.WithLabelValues("miss").Inc()
		}
		ErrorResponse(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.BarcodeScans.WithLabelValues("hit").Inc()
	}
	RespondJSON(w, http.StatusOK, toProductView(*product))
}

// RefreshCatalog handles POST /api/catalog/refresh
func (h *TillHandler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.browser.Refresh(r.Context()); err != nil {
		h.logger.Error("catalog refresh failed", "error", err)
		if h.metrics != nil {
			h.metrics.CatalogRefreshes.WithLabelValues("failure").Inc()
		}
		ErrorResponse(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.CatalogRefreshes.WithLabelValues("success").Inc()
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"loaded": len(h.browser.Visible()),
	})
}

// ============================================================================
// Cart
// ============================================================================

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// GetCart handles GET /api/cart
func (h *TillHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, h.cartView())
}

// AddItem handles POST /api/cart/items. Each call adds one unit; the
// quantity endpoint handles bigger jumps.
func (h *TillHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validate.StructError("till.add_item", req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	product, err := h.browser.Lookup(req.ProductID)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	if err := h.store.AddItem(product); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.CartItemsAdded.Inc()
	}
	RespondJSON(w, http.StatusCreated, h.cartView())
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateQuantity handles PATCH /api/cart/items/{productId}. Zero or a
// negative quantity removes the line.
func (h *TillHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.store.SetQuantity(r.PathValue("productId"), req.Quantity)
	if h.metrics != nil {
		h.metrics.CartItemsUpdate.Inc()
	}
	RespondJSON(w, http.StatusOK, h.cartView())
}

// RemoveItem handles DELETE /api/cart/items/{productId}
func (h *TillHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.store.RemoveItem(r.PathValue("productId"))
	if h.metrics != nil {
		h.metrics.CartItemsUpdate.Inc()
	}
	RespondJSON(w, http.StatusOK, h.cartView())
}

// ClearSale handles DELETE /api/cart. The discount, comment and tender
// reset along with the lines.
func (h *TillHandler) ClearSale(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.ClearSale(); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, h.cartView())
}

// ============================================================================
// Sale
// ============================================================================

type discountRequest struct {
	Amount string `json:"amount"`
	Type   string `json:"type" validate:"omitempty,discount_kind"`
}

// SetDiscount handles PUT /api/sale/discount
func (h *TillHandler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validate.StructError("till.set_discount", req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	// Discount entry is lenient like the tender field: blank or
	// unparsable input means no discount.
	amount := decimal.Zero
	if raw := strings.TrimSpace(req.Amount); raw != "" {
		if parsed, err := decimal.NewFromString(raw); err == nil {
			amount = parsed
		}
	}

	spec := domain.DiscountSpec{Amount: amount, Kind: domain.DiscountKind(req.Type)}
	if err := h.checkout.SetDiscount(spec); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, h.cartView())
}

type commentRequest struct {
	Comment string `json:"comment"`
}

// SetComment handles PUT /api/sale/comment
func (h *TillHandler) SetComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.checkout.SetComment(req.Comment)
	RespondJSON(w, http.StatusOK, h.cartView())
}

type paymentRequest struct {
	AmountPaid string `json:"amountPaid"`
	Method     string `json:"paymentMethod" validate:"omitempty,payment_method"`
}

// CollectPayment handles PUT /api/sale/payment. The first call opens
// payment collection; later calls adjust the tender entry or method.
func (h *TillHandler) CollectPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validate.StructError("till.collect_payment", req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	if err := h.checkout.BeginPayment(); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	h.checkout.SetTendered(req.AmountPaid)
	if req.Method != "" {
		if err := h.checkout.SetPaymentMethod(domain.PaymentMethod(req.Method)); err != nil {
			ErrorResponse(w, r, err)
			return
		}
	}
	RespondJSON(w, http.StatusOK, h.cartView())
}

// CancelPayment handles DELETE /api/sale/payment
func (h *TillHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.CancelPayment(); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, h.cartView())
}

// Checkout handles POST /api/checkout
func (h *TillHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	created, err := h.checkout.Checkout(r.Context())
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction":   toTransactionView(*created),
		"change":        created.Change.StringFixed(2),
		"changeDisplay": domain.FormatAmount(created.Change),
	})
}

// ============================================================================
// History
// ============================================================================

// ListTransactions handles GET /api/transactions?limit=
func (h *TillHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	params := posapi.ListTransactionsParams{}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			ErrorResponse(w, r, domain.Invalid("till.list_transactions", "limit must be a positive number"))
			return
		}
		params.Limit = limit
	}

	records, err := h.transactions.List(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	views := make([]transactionView, 0, len(records))
	for _, rec := range records {
		views = append(views, toTransactionView(rec))
	}
	RespondJSON(w, http.StatusOK, views)
}

// decode reads a JSON body into dst, answering 400 on malformed input.
func (h *TillHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		ErrorResponse(w, r, domain.Invalid("till.decode", "invalid JSON body"))
		return false
	}
	return true
}
