package posapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/deliverpoint/pos/internal/domain"
	"github.com/deliverpoint/pos/internal/telemetry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL: srv.URL,
		Token:   "test-token",
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func writeEnvelope(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": status < 400,
		"data":    data,
		"message": message,
	})
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	if !errors.Is(err, ErrMissingBaseURL) {
		t.Errorf("NewClient() error = %v, want ErrMissingBaseURL", err)
	}
}

func TestClient_SendsBearerToken(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, []productDTO{}, "")
	})

	if _, err := client.Products.ActiveProducts(context.Background()); err != nil {
		t.Fatalf("ActiveProducts() error = %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-token")
	}
}

func TestClient_UnauthorizedMapsToDomainCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, nil, "Not authorized, no token")
	})

	_, err := client.Products.ActiveProducts(context.Background())
	if domain.ErrorCode(err) != domain.EUNAUTHORIZED {
		t.Errorf("ErrorCode(err) = %q, want %q", domain.ErrorCode(err), domain.EUNAUTHORIZED)
	}
	if domain.ErrorMessage(err) != "Not authorized, no token" {
		t.Errorf("ErrorMessage(err) = %q, want backend message", domain.ErrorMessage(err))
	}
}

func TestClient_ServerErrorMapsToUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, nil, "database down")
	})

	_, err := client.Products.ActiveProducts(context.Background())
	if domain.ErrorCode(err) != domain.EUNAVAILABLE {
		t.Errorf("ErrorCode(err) = %q, want %q", domain.ErrorCode(err), domain.EUNAVAILABLE)
	}
}

func TestClient_FailedEnvelopeWithoutStatus(t *testing.T) {
	// Some endpoints report failure in the envelope while still
	// returning 200.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success": false, "message": "nothing matched"}`)
	})

	_, err := client.Products.ActiveProducts(context.Background())
	if err == nil {
		t.Fatal("expected error for success=false envelope")
	}
	var derr *domain.Error
	if !errors.As(err, &derr) {
		t.Fatalf("error type = %T, want *domain.Error", err)
	}
	if derr.Message != "nothing matched" {
		t.Errorf("Message = %q, want %q", derr.Message, "nothing matched")
	}
}

func TestClient_TransportErrorMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // client now dials a dead address

	client, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.Products.ActiveProducts(context.Background())
	if domain.ErrorCode(err) != domain.EUNAVAILABLE {
		t.Errorf("ErrorCode(err) = %q, want %q", domain.ErrorCode(err), domain.EUNAVAILABLE)
	}
}

func TestClient_CountsBackendErrors(t *testing.T) {
	metrics := telemetry.NewBusinessMetrics("posapi_client_test")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, nil, "database down")
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, Metrics: metrics})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.Products.ActiveProducts(context.Background()); err == nil {
		t.Fatal("expected error from failing backend")
	}
	if _, err := client.Products.GetByBarcode(context.Background(), "6001234500017"); err == nil {
		t.Fatal("expected error from failing backend")
	}

	// Both calls collapse onto the top-level resource label; the barcode
	// segment never reaches the metric.
	got := testutil.ToFloat64(metrics.BackendErrors.WithLabelValues("GET /products"))
	if got != 2 {
		t.Errorf("backend errors for GET /products = %v, want 2", got)
	}
}

func TestClient_RespectsContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Products.ActiveProducts(ctx)
	if domain.ErrorCode(err) != domain.EUNAVAILABLE {
		t.Errorf("ErrorCode(err) = %q, want %q", domain.ErrorCode(err), domain.EUNAVAILABLE)
	}
}

func TestProducts_ActiveProducts(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("isActive")
		writeEnvelope(w, http.StatusOK, []productDTO{
			{
				ID:       "p1",
				Name:     "Whole Milk 1L",
				SKU:      "MILK-1L",
				Barcode:  "6001234500017",
				Category: "dairy",
				Price:    21.99,
				Stock:    40,
				Taxable:  true,
				TaxRate:  15,
				IsActive: true,
			},
		}, "")
	})

	products, err := client.Products.ActiveProducts(context.Background())
	if err != nil {
		t.Fatalf("ActiveProducts() error = %v", err)
	}
	if gotPath != "/products" {
		t.Errorf("path = %q, want /products", gotPath)
	}
	if gotQuery != "true" {
		t.Errorf("isActive = %q, want true", gotQuery)
	}
	if len(products) != 1 {
		t.Fatalf("len(products) = %d, want 1", len(products))
	}

	p := products[0]
	if p.ID != "p1" || p.Name != "Whole Milk 1L" {
		t.Errorf("unexpected product identity: %+v", p)
	}
	if !p.Price.Equal(decimal.NewFromFloat(21.99)) {
		t.Errorf("Price = %s, want 21.99", p.Price)
	}
	if !p.TaxRate.Equal(decimal.NewFromInt(15)) {
		t.Errorf("TaxRate = %s, want 15", p.TaxRate)
	}
}

func TestProducts_GetByBarcode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/barcode/6001234500017" {
			writeEnvelope(w, http.StatusNotFound, nil, "Product not found")
			return
		}
		writeEnvelope(w, http.StatusOK, productDTO{ID: "p1", Barcode: "6001234500017"}, "")
	})

	p, err := client.Products.GetByBarcode(context.Background(), "6001234500017")
	if err != nil {
		t.Fatalf("GetByBarcode() error = %v", err)
	}
	if p.ID != "p1" {
		t.Errorf("ID = %q, want p1", p.ID)
	}

	_, err = client.Products.GetByBarcode(context.Background(), "0000000000000")
	if domain.ErrorCode(err) != domain.ENOTFOUND {
		t.Errorf("ErrorCode(err) = %q, want %q", domain.ErrorCode(err), domain.ENOTFOUND)
	}

	_, err = client.Products.GetByBarcode(context.Background(), "")
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("ErrorCode(err) = %q, want %q for empty barcode", domain.ErrorCode(err), domain.EINVALID)
	}
}

func TestProducts_Categories(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/categories/list" {
			t.Errorf("path = %q, want /products/categories/list", r.URL.Path)
		}
		writeEnvelope(w, http.StatusOK, []string{"dairy", "bakery"}, "")
	})

	categories, err := client.Products.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(categories) != 2 || categories[0] != "dairy" {
		t.Errorf("categories = %v, want [dairy bakery]", categories)
	}
}

func TestTransactions_CreateSendsWireShape(t *testing.T) {
	var gotBody map[string]interface{}
	var gotIdemKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotIdemKey = r.Header.Get("Idempotency-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		writeEnvelope(w, http.StatusCreated, transactionDTO{ID: "t1", CreatedAt: time.Now()}, "")
	})

	rec := domain.TransactionRecord{
		Items: []domain.TransactionLine{
			{
				ProductID:   "p1",
				ProductName: "Whole Milk 1L",
				Quantity:    2,
				UnitPrice:   decimal.NewFromFloat(21.99),
				Taxable:     true,
				TaxRate:     decimal.NewFromInt(15),
				Subtotal:    decimal.NewFromFloat(43.98),
				Tax:         decimal.NewFromFloat(6.60),
				Total:       decimal.NewFromFloat(50.58),
			},
		},
		Subtotal:       decimal.NewFromFloat(43.98),
		Discount:       decimal.Zero,
		DiscountType:   domain.DiscountAmount,
		Tax:            decimal.NewFromFloat(6.60),
		Total:          decimal.NewFromFloat(50.58),
		PaymentMethod:  domain.PaymentCash,
		AmountPaid:     decimal.NewFromInt(60),
		Change:         decimal.NewFromFloat(9.42),
		Comment:        "regular",
		IdempotencyKey: "key-123",
	}

	created, err := client.Transactions.Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID != "t1" {
		t.Errorf("ID = %q, want t1", created.ID)
	}
	if created.IdempotencyKey != "key-123" {
		t.Errorf("IdempotencyKey = %q, want key-123", created.IdempotencyKey)
	}
	if gotIdemKey != "key-123" {
		t.Errorf("Idempotency-Key header = %q, want key-123", gotIdemKey)
	}

	// Field names on the wire are what the backend's schema expects.
	for _, field := range []string{"items", "subtotal", "discount", "discountType", "tax", "total", "paymentMethod", "amountPaid", "change", "comment"} {
		if _, ok := gotBody[field]; !ok {
			t.Errorf("request body missing field %q", field)
		}
	}
	items, ok := gotBody["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("items = %v, want one entry", gotBody["items"])
	}
	item := items[0].(map[string]interface{})
	if item["product"] != "p1" {
		t.Errorf("item product = %v, want p1", item["product"])
	}
	if item["productName"] != "Whole Milk 1L" {
		t.Errorf("item productName = %v", item["productName"])
	}
	if gotBody["paymentMethod"] != "cash" {
		t.Errorf("paymentMethod = %v, want cash", gotBody["paymentMethod"])
	}
	if gotBody["discountType"] != "amount" {
		t.Errorf("discountType = %v, want amount", gotBody["discountType"])
	}
}

func TestTransactions_List(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "20" {
			t.Errorf("limit = %q, want 20", got)
		}
		writeEnvelope(w, http.StatusOK, []transactionDTO{
			{ID: "t2", Total: 23, PaymentMethod: "card"},
			{ID: "t1", Total: 50.58, PaymentMethod: "cash"},
		}, "")
	})

	records, err := client.Transactions.List(context.Background(), ListTransactionsParams{Limit: 20})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].ID != "t2" || records[0].PaymentMethod != domain.PaymentCard {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if !records[1].Total.Equal(decimal.NewFromFloat(50.58)) {
		t.Errorf("Total = %s, want 50.58", records[1].Total)
	}
}
