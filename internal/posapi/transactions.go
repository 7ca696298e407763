package posapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/deliverpoint/pos/internal/domain"
)

// TransactionsService submits completed sales and reads sale history.
type TransactionsService struct {
	client *Client
}

// transactionItemDTO is one sold line as the backend stores it. The
// product field carries the product id.
type transactionItemDTO struct {
	Product     string  `json:"product"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Taxable     bool    `json:"taxable"`
	TaxRate     float64 `json:"taxRate"`
	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	Total       float64 `json:"total"`
}

type transactionDTO struct {
	ID            string               `json:"_id,omitempty"`
	Items         []transactionItemDTO `json:"items"`
	Subtotal      float64              `json:"subtotal"`
	Discount      float64              `json:"discount"`
	DiscountType  string               `json:"discountType"`
	Tax           float64              `json:"tax"`
	Total         float64              `json:"total"`
	PaymentMethod string               `json:"paymentMethod"`
	AmountPaid    float64              `json:"amountPaid"`
	Change        float64              `json:"change"`
	Comment       string               `json:"comment"`
	CreatedAt     time.Time            `json:"createdAt,omitempty"`
}

func transactionToDTO(rec domain.TransactionRecord) transactionDTO {
	items := make([]transactionItemDTO, 0, len(rec.Items))
	for _, line := range rec.Items {
		items = append(items, transactionItemDTO{
			Product:     line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			Price:       line.UnitPrice.InexactFloat64(),
			Taxable:     line.Taxable,
			TaxRate:     line.TaxRate.InexactFloat64(),
			Subtotal:    line.Subtotal.InexactFloat64(),
			Tax:         line.Tax.InexactFloat64(),
			Total:       line.Total.InexactFloat64(),
		})
	}
	return transactionDTO{
		Items:         items,
		Subtotal:      rec.Subtotal.InexactFloat64(),
		Discount:      rec.Discount.InexactFloat64(),
		DiscountType:  string(rec.DiscountType),
		Tax:           rec.Tax.InexactFloat64(),
		Total:         rec.Total.InexactFloat64(),
		PaymentMethod: string(rec.PaymentMethod),
		AmountPaid:    rec.AmountPaid.InexactFloat64(),
		Change:        rec.Change.InexactFloat64(),
		Comment:       rec.Comment,
	}
}

func (d transactionDTO) toDomain() domain.TransactionRecord {
	items := make([]domain.TransactionLine, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, domain.TransactionLine{
			ProductID:   it.Product,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   decimal.NewFromFloat(it.Price),
			Taxable:     it.Taxable,
			TaxRate:     decimal.NewFromFloat(it.TaxRate),
			Subtotal:    decimal.NewFromFloat(it.Subtotal),
			Tax:         decimal.NewFromFloat(it.Tax),
			Total:       decimal.NewFromFloat(it.Total),
		})
	}
	return domain.TransactionRecord{
		ID:            d.ID,
		Items:         items,
		Subtotal:      decimal.NewFromFloat(d.Subtotal),
		Discount:      decimal.NewFromFloat(d.Discount),
		DiscountType:  domain.DiscountKind(d.DiscountType),
		Tax:           decimal.NewFromFloat(d.Tax),
		Total:         decimal.NewFromFloat(d.Total),
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod),
		AmountPaid:    decimal.NewFromFloat(d.AmountPaid),
		Change:        decimal.NewFromFloat(d.Change),
		Comment:       d.Comment,
		CreatedAt:     d.CreatedAt,
	}
}

// Create submits a completed sale. The record's idempotency key travels as
// a header so a retried submission is not recorded twice.
func (s *TransactionsService) Create(ctx context.Context, rec domain.TransactionRecord) (*domain.TransactionRecord, error) {
	header := http.Header{}
	if rec.IdempotencyKey != "" {
		header.Set("Idempotency-Key", rec.IdempotencyKey)
	}

	var dto transactionDTO
	if err := s.client.do(ctx, http.MethodPost, "/transactions", nil, header, transactionToDTO(rec), &dto); err != nil {
		return nil, err
	}

	created := dto.toDomain()
	created.IdempotencyKey = rec.IdempotencyKey
	created.Cashier = rec.Cashier
	return &created, nil
}

// ListTransactionsParams filters sale history. Zero values are omitted.
type ListTransactionsParams struct {
	Limit     int
	StartDate time.Time
	EndDate   time.Time
}

// List fetches recent transactions, newest first.
func (s *TransactionsService) List(ctx context.Context, params ListTransactionsParams) ([]domain.TransactionRecord, error) {
	query := url.Values{}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if !params.StartDate.IsZero() {
		query.Set("startDate", params.StartDate.Format(time.RFC3339))
	}
	if !params.EndDate.IsZero() {
		query.Set("endDate", params.EndDate.Format(time.RFC3339))
	}

	var dtos []transactionDTO
	if err := s.client.do(ctx, http.MethodGet, "/transactions", query, nil, nil, &dtos); err != nil {
		return nil, err
	}

	records := make([]domain.TransactionRecord, 0, len(dtos))
	for _, d := range dtos {
		records = append(records, d.toDomain())
	}
	return records, nil
}
