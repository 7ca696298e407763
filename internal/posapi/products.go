package posapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/deliverpoint/pos/internal/domain"
)

// ProductsService fetches catalog data from the backend.
type ProductsService struct {
	client *Client
}

// productDTO mirrors the backend's product document.
type productDTO struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	SKU      string  `json:"sku"`
	Barcode  string  `json:"barcode"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Cost     float64 `json:"cost"`
	Stock    int     `json:"stock"`
	Taxable  bool    `json:"taxable"`
	TaxRate  float64 `json:"taxRate"`
	ImageURL string  `json:"imageUrl"`
	IsActive bool    `json:"isActive"`
}

func (d productDTO) toDomain() domain.Product {
	return domain.Product{
		ID:       d.ID,
		Name:     d.Name,
		SKU:      d.SKU,
		Barcode:  d.Barcode,
		Category: d.Category,
		Price:    decimal.NewFromFloat(d.Price),
		Cost:     decimal.NewFromFloat(d.Cost),
		Stock:    d.Stock,
		Taxable:  d.Taxable,
		TaxRate:  decimal.NewFromFloat(d.TaxRate),
		ImageURL: d.ImageURL,
		IsActive: d.IsActive,
	}
}

// ListProductsParams filters a product listing. Nil fields are omitted
// from the query.
type ListProductsParams struct {
	IsActive *bool
	Category string
	Search   string
}

// List fetches products matching params.
func (s *ProductsService) List(ctx context.Context, params ListProductsParams) ([]domain.Product, error) {
	query := url.Values{}
	if params.IsActive != nil {
		query.Set("isActive", strconv.FormatBool(*params.IsActive))
	}
	if params.Category != "" {
		query.Set("category", params.Category)
	}
	if params.Search != "" {
		query.Set("search", params.Search)
	}

	var dtos []productDTO
	if err := s.client.do(ctx, http.MethodGet, "/products", query, nil, nil, &dtos); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(dtos))
	for _, d := range dtos {
		products = append(products, d.toDomain())
	}
	return products, nil
}

// ActiveProducts fetches every sellable product. This is the catalog
// refresh path the till runs on startup and on demand.
func (s *ProductsService) ActiveProducts(ctx context.Context) ([]domain.Product, error) {
	active := true
	return s.List(ctx, ListProductsParams{IsActive: &active})
}

// GetByBarcode looks a single product up by its barcode.
func (s *ProductsService) GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	if barcode == "" {
		return nil, domain.Invalid("posapi.get.products.barcode", "barcode is required")
	}

	var dto productDTO
	if err := s.client.do(ctx, http.MethodGet, "/products/barcode/"+url.PathEscape(barcode), nil, nil, nil, &dto); err != nil {
		return nil, err
	}
	product := dto.toDomain()
	return &product, nil
}

// Categories fetches the distinct category names known to the backend.
func (s *ProductsService) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := s.client.do(ctx, http.MethodGet, "/products/categories/list", nil, nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
