package domain

import (
	"github.com/shopspring/decimal"
)

// CategoryAll is the sentinel category selector that disables category
// filtering in the catalog.
const CategoryAll = "all"

// KnownCategories returns the category identifiers the catalog service
// assigns to products, with CategoryAll first so a selector built from it
// can offer "all products". The list is advisory; filtering matches
// whatever category string a product actually carries.
func KnownCategories() []string {
	return []string{
		CategoryAll,
		"produce",
		"dairy",
		"bakery",
		"meat",
		"snacks",
		"beverages",
	}
}

// Product is a catalog entry as served by the remote catalog service.
// The till treats products as immutable; stock and pricing are owned and
// mutated server-side.
type Product struct {
	ID       string
	Name     string
	SKU      string
	Barcode  string
	Category string

	Price decimal.Decimal
	Cost  decimal.Decimal

	Stock   int
	Taxable bool
	// TaxRate is a percentage (15 means 15%). Meaningful only when Taxable.
	TaxRate decimal.Decimal

	ImageURL string
	IsActive bool
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}
