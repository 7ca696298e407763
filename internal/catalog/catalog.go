// Package catalog derives the visible, paginated product list from the
// full catalog, a category selector and a search query. Filtering is pure
// and stable: results keep catalog order.
package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/deliverpoint/pos/internal/domain"
)

// ProductSource loads the active catalog from the remote catalog service.
type ProductSource interface {
	ActiveProducts(ctx context.Context) ([]domain.Product, error)
}

// Filter returns the products matching the category selector and search
// query, in catalog order.
//
// Category: exact case-insensitive match, or pass-through for CategoryAll.
// Query: applied after the category filter, only when non-empty after
// trimming; case-insensitive substring on name or SKU, case-sensitive
// substring on barcode.
func Filter(products []domain.Product, category, query string) []domain.Product {
	filtered := products

	if category != "" && !strings.EqualFold(category, domain.CategoryAll) {
		matched := make([]domain.Product, 0, len(filtered))
		for _, p := range filtered {
			if strings.EqualFold(p.Category, category) {
				matched = append(matched, p)
			}
		}
		filtered = matched
	}

	if strings.TrimSpace(query) != "" {
		lowered := strings.ToLower(query)
		matched := make([]domain.Product, 0, len(filtered))
		for _, p := range filtered {
			if strings.Contains(strings.ToLower(p.Name), lowered) ||
				strings.Contains(strings.ToLower(p.SKU), lowered) ||
				(p.Barcode != "" && strings.Contains(p.Barcode, query)) {
				matched = append(matched, p)
			}
		}
		filtered = matched
	}

	return filtered
}

// Paginate slices items into the requested page. totalPages is
// ceil(len(items)/pageSize); a page outside [1, totalPages] yields an
// empty page, never an error.
func Paginate(items []domain.Product, pageSize, page int) ([]domain.Product, int) {
	if pageSize < 1 {
		return []domain.Product{}, 0
	}

	totalPages := (len(items) + pageSize - 1) / pageSize
	if page < 1 || page > totalPages {
		return []domain.Product{}, totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], totalPages
}

// Browser holds the operator's catalog view: the loaded products plus the
// category/query/page selection. The visible page is always recomputed from
// this canonical state, never cached. Methods lock so the HTTP facade can
// call them concurrently.
type Browser struct {
	source ProductSource

	mu       sync.Mutex
	products []domain.Product
	category string
	query    string
	page     int
	pageSize int
}

// NewBrowser creates a Browser starting on page 1 of all products.
func NewBrowser(source ProductSource, pageSize int) *Browser {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Browser{
		source:   source,
		category: domain.CategoryAll,
		page:     1,
		pageSize: pageSize,
	}
}

// Refresh reloads the active catalog from the remote service. The current
// selection survives a refresh; the page resets to 1.
func (b *Browser) Refresh(ctx context.Context) error {
	products, err := b.source.ActiveProducts(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.products = products
	b.page = 1
	return nil
}

// SetProducts replaces the loaded catalog directly and resets to page 1.
func (b *Browser) SetProducts(products []domain.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products = products
	b.page = 1
}

// SetCategory selects a category. Changing the selection resets to page 1.
func (b *Browser) SetCategory(category string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if category == b.category {
		return
	}
	b.category = category
	b.page = 1
}

// SetQuery sets the search query. Changing the query resets to page 1.
func (b *Browser) SetQuery(query string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if query == b.query {
		return
	}
	b.query = query
	b.page = 1
}

// SetPage jumps to the given page, clamped to [1, totalPages].
func (b *Browser) SetPage(page int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setPageLocked(page)
}

func (b *Browser) setPageLocked(page int) {
	_, totalPages := Paginate(b.visibleLocked(), b.pageSize, 1)
	if totalPages < 1 {
		b.page = 1
		return
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	b.page = page
}

// NextPage advances one page, stopping at the last.
func (b *Browser) NextPage() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setPageLocked(b.page + 1)
}

// PrevPage goes back one page, stopping at the first.
func (b *Browser) PrevPage() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setPageLocked(b.page - 1)
}

// Category returns the current category selector.
func (b *Browser) Category() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.category
}

// Query returns the current search query.
func (b *Browser) Query() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// PageNumber returns the current page number (1-based).
func (b *Browser) PageNumber() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page
}

// Visible returns all products matching the current selection, unpaginated.
func (b *Browser) Visible() []domain.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visibleLocked()
}

func (b *Browser) visibleLocked() []domain.Product {
	return Filter(b.products, b.category, b.query)
}

// Page returns the current page of visible products and the page count.
func (b *Browser) Page() ([]domain.Product, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Paginate(b.visibleLocked(), b.pageSize, b.page)
}

// Lookup finds a loaded product by ID.
func (b *Browser) Lookup(productID string) (domain.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.products {
		if p.ID == productID {
			return p, nil
		}
	}
	return domain.Product{}, domain.NotFound("catalog.lookup", "product", productID)
}
