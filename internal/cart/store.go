// Package cart owns the mutable cart for the sale in progress and enforces
// the quantity/stock invariants. All operations are synchronous, in-memory
// transformations; a failed operation leaves the cart untouched.
package cart

import (
	"sync"

	"github.com/deliverpoint/pos/internal/domain"
)

// Store holds the current cart. One operator drives it, but the HTTP
// facade serves requests concurrently, so every method locks.
type Store struct {
	mu         sync.Mutex
	cart       domain.Cart
	generation uint64
}

// NewStore creates an empty cart store.
func NewStore() *Store {
	return &Store{generation: 1}
}

// AddItem adds one unit of product to the cart. An existing line is
// incremented; a new line snapshots price, taxability, tax rate and image
// at this moment. Fails with domain.ErrStockExceeded when the increment
// would pass the product's stock, or domain.ErrOutOfStock when a new line
// is requested for a product with no stock.
func (s *Store) AddItem(product domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cart.Lines {
		line := &s.cart.Lines[i]
		if line.ProductID != product.ID {
			continue
		}
		if line.Quantity+1 > product.Stock {
			return domain.ErrStockExceeded
		}
		line.Quantity++
		return nil
	}

	if product.Stock < 1 {
		return domain.ErrOutOfStock
	}

	s.cart.Lines = append(s.cart.Lines, domain.CartLineItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    1,
		UnitPrice:   product.Price,
		Taxable:     product.Taxable,
		TaxRate:     product.TaxRate,
		ImageURL:    product.ImageURL,
	})
	return nil
}

// SetQuantity replaces a line's quantity. A quantity of zero or less
// removes the line. The new quantity is not re-checked against live stock;
// stock is only enforced on AddItem's increment path. Absent lines are a
// no-op, matching RemoveItem.
func (s *Store) SetQuantity(productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(productID)
		return
	}

	for i := range s.cart.Lines {
		if s.cart.Lines[i].ProductID == productID {
			s.cart.Lines[i].Quantity = quantity
			return
		}
	}
}

// RemoveItem drops the line for productID; no-op when absent.
func (s *Store) RemoveItem(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(productID)
}

func (s *Store) removeLocked(productID string) {
	for i := range s.cart.Lines {
		if s.cart.Lines[i].ProductID == productID {
			s.cart.Lines = append(s.cart.Lines[:i], s.cart.Lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart and starts a new generation. The checkout
// coordinator layers its session resets (discount, comment, tender) on top
// of this call.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Lines = nil
	s.generation++
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []domain.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLineItem, len(s.cart.Lines))
	copy(out, s.cart.Lines)
	return out
}

// Find returns the line for productID, if present.
func (s *Store) Find(productID string) (domain.CartLineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range s.cart.Lines {
		if line.ProductID == productID {
			return line, true
		}
	}
	return domain.CartLineItem{}, false
}

// Len returns the number of lines (not total units).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cart.Lines)
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cart.Lines) == 0
}

// UnitCount returns the total units across all lines.
func (s *Store) UnitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.UnitCount()
}

// Generation identifies the current sale. It advances on Clear, so an
// in-flight submission can be keyed to the cart it was built from.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}
