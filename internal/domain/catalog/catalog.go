// Package catalog resolves bouquet identifiers to their unit prices.
package catalog

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Image       Image
}

// Image holds responsive image URLs for a product.
type Image struct {
	Thumbnail string
	Mobile    string
	Desktop   string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
}

// PriceLookup resolves an item identifier to its unit price.
type PriceLookup interface {
	UnitPrice(id string) (decimal.Decimal, bool)
}

// Lookup serves prices from an in-memory snapshot of the catalog so that
// cart arithmetic never blocks on the database.
type Lookup struct {
	repo Repository

	mu       sync.RWMutex
	products []Product
	byID     map[string]Product
}

var _ PriceLookup = (*Lookup)(nil)

// NewLookup creates an empty Lookup. Call Refresh before use.
func NewLookup(repo Repository) *Lookup {
	return &Lookup{
		repo: repo,
		byID: map[string]Product{},
	}
}

// Refresh replaces the snapshot with the current repository contents.
func (l *Lookup) Refresh(ctx context.Context) error {
	products, err := l.repo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}

	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	l.mu.Lock()
	l.products = products
	l.byID = byID
	l.mu.Unlock()
	return nil
}

// UnitPrice returns the price of the item, or false for unknown items.
func (l *Lookup) UnitPrice(id string) (decimal.Decimal, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.byID[id]
	if !ok {
		return decimal.Zero, false
	}
	return p.Price, true
}

// Product returns the cached product with the given id.
func (l *Lookup) Product(id string) (Product, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.byID[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// List returns the cached catalog in repository order.
func (l *Lookup) List() []Product {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Product, len(l.products))
	copy(out, l.products)
	return out
}

// Len returns the number of cached products.
func (l *Lookup) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.products)
}
