package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryCatalog is a concurrency-safe in-memory Catalog for tests and
// database-less development runs, with helpers to seed and delist products.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]Product
	order    []string
}

// NewMemoryCatalog builds an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{products: make(map[string]Product)}
}

// Add seeds a listing and returns it with a generated identifier.
func (c *MemoryCatalog) Add(sellerID, name string, price int64) Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := Product{
		ID:        uuid.NewString(),
		SellerID:  sellerID,
		Name:      name,
		Price:     price,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	c.products[p.ID] = p
	c.order = append(c.order, p.ID)
	return p
}

// Deactivate delists a product.
func (c *MemoryCatalog) Deactivate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[id]; ok {
		p.Active = false
		c.products[id] = p
	}
}

// Product resolves a listing by identifier.
func (c *MemoryCatalog) Product(_ context.Context, id string) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

// List returns listings in insertion order.
func (c *MemoryCatalog) List(_ context.Context, limit int) ([]Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if limit <= 0 || limit > len(c.order) {
		limit = len(c.order)
	}
	out := make([]Product, 0, limit)
	for _, id := range c.order[:limit] {
		out = append(out, c.products[id])
	}
	return out, nil
}
