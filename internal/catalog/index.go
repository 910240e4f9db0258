package catalog

import (
	"sort"
	"sync"

	"storefront-service/internal/models"
)

// Index is an in-memory view of the active catalog keyed by product id.
// Change events apply targeted upserts and deletes instead of triggering a
// full reload, so a bursty writer costs one patch per touched row.
type Index struct {
	mu       sync.RWMutex
	products map[string]models.Product
	warm     bool
}

// NewIndex creates an empty, cold index.
func NewIndex() *Index {
	return &Index{products: make(map[string]models.Product)}
}

// Fill replaces the whole index contents and marks it warm. Used once at
// startup; afterwards the index is maintained by Upsert/Delete.
func (i *Index) Fill(products []models.Product) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.products = make(map[string]models.Product, len(products))
	for _, p := range products {
		if p.IsActive {
			i.products[p.ID] = p
		}
	}
	i.warm = true
}

// Upsert applies a single product change. Deactivated products drop out of
// the index, since the public list only serves active ones.
func (i *Index) Upsert(product models.Product) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !product.IsActive {
		delete(i.products, product.ID)
		return
	}
	i.products[product.ID] = product
}

// Delete removes a product by id.
func (i *Index) Delete(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.products, id)
}

// List returns the indexed products, newest first.
func (i *Index) List() []models.Product {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]models.Product, 0, len(i.products))
	for _, p := range i.products {
		out = append(out, p)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}

// Warm reports whether the index has been filled and can serve reads.
func (i *Index) Warm() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.warm
}

// Len returns the number of indexed products.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.products)
}
