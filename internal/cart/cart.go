package cart

import (
	"context"
	"fmt"
)

// Item is one cart line. Identity is (product id, color, size): adding an
// item with a matching key merges quantities instead of duplicating the line.
type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color,omitempty"`
	Size      string `json:"size,omitempty"`
	Category  string `json:"category,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

func (i Item) key() string {
	return i.ProductID + "|" + i.Color + "|" + i.Size
}

// Storage persists carts to a durable key-value store keyed by session id.
type Storage interface {
	Load(ctx context.Context, sessionID string) ([]Item, error)
	Save(ctx context.Context, sessionID string, items []Item) error
	Delete(ctx context.Context, sessionID string) error
}

// Service owns an ordered list of cart lines per session. Carts survive
// reloads via Storage but are not synchronized across devices.
type Service struct {
	storage Storage
}

// NewService creates a cart service backed by the given storage.
func NewService(storage Storage) *Service {
	return &Service{storage: storage}
}

// Get returns the session's cart, empty when none was saved.
func (s *Service) Get(ctx context.Context, sessionID string) ([]Item, error) {
	items, err := s.storage.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Add appends an item, merging into an existing line with the same
// (product, color, size) key. A zero quantity defaults to one.
func (s *Service) Add(ctx context.Context, sessionID string, item Item) ([]Item, error) {
	if item.ProductID == "" {
		return nil, fmt.Errorf("product id is required")
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	items, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range items {
		if items[i].key() == item.key() {
			items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, item)
	}

	if err := s.storage.Save(ctx, sessionID, items); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return items, nil
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, productID, color, size string, quantity int) ([]Item, error) {
	items, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	key := Item{ProductID: productID, Color: color, Size: size}.key()
	out := items[:0]
	for _, it := range items {
		if it.key() != key {
			out = append(out, it)
			continue
		}
		if quantity > 0 {
			it.Quantity = quantity
			out = append(out, it)
		}
	}

	if err := s.storage.Save(ctx, sessionID, out); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return out, nil
}

// Remove deletes the line with the given key.
func (s *Service) Remove(ctx context.Context, sessionID, productID, color, size string) ([]Item, error) {
	return s.UpdateQuantity(ctx, sessionID, productID, color, size, 0)
}

// Clear drops the whole cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.storage.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Subtotal sums price × quantity over the given lines.
func Subtotal(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}

// TotalItems sums quantities over the given lines.
func TotalItems(items []Item) int {
	var total int
	for _, it := range items {
		total += it.Quantity
	}
	return total
}
