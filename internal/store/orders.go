package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// StockError reports an order line that cannot be fulfilled.
type StockError struct {
	ProductName string
	Remaining   int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: only %d unit(s) left", e.ProductName, e.Remaining)
}

// CreateOrder inserts an order and its denormalized items in one transaction.
// The order number is drawn from a database sequence; item snapshots (name,
// price, image, variants) are frozen at insert time.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertOrder(ctx, tx, order, items); err != nil {
		return err
	}
	order.Items = items
	return tx.Commit()
}

// PlaceCashOrder inserts a cash-on-delivery order as confirmed and decrements
// every line's product and variant stock inside the same transaction. A line
// whose quantity exceeds the available stock aborts the whole transaction,
// so a shortfall never leaves a partial order behind.
func (s *Store) PlaceCashOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	order.Status = models.OrderStatusConfirmed
	if err := insertOrder(ctx, tx, order, items); err != nil {
		return err
	}

	for i := range items {
		item := &items[i]

		var current struct {
			Name  string `db:"name"`
			Stock int    `db:"stock"`
		}
		err := tx.GetContext(ctx, &current,
			"SELECT name, stock FROM products WHERE id = $1 FOR UPDATE", item.ProductID)
		if err != nil {
			return fmt.Errorf("failed to lock product %s: %w", item.ProductID, err)
		}
		if current.Stock < item.Quantity {
			return &StockError{ProductName: current.Name, Remaining: current.Stock}
		}

		if err := applyItemDecrements(ctx, tx, item); err != nil {
			return err
		}
	}

	order.Items = items
	return tx.Commit()
}

func insertOrder(ctx context.Context, tx *sqlx.Tx, order *models.Order, items []models.OrderItem) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}

	err := tx.QueryRowxContext(ctx, `
		INSERT INTO orders (id, order_number, status, total_amount, delivery_fee,
			customer_first_name, customer_last_name, customer_phone, customer_address,
			payment_method, payment_status)
		VALUES ($1, nextval('order_number_seq'), $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING order_number, created_at, updated_at`,
		order.ID, order.Status, order.TotalAmount, order.DeliveryFee,
		order.CustomerFirstName, order.CustomerLastName, order.CustomerPhone,
		order.CustomerAddress, order.PaymentMethod, order.PaymentStatus,
	).Scan(&order.OrderNumber, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.OrderID = order.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, quantity,
				unit_price, total_price, color_variant, size_variant, product_image_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			item.ID, item.OrderID, item.ProductID, item.ProductName, item.Quantity,
			item.UnitPrice, item.TotalPrice, item.ColorVariant, item.SizeVariant, item.ImageURL)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

// applyItemDecrements decrements the matching variant rows (when the item
// carries a variant snapshot) and then the product's aggregate stock.
func applyItemDecrements(ctx context.Context, ext sqlx.ExtContext, item *models.OrderItem) error {
	if item.ColorVariant != nil && *item.ColorVariant != "" {
		if err := decrementVariantStock(ctx, ext, item.ProductID, models.VariantTypeColor, *item.ColorVariant, item.Quantity); err != nil {
			return err
		}
	}
	if item.SizeVariant != nil && *item.SizeVariant != "" {
		if err := decrementVariantStock(ctx, ext, item.ProductID, models.VariantTypeSize, *item.SizeVariant, item.Quantity); err != nil {
			return err
		}
	}
	return decrementProductStock(ctx, ext, item.ProductID, item.Quantity)
}

// MarkOrderPaid finalizes a paid order exactly once. The status write carries
// a payment_status guard; when the guard does not match (duplicate callback),
// no stock is touched and alreadyPaid is returned. The guard and every
// decrement commit in one transaction, so a failure mid-loop rolls everything
// back instead of leaving a partial decrement.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID string) (alreadyPaid bool, productIDs []string, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $1, status = $2, updated_at = NOW()
		WHERE id = $3 AND payment_status IS DISTINCT FROM $1`,
		models.PaymentStatusPaid, models.OrderStatusConfirmed, orderID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to mark order paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, nil, err
	}
	if n == 0 {
		// Either already paid or unknown; disambiguate for the caller.
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			"SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)", orderID); err != nil {
			return false, nil, err
		}
		if !exists {
			return false, nil, fmt.Errorf("order not found: %s", orderID)
		}
		return true, nil, nil
	}

	var items []models.OrderItem
	err = tx.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to load order items: %w", err)
	}

	for i := range items {
		if err := applyItemDecrements(ctx, tx, &items[i]); err != nil {
			return false, nil, err
		}
		productIDs = append(productIDs, items[i].ProductID)
	}

	if err := tx.Commit(); err != nil {
		return false, nil, err
	}
	return false, productIDs, nil
}

// GetOrderWithItems retrieves an order and its items
func (s *Store) GetOrderWithItems(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %s", orderID)
	}
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &order.Items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByPhone retrieves a customer's orders, newest first, with items.
// An unknown phone returns an empty slice, not an error.
func (s *Store) GetOrdersByPhone(ctx context.Context, phone string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE customer_phone = $1 ORDER BY created_at DESC", phone)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []models.Order{}, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	query, args, err := sqlx.In("SELECT * FROM order_items WHERE order_id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.OrderItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}

	byOrder := make(map[string][]models.OrderItem)
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return orders, nil
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order not found: %s", orderID)
	}
	return nil
}

// SetPaymentRef stores the provider-side transaction id and marks the payment
// pending after a payment link is created.
func (s *Store) SetPaymentRef(ctx context.Context, orderID, paymentRef string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_ref = $1, payment_status = $2, updated_at = NOW() WHERE id = $3",
		paymentRef, models.PaymentStatusPending, orderID)
	return err
}
