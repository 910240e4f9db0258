package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product with its variants
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &product.Variants,
		"SELECT * FROM product_variants WHERE product_id = $1 ORDER BY type, value", id)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetActiveProducts retrieves active products, newest first, with nested variants
func (s *Store) GetActiveProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE is_active = TRUE ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []models.Product{}, nil
	}

	ids := make([]string, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}

	query, args, err := sqlx.In(
		"SELECT * FROM product_variants WHERE product_id IN (?) ORDER BY type, value", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var variants []models.ProductVariant
	if err := s.db.SelectContext(ctx, &variants, query, args...); err != nil {
		return nil, err
	}

	byProduct := make(map[string][]models.ProductVariant)
	for _, v := range variants {
		byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
	}
	for i := range products {
		products[i].Variants = byProduct[products[i].ID]
	}
	return products, nil
}

// CreateProduct inserts a product together with its variant set in one
// transaction. The variant set must already satisfy ValidateVariantStocks.
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}

	err = tx.GetContext(ctx, &product.CreatedAt, `
		INSERT INTO products (id, name, description, price, image_url, category, is_active, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		product.ID, product.Name, product.Description, product.Price,
		product.ImageURL, product.Category, product.IsActive, product.Stock)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	if err := insertVariants(ctx, tx, product.ID, product.Variants); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateProduct updates a product and replaces its variant set wholesale:
// old variants are deleted and the new set inserted, never patched in place.
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, price = $3, image_url = $4,
		    category = $5, is_active = $6, stock = $7
		WHERE id = $8`,
		product.Name, product.Description, product.Price, product.ImageURL,
		product.Category, product.IsActive, product.Stock, product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product not found: %s", product.ID)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM product_variants WHERE product_id = $1", product.ID); err != nil {
		return fmt.Errorf("failed to delete old variants: %w", err)
	}
	if err := insertVariants(ctx, tx, product.ID, product.Variants); err != nil {
		return err
	}
	return tx.Commit()
}

func insertVariants(ctx context.Context, tx *sqlx.Tx, productID string, variants []models.ProductVariant) error {
	for i := range variants {
		v := &variants[i]
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		v.ProductID = productID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_variants (id, product_id, type, value, stock)
			VALUES ($1, $2, $3, $4, $5)`,
			v.ID, v.ProductID, v.Type, v.Value, v.Stock)
		if err != nil {
			return fmt.Errorf("failed to insert variant %s=%s: %w", v.Type, v.Value, err)
		}
	}
	return nil
}

// decrementProductStock applies a single clamped decrement. The whole
// read-modify-write happens inside one UPDATE, so concurrent decrements
// serialize on the row and the stored value never goes below zero.
func decrementProductStock(ctx context.Context, ext sqlx.ExtContext, productID string, quantity int) error {
	_, err := ext.ExecContext(ctx,
		"UPDATE products SET stock = GREATEST(stock - $1, 0) WHERE id = $2",
		quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock for product %s: %w", productID, err)
	}
	return nil
}

// decrementVariantStock clamps matching variant rows, matched by
// (product_id, type, value).
func decrementVariantStock(ctx context.Context, ext sqlx.ExtContext, productID, variantType, value string, quantity int) error {
	_, err := ext.ExecContext(ctx, `
		UPDATE product_variants
		SET stock = GREATEST(stock - $1, 0)
		WHERE product_id = $2 AND type = $3 AND value = $4`,
		quantity, productID, variantType, value)
	if err != nil {
		return fmt.Errorf("failed to decrement %s variant stock for product %s: %w", variantType, productID, err)
	}
	return nil
}

// GetSettings returns the singleton settings row, or defaults when absent.
func (s *Store) GetSettings(ctx context.Context) (*models.AdminSettings, error) {
	var settings models.AdminSettings
	err := s.db.GetContext(ctx, &settings,
		"SELECT * FROM admin_settings ORDER BY updated_at DESC LIMIT 1")
	if err == sql.ErrNoRows {
		return &models.AdminSettings{
			CompanyName: "Storefront",
			HeroTitle:   "Welcome",
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpsertSettings writes the singleton settings row.
func (s *Store) UpsertSettings(ctx context.Context, settings *models.AdminSettings) error {
	if settings.ID == "" {
		settings.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_settings (id, company_name, hero_title, hero_subtitle, hero_image_url, logo_url, footer_text, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			hero_title = EXCLUDED.hero_title,
			hero_subtitle = EXCLUDED.hero_subtitle,
			hero_image_url = EXCLUDED.hero_image_url,
			logo_url = EXCLUDED.logo_url,
			footer_text = EXCLUDED.footer_text,
			updated_at = NOW()`,
		settings.ID, settings.CompanyName, settings.HeroTitle, settings.HeroSubtitle,
		settings.HeroImageURL, settings.LogoURL, settings.FooterText)
	return err
}

// DashboardStats aggregates today's activity for the admin dashboard.
type DashboardStats struct {
	TodayOrders      int   `db:"today_orders" json:"today_orders"`
	TodayRevenue     int64 `db:"today_revenue" json:"today_revenue"`
	LowStockProducts int   `db:"low_stock_products" json:"low_stock_products"`
	TotalProducts    int   `db:"total_products" json:"total_products"`
}

// GetDashboardStats counts today's orders and revenue. An order counts as paid
// once its status is at or past confirmed, which also covers cash-on-delivery
// orders that never carry payment_status = paid.
func (s *Store) GetDashboardStats(ctx context.Context, lowStockThreshold int) (*DashboardStats, error) {
	var stats DashboardStats

	err := s.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS today_orders,
			COALESCE(SUM(total_amount), 0) AS today_revenue
		FROM orders
		WHERE created_at >= date_trunc('day', NOW())
		  AND status IN ('confirmed', 'preparing', 'out_for_delivery', 'delivered')`)
	if err != nil {
		return nil, err
	}

	err = s.db.GetContext(ctx, &stats.LowStockProducts,
		"SELECT COUNT(*) FROM products WHERE stock < $1", lowStockThreshold)
	if err != nil {
		return nil, err
	}

	err = s.db.GetContext(ctx, &stats.TotalProducts, "SELECT COUNT(*) FROM products")
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
