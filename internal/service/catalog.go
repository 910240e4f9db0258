package service

import (
	"context"
	"fmt"

	"storefront-service/internal/broker"
	"storefront-service/internal/catalog"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// CatalogService serves the public read path and the admin write path for
// products, orders and settings.
type CatalogService struct {
	store             *store.Store
	index             *catalog.Index
	eventPublisher    *broker.EventPublisher
	lowStockThreshold int
	logger            *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	store *store.Store,
	index *catalog.Index,
	eventPublisher *broker.EventPublisher,
	lowStockThreshold int,
) *CatalogService {
	return &CatalogService{
		store:             store,
		index:             index,
		eventPublisher:    eventPublisher,
		lowStockThreshold: lowStockThreshold,
		logger:            util.GetLogger(),
	}
}

// ListProducts returns active products, newest first. The warm in-memory
// index serves reads between change events; a cold index falls back to the
// store.
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	if s.index != nil && s.index.Warm() {
		return s.index.List(), nil
	}
	return s.store.GetActiveProducts(ctx)
}

// GetProduct retrieves a product with its variants
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.store.GetProductByID(ctx, id)
}

// CreateProduct validates the variant set and inserts the product.
func (s *CatalogService) CreateProduct(ctx context.Context, product *models.Product) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if product.Name == "" {
		return &ValidationError{Message: "product name is required"}
	}
	if product.Price < 0 {
		return &ValidationError{Message: "product price must not be negative"}
	}
	if err := models.ValidateVariantStocks(product.Stock, product.Variants); err != nil {
		return &ValidationError{Message: err.Error()}
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name))
	s.publishChange(ctx, models.EntityProducts, models.ChangeOpUpsert, product.ID)
	return nil
}

// UpdateProduct validates the variant set and replaces it wholesale.
func (s *CatalogService) UpdateProduct(ctx context.Context, product *models.Product) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	if product.ID == "" {
		return &ValidationError{Message: "product id is required"}
	}
	if err := models.ValidateVariantStocks(product.Stock, product.Variants); err != nil {
		return &ValidationError{Message: err.Error()}
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	s.publishChange(ctx, models.EntityProducts, models.ChangeOpUpsert, product.ID)
	return nil
}

// UpdateOrderStatus applies an admin status change, allowing only legal
// transitions.
func (s *CatalogService) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateOrderStatus")
	defer span.End()

	if !models.ValidStatus(status) {
		return &ValidationError{Message: fmt.Sprintf("unknown status: %s", status)}
	}

	order, err := s.store.GetOrderWithItems(ctx, orderID)
	if err != nil {
		return err
	}
	if !models.CanTransition(order.Status, status) {
		return &ValidationError{Message: fmt.Sprintf(
			"order cannot move from %s to %s", order.Status, status)}
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return err
	}
	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("from", order.Status),
		zap.String("to", status))
	s.publishChange(ctx, models.EntityOrders, models.ChangeOpUpsert, orderID)
	return nil
}

// GetSettings returns the singleton settings, defaults when absent.
func (s *CatalogService) GetSettings(ctx context.Context) (*models.AdminSettings, error) {
	return s.store.GetSettings(ctx)
}

// UpdateSettings writes the singleton settings row.
func (s *CatalogService) UpdateSettings(ctx context.Context, settings *models.AdminSettings) error {
	if settings.CompanyName == "" {
		return &ValidationError{Message: "company name is required"}
	}
	if err := s.store.UpsertSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	s.publishChange(ctx, models.EntitySettings, models.ChangeOpUpsert, settings.ID)
	return nil
}

// GetDashboardStats aggregates today's activity for the admin dashboard.
func (s *CatalogService) GetDashboardStats(ctx context.Context) (*store.DashboardStats, error) {
	return s.store.GetDashboardStats(ctx, s.lowStockThreshold)
}

func (s *CatalogService) publishChange(ctx context.Context, entity, op, id string) {
	if err := s.eventPublisher.PublishEntityChanged(ctx, entity, op, id); err != nil {
		s.logger.Error("Failed to publish change event",
			zap.String("entity", entity),
			zap.String("entity_id", id),
			zap.Error(err))
	}
}
