package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/cart"
	"storefront-service/internal/models"
	"storefront-service/internal/payment"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// ValidationError reports a rejected checkout request. No writes have
// happened when one is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// CheckoutConfig carries the business constants of the placement workflow.
type CheckoutConfig struct {
	DeliveryFee       int64
	WavePhonePrefixes []string
	CallbackBaseURL   string
}

// CheckoutService runs the order placement workflow.
type CheckoutService struct {
	store          *store.Store
	carts          *cart.Service
	payments       *payment.Client
	eventPublisher *broker.EventPublisher
	cfg            CheckoutConfig
	logger         *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	store *store.Store,
	carts *cart.Service,
	payments *payment.Client,
	eventPublisher *broker.EventPublisher,
	cfg CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		store:          store,
		carts:          carts,
		payments:       payments,
		eventPublisher: eventPublisher,
		cfg:            cfg,
		logger:         util.GetLogger(),
	}
}

// CheckoutRequest represents a checkout submission
type CheckoutRequest struct {
	SessionID     string `json:"session_id" binding:"required"`
	FirstName     string `json:"first_name" binding:"required"`
	LastName      string `json:"last_name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	Address       string `json:"address" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// CheckoutResult is returned after a successful placement.
type CheckoutResult struct {
	OrderID     string `json:"order_id"`
	OrderNumber int64  `json:"order_number"`
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	TrackingURL string `json:"tracking_url"`
}

// PlaceOrder validates the cart and customer fields, persists the order, and
// for mobile-money methods creates the hosted payment link. Cash orders are
// confirmed and their stock decremented inline, since there is no external
// payment step to wait for.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceOrder")
	defer span.End()

	items, err := s.carts.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if err := s.validate(req, items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	order := &models.Order{
		CustomerFirstName: strings.TrimSpace(req.FirstName),
		CustomerLastName:  strings.TrimSpace(req.LastName),
		CustomerPhone:     req.Phone,
		CustomerAddress:   strings.TrimSpace(req.Address),
		PaymentMethod:     req.PaymentMethod,
		DeliveryFee:       s.cfg.DeliveryFee,
		TotalAmount:       cart.Subtotal(items) + s.cfg.DeliveryFee,
	}
	orderItems := buildOrderItems(items)

	if req.PaymentMethod == models.PaymentMethodCashOnDelivery {
		return s.placeCashOrder(ctx, req.SessionID, order, orderItems)
	}
	return s.placePaidOrder(ctx, req, order, orderItems)
}

func (s *CheckoutService) validate(req *CheckoutRequest, items []cart.Item) error {
	if len(items) == 0 {
		return &ValidationError{Message: "cart is empty"}
	}
	for field, value := range map[string]string{
		"first_name": req.FirstName,
		"last_name":  req.LastName,
		"phone":      req.Phone,
		"address":    req.Address,
	} {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Message: fmt.Sprintf("%s is required", field)}
		}
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return &ValidationError{Message: fmt.Sprintf("unknown payment method: %s", req.PaymentMethod)}
	}

	// Wave payment links require an international number from an accepted
	// country, a provider-side constraint.
	if req.PaymentMethod == models.PaymentMethodWave {
		cleaned := strings.ReplaceAll(req.Phone, " ", "")
		accepted := false
		for _, prefix := range s.cfg.WavePhonePrefixes {
			if strings.HasPrefix(cleaned, prefix) {
				accepted = true
				break
			}
		}
		if !accepted {
			return &ValidationError{Message: fmt.Sprintf(
				"wave payments require an international phone number (%s)",
				strings.Join(s.cfg.WavePhonePrefixes, ", "))}
		}
	}
	return nil
}

func (s *CheckoutService) placeCashOrder(ctx context.Context, sessionID string, order *models.Order, items []models.OrderItem) (*CheckoutResult, error) {
	if err := s.store.PlaceCashOrder(ctx, order, items); err != nil {
		var stockErr *store.StockError
		if errors.As(err, &stockErr) {
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		} else {
			util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		}
		return nil, err
	}

	util.OrdersPlacedTotal.WithLabelValues(order.PaymentMethod).Inc()
	s.logger.Info("Cash order placed",
		zap.String("order_id", order.ID),
		zap.Int64("order_number", order.OrderNumber))

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to clear cart after cash order",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	s.publishOrderChanges(ctx, order.ID, items)

	return &CheckoutResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		TrackingURL: s.trackingURL(order),
	}, nil
}

func (s *CheckoutService) placePaidOrder(ctx context.Context, req *CheckoutRequest, order *models.Order, items []models.OrderItem) (*CheckoutResult, error) {
	// Pre-flight availability check. This is not a reservation: stock is only
	// decremented by the confirmation handler once the provider reports
	// payment, so a race between check and decrement remains possible.
	for _, item := range items {
		product, err := s.store.GetProductByID(ctx, item.ProductID)
		if err != nil {
			util.OrdersFailedTotal.WithLabelValues("unknown_product").Inc()
			return nil, err
		}
		if product.Stock < item.Quantity {
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, &store.StockError{ProductName: product.Name, Remaining: product.Stock}
		}
	}

	if err := s.store.CreateOrder(ctx, order, items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int64("order_number", order.OrderNumber),
		zap.String("payment_method", order.PaymentMethod))

	txResp, err := s.createPaymentLink(ctx, req, order, items)
	if err != nil {
		// The order stays pending and unpaid for manual reconciliation; there
		// is no automatic rollback of the already-inserted rows.
		util.PaymentLinkFailedTotal.WithLabelValues("provider_error").Inc()
		s.logger.Error("Payment link creation failed, order left pending",
			zap.String("order_id", order.ID), zap.Error(err))

		return nil, fmt.Errorf("failed to create payment transaction: %w", err)
	}

	if err := s.store.SetPaymentRef(ctx, order.ID, txResp.OrderID); err != nil {
		return nil, fmt.Errorf("failed to store payment reference: %w", err)
	}

	util.OrdersPlacedTotal.WithLabelValues(order.PaymentMethod).Inc()
	s.publishOrderChanges(ctx, order.ID, nil)

	return &CheckoutResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		CheckoutURL: txResp.CheckoutURL,
		TrackingURL: s.trackingURL(order),
	}, nil
}

func (s *CheckoutService) createPaymentLink(ctx context.Context, req *CheckoutRequest, order *models.Order, items []models.OrderItem) (*payment.TransactionResponse, error) {
	start := time.Now()
	defer func() {
		util.PaymentLinkLatency.Observe(time.Since(start).Seconds())
	}()

	method := "ORANGE_MONEY"
	if req.PaymentMethod == models.PaymentMethodWave {
		method = "WAVE"
	}

	lines := make([]payment.ProductLine, 0, len(items))
	for _, item := range items {
		desc := item.ProductName
		if item.ColorVariant != nil && *item.ColorVariant != "" {
			desc += " - Color: " + *item.ColorVariant
		}
		if item.SizeVariant != nil && *item.SizeVariant != "" {
			desc += " - Size: " + *item.SizeVariant
		}
		lines = append(lines, payment.ProductLine{
			Name:        truncate(item.ProductName, 100),
			Category:    "General",
			Amount:      item.UnitPrice,
			Quantity:    item.Quantity,
			Description: truncate(desc, 200),
		})
	}

	base := strings.TrimRight(s.cfg.CallbackBaseURL, "/")
	txReq := &payment.TransactionRequest{
		MethodOfPayment: []string{method},
		Products:        lines,
		SuccessURL:      fmt.Sprintf("%s/order-success?order_id=%s", base, order.ID),
		ErrorURL:        fmt.Sprintf("%s/order-error?order_id=%s", base, order.ID),
		IsEscrow:        false,
		IsMerchant:      false,
		Metadata: map[string]string{
			"order_id":       order.ID,
			"customer_phone": strings.ReplaceAll(order.CustomerPhone, " ", ""),
		},
	}

	return s.payments.CreateTransaction(ctx, txReq)
}

func (s *CheckoutService) publishOrderChanges(ctx context.Context, orderID string, decremented []models.OrderItem) {
	if err := s.eventPublisher.PublishEntityChanged(ctx, models.EntityOrders, models.ChangeOpUpsert, orderID); err != nil {
		s.logger.Error("Failed to publish order change", zap.Error(err))
	}
	for _, item := range decremented {
		if err := s.eventPublisher.PublishEntityChanged(ctx, models.EntityProducts, models.ChangeOpUpsert, item.ProductID); err != nil {
			s.logger.Error("Failed to publish product change", zap.Error(err))
		}
	}
}

func (s *CheckoutService) trackingURL(order *models.Order) string {
	q := url.Values{}
	q.Set("phone", order.CustomerPhone)
	q.Set("order_id", order.ID)
	return "/order-tracking?" + q.Encode()
}

func buildOrderItems(items []cart.Item) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		orderItem := models.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price,
			TotalPrice:  it.Price * int64(it.Quantity),
		}
		if it.Color != "" {
			color := it.Color
			orderItem.ColorVariant = &color
		}
		if it.Size != "" {
			size := it.Size
			orderItem.SizeVariant = &size
		}
		if it.ImageURL != "" {
			image := it.ImageURL
			orderItem.ImageURL = &image
		}
		out = append(out, orderItem)
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
