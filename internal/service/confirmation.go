package service

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// paymentSeenTTL bounds how long a confirmed order's marker suppresses
// duplicate provider redirects before the database guard takes over alone.
const paymentSeenTTL = 24 * time.Hour

// orderFinalizer is the slice of the store the confirmation flow needs.
type orderFinalizer interface {
	MarkOrderPaid(ctx context.Context, orderID string) (alreadyPaid bool, productIDs []string, err error)
}

// seenMarker is the fast duplicate-callback guard in front of the database.
type seenMarker interface {
	PaymentSeen(ctx context.Context, orderID string) (bool, error)
	MarkPaymentSeen(ctx context.Context, orderID string, ttl time.Duration) (bool, error)
}

// completionPublisher broadcasts confirmation outcomes to listening views.
type completionPublisher interface {
	PublishEntityChanged(ctx context.Context, entity, op, entityID string) error
	PublishPaymentCompleted(ctx context.Context, orderID, status string) error
}

// ConfirmationService finalizes paid orders. It is invoked by the payment
// provider's success redirect, which may fire more than once for the same
// order; repeated invocations must not decrement stock again.
type ConfirmationService struct {
	store          orderFinalizer
	marker         seenMarker
	eventPublisher completionPublisher
	logger         *zap.Logger
}

// NewConfirmationService creates a new confirmation service
func NewConfirmationService(
	store orderFinalizer,
	marker seenMarker,
	eventPublisher completionPublisher,
) *ConfirmationService {
	return &ConfirmationService{
		store:          store,
		marker:         marker,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// ConfirmationResult reports the outcome of a payment confirmation.
type ConfirmationResult struct {
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	AlreadyProcessed bool   `json:"already_processed"`
}

// ConfirmPayment marks the order paid and confirmed and decrements stock for
// every line item and matching variant, all exactly once. The database guard
// in MarkOrderPaid is authoritative; the Redis marker only short-circuits the
// common duplicate-redirect case, and is written only after the database
// write has settled so a transient store failure never masks a retry.
func (s *ConfirmationService) ConfirmPayment(ctx context.Context, orderID string) (*ConfirmationResult, error) {
	ctx, span := util.StartSpan(ctx, "ConfirmationService.ConfirmPayment")
	defer span.End()

	if orderID == "" {
		return nil, fmt.Errorf("order id is required")
	}

	if s.marker != nil {
		seen, err := s.marker.PaymentSeen(ctx, orderID)
		if err != nil {
			s.logger.Warn("Payment-seen marker unavailable, relying on database guard",
				zap.String("order_id", orderID), zap.Error(err))
		} else if seen {
			util.PaymentsDuplicateTotal.Inc()
			s.logger.Info("Duplicate payment callback ignored",
				zap.String("order_id", orderID))
			return &ConfirmationResult{
				OrderID:          orderID,
				Status:           models.OrderStatusConfirmed,
				AlreadyProcessed: true,
			}, nil
		}
	}

	alreadyPaid, productIDs, err := s.store.MarkOrderPaid(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize order %s: %w", orderID, err)
	}
	s.markSeen(ctx, orderID)

	if alreadyPaid {
		util.PaymentsDuplicateTotal.Inc()
		s.logger.Info("Order already paid, confirmation is a no-op",
			zap.String("order_id", orderID))
		return &ConfirmationResult{
			OrderID:          orderID,
			Status:           models.OrderStatusConfirmed,
			AlreadyProcessed: true,
		}, nil
	}

	util.PaymentsConfirmedTotal.Inc()
	util.StockDecrementsTotal.WithLabelValues("products").Add(float64(len(productIDs)))
	s.logger.Info("Payment confirmed, stock decremented",
		zap.String("order_id", orderID),
		zap.Int("items", len(productIDs)))

	if err := s.eventPublisher.PublishPaymentCompleted(ctx, orderID, "completed"); err != nil {
		s.logger.Error("Failed to broadcast payment completion",
			zap.String("order_id", orderID), zap.Error(err))
	}
	if err := s.eventPublisher.PublishEntityChanged(ctx, models.EntityOrders, models.ChangeOpUpsert, orderID); err != nil {
		s.logger.Error("Failed to publish order change", zap.Error(err))
	}
	for _, productID := range productIDs {
		if err := s.eventPublisher.PublishEntityChanged(ctx, models.EntityProducts, models.ChangeOpUpsert, productID); err != nil {
			s.logger.Error("Failed to publish product change",
				zap.String("product_id", productID), zap.Error(err))
		}
	}

	return &ConfirmationResult{
		OrderID: orderID,
		Status:  models.OrderStatusConfirmed,
	}, nil
}

// markSeen records a settled confirmation. Only ever called after
// MarkOrderPaid returned without error; a marker without a matching database
// write would hide a failed confirmation from the provider's retries.
func (s *ConfirmationService) markSeen(ctx context.Context, orderID string) {
	if s.marker == nil {
		return
	}
	if _, err := s.marker.MarkPaymentSeen(ctx, orderID, paymentSeenTTL); err != nil {
		s.logger.Warn("Failed to record payment-seen marker",
			zap.String("order_id", orderID), zap.Error(err))
	}
}
