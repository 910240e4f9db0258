package service

import (
	"context"
	"strings"
	"unicode"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// TrackingService resolves a customer's orders from their phone number.
type TrackingService struct {
	store       *store.Store
	countryCode string
	logger      *zap.Logger
}

// NewTrackingService creates a new tracking service
func NewTrackingService(store *store.Store, countryCode string) *TrackingService {
	return &TrackingService{
		store:       store,
		countryCode: countryCode,
		logger:      util.GetLogger(),
	}
}

// NormalizePhone reduces a raw phone input to the canonical international
// form orders are stored under. It is a heuristic, not an E.164 parser:
// digits are kept, a number already carrying the country code gets a plus, a
// nine-digit local subscriber number gets the default country code, and
// anything else is prefixed with a plus as a best effort.
func NormalizePhone(raw, countryCode string) string {
	var digits strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	cleaned := digits.String()

	switch {
	case cleaned == "":
		return ""
	case strings.HasPrefix(cleaned, countryCode):
		return "+" + cleaned
	case len(cleaned) == 9:
		return "+" + countryCode + cleaned
	default:
		return "+" + cleaned
	}
}

// FindOrders returns the customer's orders, newest first, each with nested
// items. A phone with no orders yields an empty slice, not an error. When an
// order id hint is given, the result is narrowed to that order.
func (s *TrackingService) FindOrders(ctx context.Context, rawPhone, orderIDHint string) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "TrackingService.FindOrders")
	defer span.End()

	phone := NormalizePhone(rawPhone, s.countryCode)
	if phone == "" {
		return nil, &ValidationError{Message: "phone number is required"}
	}

	orders, err := s.store.GetOrdersByPhone(ctx, phone)
	if err != nil {
		util.OrderLookupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if orderIDHint != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if o.ID == orderIDHint {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}

	if len(orders) == 0 {
		util.OrderLookupsTotal.WithLabelValues("empty").Inc()
	} else {
		util.OrderLookupsTotal.WithLabelValues("found").Inc()
	}

	s.logger.Debug("Order lookup",
		zap.String("phone", phone),
		zap.Int("orders", len(orders)))
	return orders, nil
}
