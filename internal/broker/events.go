package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"storefront-service/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	changes  *Producer
	payments *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(changes, payments *Producer) *EventPublisher {
	return &EventPublisher{changes: changes, payments: payments}
}

// PublishEntityChanged publishes a targeted change notification for one row
// of a watched table.
func (ep *EventPublisher) PublishEntityChanged(ctx context.Context, entity, op, entityID string) error {
	event := &models.EntityChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeEntityChanged,
			Timestamp: time.Now(),
		},
		Entity:   entity,
		Op:       op,
		EntityID: entityID,
	}
	key := fmt.Sprintf("%s-%s", entity, entityID)
	return ep.changes.PublishEvent(ctx, key, event)
}

// PublishPaymentCompleted broadcasts a finalized payment for listening views.
func (ep *EventPublisher) PublishPaymentCompleted(ctx context.Context, orderID, status string) error {
	event := &models.PaymentCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentCompleted,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		Status:  status,
	}
	key := fmt.Sprintf("order-%s", orderID)
	return ep.payments.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming events to registered callbacks
type EventHandler struct {
	onEntityChanged    func(context.Context, *models.EntityChangedEvent) error
	onPaymentCompleted func(context.Context, *models.PaymentCompletedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnEntityChanged registers a handler for EntityChanged events
func (eh *EventHandler) OnEntityChanged(handler func(context.Context, *models.EntityChangedEvent) error) {
	eh.onEntityChanged = handler
}

// OnPaymentCompleted registers a handler for PaymentCompleted events
func (eh *EventHandler) OnPaymentCompleted(handler func(context.Context, *models.PaymentCompletedEvent) error) {
	eh.onPaymentCompleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeEntityChanged:
		if eh.onEntityChanged != nil {
			var event models.EntityChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal EntityChanged event: %w", err)
			}
			return eh.onEntityChanged(ctx, &event)
		}

	case models.EventTypePaymentCompleted:
		if eh.onPaymentCompleted != nil {
			var event models.PaymentCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentCompleted event: %w", err)
			}
			return eh.onPaymentCompleted(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
