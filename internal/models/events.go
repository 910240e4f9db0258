package models

import "time"

// Event types
const (
	EventTypeEntityChanged    = "ENTITY_CHANGED"
	EventTypePaymentCompleted = "PAYMENT_COMPLETED"
)

// Change operations carried by EntityChangedEvent.
const (
	ChangeOpUpsert = "UPSERT"
	ChangeOpDelete = "DELETE"
)

// Entity names carried by EntityChangedEvent.
const (
	EntityProducts = "products"
	EntityVariants = "product_variants"
	EntityOrders   = "orders"
	EntitySettings = "admin_settings"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// EntityChangedEvent is published whenever a row of a watched table changes.
// Consumers apply a targeted upsert or delete for the named entity id instead
// of re-reading the whole table.
type EntityChangedEvent struct {
	BaseEvent
	Entity   string `json:"entity"`
	Op       string `json:"op"`
	EntityID string `json:"entity_id"`
}

// PaymentCompletedEvent is broadcast after a payment confirmation finalizes an
// order, for any listening order view.
type PaymentCompletedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}
