package models

import (
	"fmt"
	"time"
)

// Product is a catalog entry with an aggregate stock count.
type Product struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Price       int64     `db:"price" json:"price"`
	ImageURL    string    `db:"image_url" json:"image_url,omitempty"`
	Category    string    `db:"category" json:"category,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	Stock       int       `db:"stock" json:"stock"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	Variants []ProductVariant `db:"-" json:"variants,omitempty"`
}

// ProductVariant is a named option (color, size) with its own sub-stock.
// Variant sets are replaced wholesale when the parent product is edited.
type ProductVariant struct {
	ID        string `db:"id" json:"id"`
	ProductID string `db:"product_id" json:"product_id"`
	Type      string `db:"type" json:"type"`
	Value     string `db:"value" json:"value"`
	Stock     int    `db:"stock" json:"stock"`
}

// Variant types used by the storefront.
const (
	VariantTypeColor = "color"
	VariantTypeSize  = "size"
)

// Order represents a customer order.
type Order struct {
	ID                string    `db:"id" json:"id"`
	OrderNumber       int64     `db:"order_number" json:"order_number"`
	Status            string    `db:"status" json:"status"`
	TotalAmount       int64     `db:"total_amount" json:"total_amount"`
	DeliveryFee       int64     `db:"delivery_fee" json:"delivery_fee"`
	CustomerFirstName string    `db:"customer_first_name" json:"customer_first_name"`
	CustomerLastName  string    `db:"customer_last_name" json:"customer_last_name"`
	CustomerPhone     string    `db:"customer_phone" json:"customer_phone"`
	CustomerAddress   string    `db:"customer_address" json:"customer_address"`
	PaymentMethod     string    `db:"payment_method" json:"payment_method"`
	PaymentStatus     *string   `db:"payment_status" json:"payment_status,omitempty"`
	PaymentRef        *string   `db:"payment_ref" json:"payment_ref,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`

	Items []OrderItem `db:"-" json:"items,omitempty"`
}

// OrderItem is a denormalized line snapshot: product name, price and image are
// copied at order time so later product edits never alter order history.
type OrderItem struct {
	ID           string  `db:"id" json:"id"`
	OrderID      string  `db:"order_id" json:"order_id"`
	ProductID    string  `db:"product_id" json:"product_id"`
	ProductName  string  `db:"product_name" json:"product_name"`
	Quantity     int     `db:"quantity" json:"quantity"`
	UnitPrice    int64   `db:"unit_price" json:"unit_price"`
	TotalPrice   int64   `db:"total_price" json:"total_price"`
	ColorVariant *string `db:"color_variant" json:"color_variant,omitempty"`
	SizeVariant  *string `db:"size_variant" json:"size_variant,omitempty"`
	ImageURL     *string `db:"product_image_url" json:"product_image_url,omitempty"`
}

// AdminSettings is a singleton row; absence is tolerated and defaults fill in.
type AdminSettings struct {
	ID           string    `db:"id" json:"id"`
	CompanyName  string    `db:"company_name" json:"company_name"`
	HeroTitle    string    `db:"hero_title" json:"hero_title"`
	HeroSubtitle string    `db:"hero_subtitle" json:"hero_subtitle"`
	HeroImageURL string    `db:"hero_image_url" json:"hero_image_url,omitempty"`
	LogoURL      string    `db:"logo_url" json:"logo_url,omitempty"`
	FooterText   string    `db:"footer_text" json:"footer_text,omitempty"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Order statuses
const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusPreparing      = "preparing"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// Payment statuses
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// Payment methods
const (
	PaymentMethodOrangeMoney    = "orange_money"
	PaymentMethodWave           = "wave"
	PaymentMethodCashOnDelivery = "cash_on_delivery"
)

var statusRank = map[string]int{
	OrderStatusPending:        0,
	OrderStatusConfirmed:      1,
	OrderStatusPreparing:      2,
	OrderStatusOutForDelivery: 3,
	OrderStatusDelivered:      4,
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
// Statuses advance forward only; cancelled is terminal and reachable from any
// non-terminal state.
func CanTransition(from, to string) bool {
	if !ValidStatus(from) || !ValidStatus(to) {
		return false
	}
	if from == OrderStatusCancelled || from == OrderStatusDelivered {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	return statusRank[to] > statusRank[from]
}

// ValidPaymentMethod reports whether m is a supported payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodOrangeMoney, PaymentMethodWave, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

// ValidateVariantStocks rejects a variant set whose per-type stock sum exceeds
// the product's aggregate stock. Each type (color, size) partitions the same
// physical units, so every type's sum is checked independently.
func ValidateVariantStocks(totalStock int, variants []ProductVariant) error {
	if totalStock < 0 {
		return fmt.Errorf("product stock must not be negative, got %d", totalStock)
	}
	sums := make(map[string]int)
	for _, v := range variants {
		if v.Stock < 0 {
			return fmt.Errorf("variant %s=%s stock must not be negative, got %d", v.Type, v.Value, v.Stock)
		}
		if v.Type == "" || v.Value == "" {
			return fmt.Errorf("variant type and value are required")
		}
		sums[v.Type] += v.Stock
	}
	for typ, sum := range sums {
		if sum > totalStock {
			return fmt.Errorf("%s variant stocks sum to %d, exceeding product stock %d", typ, sum, totalStock)
		}
	}
	return nil
}
