package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateVariantStocks(t *testing.T) {
	variants := []ProductVariant{
		{Type: VariantTypeColor, Value: "red", Stock: 3},
		{Type: VariantTypeColor, Value: "blue", Stock: 2},
		{Type: VariantTypeSize, Value: "M", Stock: 5},
	}

	assert.NoError(t, ValidateVariantStocks(5, variants))
	assert.NoError(t, ValidateVariantStocks(10, variants))

	// Color sum 5 exceeds a total of 4.
	assert.Error(t, ValidateVariantStocks(4, variants))

	assert.Error(t, ValidateVariantStocks(-1, nil))
	assert.Error(t, ValidateVariantStocks(5, []ProductVariant{{Type: VariantTypeColor, Value: "red", Stock: -2}}))
	assert.Error(t, ValidateVariantStocks(5, []ProductVariant{{Type: "", Value: "red", Stock: 1}}))
	assert.NoError(t, ValidateVariantStocks(0, nil))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusConfirmed))
	assert.True(t, CanTransition(OrderStatusConfirmed, OrderStatusPreparing))
	assert.True(t, CanTransition(OrderStatusPreparing, OrderStatusOutForDelivery))
	assert.True(t, CanTransition(OrderStatusOutForDelivery, OrderStatusDelivered))

	// Forward jumps are allowed, moving backwards is not.
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusDelivered))
	assert.False(t, CanTransition(OrderStatusPreparing, OrderStatusConfirmed))
	assert.False(t, CanTransition(OrderStatusConfirmed, OrderStatusConfirmed))

	// Cancelled is reachable from any non-terminal state and is terminal.
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusCancelled))
	assert.True(t, CanTransition(OrderStatusOutForDelivery, OrderStatusCancelled))
	assert.False(t, CanTransition(OrderStatusDelivered, OrderStatusCancelled))
	assert.False(t, CanTransition(OrderStatusCancelled, OrderStatusPending))

	assert.False(t, CanTransition("bogus", OrderStatusConfirmed))
	assert.False(t, CanTransition(OrderStatusPending, "bogus"))
}

func TestValidPaymentMethod(t *testing.T) {
	assert.True(t, ValidPaymentMethod(PaymentMethodOrangeMoney))
	assert.True(t, ValidPaymentMethod(PaymentMethodWave))
	assert.True(t, ValidPaymentMethod(PaymentMethodCashOnDelivery))
	assert.False(t, ValidPaymentMethod("card"))
}
