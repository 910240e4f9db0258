package service

import (
	"net/url"
	"testing"

	"storefront-service/internal/cart"
	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCheckout() *CheckoutService {
	return &CheckoutService{
		cfg: CheckoutConfig{
			DeliveryFee:       2000,
			WavePhonePrefixes: []string{"+221", "+226"},
			CallbackBaseURL:   "https://shop.example.com",
		},
	}
}

func validRequest(method string) *CheckoutRequest {
	return &CheckoutRequest{
		SessionID:     "sess-1",
		FirstName:     "Awa",
		LastName:      "Diop",
		Phone:         "+221771234567",
		Address:       "Dakar, Plateau",
		PaymentMethod: method,
	}
}

func someItems() []cart.Item {
	return []cart.Item{
		{ProductID: "p1", Name: "T-shirt", Price: 5000, Quantity: 2, Color: "red"},
		{ProductID: "p2", Name: "Cap", Price: 3000, Quantity: 1},
	}
}

func TestValidateEmptyCart(t *testing.T) {
	s := newTestCheckout()

	err := s.validate(validRequest(models.PaymentMethodCashOnDelivery), nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "cart is empty")
}

func TestValidateMissingFields(t *testing.T) {
	s := newTestCheckout()

	for _, mutate := range []func(*CheckoutRequest){
		func(r *CheckoutRequest) { r.FirstName = "" },
		func(r *CheckoutRequest) { r.LastName = "  " },
		func(r *CheckoutRequest) { r.Phone = "" },
		func(r *CheckoutRequest) { r.Address = "" },
	} {
		req := validRequest(models.PaymentMethodOrangeMoney)
		mutate(req)

		err := s.validate(req, someItems())
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	}
}

func TestValidateUnknownPaymentMethod(t *testing.T) {
	s := newTestCheckout()

	err := s.validate(validRequest("paypal"), someItems())

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "unknown payment method")
}

func TestValidateWavePhonePrefix(t *testing.T) {
	s := newTestCheckout()

	req := validRequest(models.PaymentMethodWave)
	req.Phone = "771234567"
	err := s.validate(req, someItems())
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	// Whitespace is stripped before the prefix check.
	req.Phone = "+221 77 123 45 67"
	assert.NoError(t, s.validate(req, someItems()))

	req.Phone = "+226 70 111 22 33"
	assert.NoError(t, s.validate(req, someItems()))

	// Other methods accept local numbers.
	local := validRequest(models.PaymentMethodOrangeMoney)
	local.Phone = "771234567"
	assert.NoError(t, s.validate(local, someItems()))
}

func TestTotalAmountIncludesDeliveryFee(t *testing.T) {
	items := someItems()

	subtotal := cart.Subtotal(items)
	assert.Equal(t, int64(2*5000+3000), subtotal)

	s := newTestCheckout()
	total := subtotal + s.cfg.DeliveryFee
	assert.Equal(t, int64(15000), total)
}

func TestBuildOrderItemsSnapshots(t *testing.T) {
	items := []cart.Item{
		{ProductID: "p1", Name: "T-shirt", Price: 5000, Quantity: 3, Color: "red", Size: "M", ImageURL: "https://img/p1.png"},
		{ProductID: "p2", Name: "Cap", Price: 3000, Quantity: 1},
	}

	orderItems := buildOrderItems(items)
	require.Len(t, orderItems, 2)

	first := orderItems[0]
	assert.Equal(t, "p1", first.ProductID)
	assert.Equal(t, "T-shirt", first.ProductName)
	assert.Equal(t, int64(15000), first.TotalPrice)
	require.NotNil(t, first.ColorVariant)
	assert.Equal(t, "red", *first.ColorVariant)
	require.NotNil(t, first.SizeVariant)
	assert.Equal(t, "M", *first.SizeVariant)
	require.NotNil(t, first.ImageURL)

	second := orderItems[1]
	assert.Nil(t, second.ColorVariant)
	assert.Nil(t, second.SizeVariant)
	assert.Nil(t, second.ImageURL)
	assert.Equal(t, int64(3000), second.TotalPrice)
}

func TestTrackingURLEscapesQueryValues(t *testing.T) {
	s := newTestCheckout()

	got := s.trackingURL(&models.Order{
		ID:            "ord-1",
		CustomerPhone: "+221 77 123 45 67",
	})
	assert.Equal(t, "/order-tracking?order_id=ord-1&phone=%2B221+77+123+45+67", got)

	// The plus sign and spaces survive a round trip through the query parser.
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "+221 77 123 45 67", u.Query().Get("phone"))
	assert.Equal(t, "ord-1", u.Query().Get("order_id"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 100))
	assert.Equal(t, "abcde", truncate("abcdefgh", 5))
}
