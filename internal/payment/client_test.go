package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/transaction/create-transaction", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req TransactionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"WAVE"}, req.MethodOfPayment)
		require.Len(t, req.Products, 1)
		assert.Equal(t, "ord-1", req.Metadata["order_id"])

		json.NewEncoder(w).Encode(TransactionResponse{
			OrderID:           "naboo-123",
			CheckoutURL:       "https://pay.example.com/naboo-123",
			TransactionStatus: "pending",
			Amount:            12000,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", 5*time.Second)
	resp, err := client.CreateTransaction(context.Background(), &TransactionRequest{
		MethodOfPayment: []string{"WAVE"},
		Products: []ProductLine{
			{Name: "T-shirt", Category: "General", Amount: 5000, Quantity: 2, Description: "T-shirt - Color: red"},
		},
		SuccessURL: "https://shop.example.com/order-success?order_id=ord-1",
		ErrorURL:   "https://shop.example.com/order-error?order_id=ord-1",
		Metadata:   map[string]string{"order_id": "ord-1", "customer_phone": "+221771234567"},
	})

	require.NoError(t, err)
	assert.Equal(t, "naboo-123", resp.OrderID)
	assert.Equal(t, "https://pay.example.com/naboo-123", resp.CheckoutURL)
	assert.Equal(t, "pending", resp.TransactionStatus)
}

func TestCreateTransactionValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":[{"loc":["body","products",0,"amount"],"msg":"value must be positive"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", 5*time.Second)
	_, err := client.CreateTransaction(context.Background(), &TransactionRequest{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.UserMessage(), "value must be positive")
}

func TestCreateTransactionStringDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad-key", 5*time.Second)
	_, err := client.CreateTransaction(context.Background(), &TransactionRequest{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid api key", apiErr.UserMessage())
}

func TestCreateTransactionMalformedErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", 5*time.Second)
	_, err := client.CreateTransaction(context.Background(), &TransactionRequest{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "failed to create payment transaction", apiErr.UserMessage())
}

func TestValidationDetailLocJoined(t *testing.T) {
	apiErr := &APIError{
		StatusCode: 422,
		Detail: []ValidationDetail{
			{Loc: []interface{}{"body", "metadata", "customer_phone"}, Msg: "invalid phone"},
			{Loc: []interface{}{"body", "products"}, Msg: "ignored second error"},
		},
	}
	assert.Equal(t, "invalid phone (body.metadata.customer_phone)", apiErr.UserMessage())
}
