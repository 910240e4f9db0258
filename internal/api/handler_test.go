package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-service/internal/payment"
	"storefront-service/internal/service"
	"storefront-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation error",
			err:        &service.ValidationError{Message: "cart is empty"},
			wantStatus: http.StatusBadRequest,
			wantBody:   "cart is empty",
		},
		{
			name:       "stock error",
			err:        &store.StockError{ProductName: "Cap", Remaining: 3},
			wantStatus: http.StatusConflict,
			wantBody:   "Cap",
		},
		{
			name: "provider validation error, wrapped",
			err: fmt.Errorf("failed to create payment transaction: %w", &payment.APIError{
				StatusCode: http.StatusUnprocessableEntity,
				Detail: []payment.ValidationDetail{
					{Loc: []interface{}{"body", "products", 0, "amount"}, Msg: "value must be positive"},
				},
			}),
			wantStatus: http.StatusBadRequest,
			wantBody:   "value must be positive",
		},
		{
			name: "provider outage, wrapped",
			err: fmt.Errorf("failed to create payment transaction: %w", &payment.APIError{
				StatusCode: http.StatusBadGateway,
			}),
			wantStatus: http.StatusBadGateway,
			wantBody:   "payment provider unavailable",
		},
		{
			name:       "not found",
			err:        fmt.Errorf("order not found: ord-1"),
			wantStatus: http.StatusNotFound,
			wantBody:   "not found",
		},
		{
			name:       "unclassified error",
			err:        errors.New("connection reset by peer"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "connection reset",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tc.err)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
		})
	}
}
