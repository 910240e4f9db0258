package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProductLine describes one checkout line sent to the payment provider.
type ProductLine struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Amount      int64  `json:"amount"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
}

// TransactionRequest creates a hosted payment-link transaction.
type TransactionRequest struct {
	MethodOfPayment []string          `json:"method_of_payment"`
	Products        []ProductLine     `json:"products"`
	SuccessURL      string            `json:"success_url"`
	ErrorURL        string            `json:"error_url"`
	IsEscrow        bool              `json:"is_escrow"`
	IsMerchant      bool              `json:"is_merchant"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// TransactionResponse is the provider's reply to a created transaction.
type TransactionResponse struct {
	OrderID           string   `json:"order_id"`
	MethodOfPayment   []string `json:"method_of_payment"`
	Amount            int64    `json:"amount"`
	AmountToPay       int64    `json:"amount_to_pay"`
	Currency          string   `json:"currency"`
	CreatedAt         string   `json:"created_at"`
	TransactionStatus string   `json:"transaction_status"`
	CheckoutURL       string   `json:"checkout_url"`
}

// ValidationDetail is one structured provider validation failure. Loc mixes
// strings and array indexes, e.g. ["body","products",0,"amount"].
type ValidationDetail struct {
	Loc []interface{} `json:"loc"`
	Msg string        `json:"msg"`
}

func (d ValidationDetail) locString() string {
	parts := make([]string, 0, len(d.Loc))
	for _, p := range d.Loc {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ".")
}

// APIError carries the provider's structured error body.
type APIError struct {
	StatusCode int
	Detail     []ValidationDetail
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment provider error (status %d): %s", e.StatusCode, e.UserMessage())
}

// UserMessage extracts a human-readable message, preferring the first
// structured validation detail.
func (e *APIError) UserMessage() string {
	if len(e.Detail) > 0 && e.Detail[0].Msg != "" {
		msg := e.Detail[0].Msg
		if len(e.Detail[0].Loc) > 0 {
			msg += fmt.Sprintf(" (%s)", e.Detail[0].locString())
		}
		return msg
	}
	if e.Message != "" {
		return e.Message
	}
	return "failed to create payment transaction"
}

// Client talks to the hosted payment-link provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a payment provider client. The timeout bounds the whole
// payment-link request so a hung provider cannot stall checkout indefinitely.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateTransaction requests a payment link for the given transaction.
func (c *Client) CreateTransaction(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.baseURL+"/transaction/create-transaction", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment provider request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Detail  json.RawMessage `json:"detail"`
			Message string          `json:"message"`
			Error   string          `json:"error"`
		}
		if json.Unmarshal(respBody, &errBody) == nil {
			// detail is a list of {loc,msg} for validation failures but a
			// plain string for some transport errors.
			if len(errBody.Detail) > 0 {
				if err := json.Unmarshal(errBody.Detail, &apiErr.Detail); err != nil {
					var s string
					if json.Unmarshal(errBody.Detail, &s) == nil {
						apiErr.Message = s
					}
				}
			}
			if apiErr.Message == "" {
				if errBody.Message != "" {
					apiErr.Message = errBody.Message
				} else if errBody.Error != "" {
					apiErr.Message = errBody.Error
				}
			}
		}
		return nil, apiErr
	}

	var txResp TransactionResponse
	if err := json.Unmarshal(respBody, &txResp); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}
	return &txResp, nil
}
