package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultGatewayTimeout bounds outbound calls to the payment gateway.
const DefaultGatewayTimeout = 30 * time.Second

// Gateway order statuses.
const (
	OrderCreated   = "created"
	OrderAttempted = "attempted"
	OrderPaid      = "paid"
	OrderFailed    = "failed"
)

// Order is the gateway's view of an order. The live status fetched from
// the gateway, not any client-supplied value, is the authority during
// verification.
type Order struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Receipt     string  `json:"receipt"`
	Status      string  `json:"status"`
	ReferenceID string  `json:"reference_id"`
}

// Gateway abstracts the payment provider's REST API.
type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
}

// ClientConfig holds gateway client configuration.
type ClientConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Mode      string // test or live
	Timeout   time.Duration
}

// Client is the REST client for the payment gateway.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates a payment gateway client.
func NewClient(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultGatewayTimeout
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type createOrderRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt"`
	Mode     string  `json:"mode"`
}

// CreateOrder registers an order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*Order, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Mode:     c.config.Mode,
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/orders", c.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.config.KeyID, c.config.KeySecret)

	return c.do(req)
}

// FetchOrder retrieves the live order state from the gateway.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	endpoint := fmt.Sprintf("%s/v1/orders/%s", c.config.BaseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.config.KeyID, c.config.KeySecret)

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Order, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(detail))
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("payment gateway response decode failed: %w", err)
	}
	return &order, nil
}
