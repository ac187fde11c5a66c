package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/naili/storefront/pkg/config"
	pkgerrors "github.com/naili/storefront/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

var errFunctionURLRequired = errors.New("payment function url is required")

// Client calls the hosted payment-initiation function.
type Client struct {
	httpClient  *http.Client
	functionURL string
	anonKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the payments client from config.
func NewClient(cfg config.PaymentsConfig, opts ...Option) (*Client, error) {
	functionURL := strings.TrimSpace(cfg.FunctionURL)
	if functionURL == "" {
		return nil, errFunctionURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		functionURL: functionURL,
		anonKey:     strings.TrimSpace(cfg.AnonKey),
		httpClient:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Metadata travels with the payment and comes back on the provider webhook.
type Metadata struct {
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id"`
	CartID  string `json:"cart_id,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Request describes a payment to initiate. Amount is in major currency units.
type Request struct {
	Email    string
	FullName string
	Amount   decimal.Decimal
	Metadata Metadata
}

type initiatePayload struct {
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Amount   json.Number `json:"amount"`
	Metadata Metadata    `json:"metadata"`
}

// Initiate asks the function for a hosted checkout URL.
func (c *Client) Initiate(ctx context.Context, req Request) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeRemoteUnavailable, "payments client not configured")
	}
	if strings.TrimSpace(req.Email) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required for payment")
	}
	if !req.Amount.IsPositive() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if strings.TrimSpace(req.Metadata.OrderID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required for payment")
	}

	payload, err := json.Marshal(initiatePayload{
		Email:    strings.TrimSpace(req.Email),
		FullName: strings.TrimSpace(req.FullName),
		Amount:   json.Number(req.Amount.String()),
		Metadata: req.Metadata,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal payment request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.functionURL, bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build payment request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.anonKey)
		httpReq.Header.Set("apikey", c.anonKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "execute payment request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "payment request failed")
	}

	var apiResp struct {
		CheckoutURL string `json:"checkoutUrl"`
		Data        struct {
			AuthorizationURL string `json:"authorization_url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "decode payment response")
	}

	checkoutURL := strings.TrimSpace(apiResp.CheckoutURL)
	if checkoutURL == "" {
		checkoutURL = strings.TrimSpace(apiResp.Data.AuthorizationURL)
	}
	if checkoutURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeRemoteUnavailable, "no checkout url returned")
	}
	return checkoutURL, nil
}
