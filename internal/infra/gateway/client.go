package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"event-ticketing/internal/pkg/config"
	"event-ticketing/internal/pkg/errs"
	"event-ticketing/internal/usecase/commands"
)

// Client talks to the payment provider's REST API. It implements
// commands.PaymentGateway and is the only component allowed to leave the
// process boundary; every call carries the configured timeout.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		hc:      &http.Client{Timeout: cfg.Timeout},
	}
}

type checkoutSessionRequest struct {
	Reference     string `json:"reference"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
	SuccessURL    string `json:"success_url"`
	CancelURL     string `json:"cancel_url"`
	ExpiresAt     string `json:"expires_at"`
	Metadata      struct {
		OrderID string `json:"order_id"`
	} `json:"metadata"`
}

type checkoutSessionResponse struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req commands.CheckoutSessionRequest) (*commands.CheckoutSession, error) {
	body := checkoutSessionRequest{
		Reference:     req.OrderNumber,
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
		ExpiresAt:     req.ExpiresAt.UTC().Format(time.RFC3339),
	}
	body.Metadata.OrderID = req.OrderID.String()

	var resp checkoutSessionResponse
	if err := c.post(ctx, "/v1/checkout/sessions", body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" || resp.URL == "" {
		return nil, errs.New("gateway returned an incomplete checkout session")
	}
	return &commands.CheckoutSession{ID: resp.ID, URL: resp.URL, ExpiresAt: resp.ExpiresAt}, nil
}

type refundRequest struct {
	PaymentID   string `json:"payment_id"`
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason,omitempty"`
}

type refundResponse struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount_cents"`
}

func (c *Client) CreateRefund(ctx context.Context, req commands.RefundRequest) (*commands.RefundResult, error) {
	body := refundRequest{
		PaymentID:   req.GatewayPaymentID,
		AmountCents: req.AmountCents,
		Reason:      req.Reason,
	}

	var resp refundResponse
	if err := c.post(ctx, "/v1/refunds", body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, errs.New("gateway returned an incomplete refund")
	}
	return &commands.RefundResult{ID: resp.ID, AmountCents: resp.AmountCents}, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return errs.Wrap(err, "failed to encode gateway request")
	}

	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return errs.Wrap(err, "failed to build gateway request")
	}
	hr.Header.Set("Content-Type", "application/json")
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("Authorization", "Bearer "+c.apiKey)

	hresp, err := c.hc.Do(hr)
	if err != nil {
		return errs.Wrap(err, "gateway request failed")
	}
	defer hresp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(hresp.Body, 1<<20))
	if err != nil {
		return errs.Wrap(err, "failed to read gateway response")
	}
	if hresp.StatusCode < 200 || hresp.StatusCode > 299 {
		return errs.New(fmt.Sprintf("gateway returned status %d: %s", hresp.StatusCode, truncate(raw, 512)))
	}
	if err := json.Unmarshal(raw, respBody); err != nil {
		return errs.Wrap(err, "failed to decode gateway response")
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
