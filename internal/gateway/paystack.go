package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"wishdrop/internal/config"
)

// Client is the server-side Paystack REST adapter.
//
// Rules:
// - No gateway calls outside this package.
// - Amounts are minor units end to end; Paystack expects kobo for NGN.
// - The secret key must never be logged.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(cfg config.PaystackConfig) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("paystack secret key is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("paystack base url is required")
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type InitializeRequest struct {
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResult is the server-to-server settlement truth for a reference,
// used as the manual reconciliation fallback when webhooks are in doubt.
type VerifyResult struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize opens a checkout for a claim/contribution reference.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error) {
	if req.AmountMinor <= 0 || req.Currency == "" || req.Email == "" || req.Reference == "" {
		return InitializeResult{}, errors.New("amount, currency, email and reference are required")
	}

	var out InitializeResult
	if err := c.post(ctx, "/transaction/initialize", req, &out); err != nil {
		return InitializeResult{}, err
	}
	return out, nil
}

// Verify fetches the gateway's view of a transaction by reference.
func (c *Client) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	if reference == "" {
		return VerifyResult{}, errors.New("reference is required")
	}

	var out VerifyResult
	if err := c.get(ctx, "/transaction/verify/"+url.PathEscape(reference), &out); err != nil {
		return VerifyResult{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paystack: %s returned %d", req.URL.Path, resp.StatusCode)
	}

	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}
	if !env.Status {
		return fmt.Errorf("paystack: %s", env.Message)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
