package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// SignatureHeader is the header Paystack signs webhook deliveries with.
const SignatureHeader = "X-Paystack-Signature"

var ErrInvalidSignature = errors.New("webhook signature mismatch")

// Event names we act on. Everything else is acknowledged without action so
// the gateway never retries events we don't care about.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// Verifier authenticates webhook deliveries before any payload field is
// trusted. Paystack signs the exact raw body with HMAC-SHA512 over the
// shared secret; we recompute and compare in constant time.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("webhook secret is required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify checks signature (hex) against the raw request body.
// Any mismatch rejects the delivery outright; no payload parsing happens
// on an unverified body.
func (v *Verifier) Verify(rawBody []byte, signature string) error {
	mac := hmac.New(sha512.New, v.secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal is constant-time.
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// WebhookEvent is the envelope Paystack posts. Only fields we consume are
// modeled; the raw body stays authoritative for signature purposes.
type WebhookEvent struct {
	Event string            `json:"event"`
	Data  WebhookChargeData `json:"data"`
}

type WebhookChargeData struct {
	Reference   string `json:"reference"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

// ParseEvent decodes a verified body. Call Verify first.
func ParseEvent(rawBody []byte) (WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return WebhookEvent{}, err
	}
	return ev, nil
}
