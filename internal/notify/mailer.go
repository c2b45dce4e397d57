package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"wishdrop/internal/config"
)

// Message is the single send shape for all outbound mail.
type Message struct {
	Type    string   `json:"type"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

// Message types. Receipts only; nothing here gates a financial transition.
const (
	TypeClaimReceipt        = "claim_receipt"
	TypeContributionReceipt = "contribution_receipt"
	TypeWithdrawalUpdate    = "withdrawal_update"
)

// Mailer posts messages to a transactional-mail HTTP API.
//
// Callers treat sends as fire-and-forget: a failed send is logged and
// dropped, never retried synchronously, and never allowed to roll back the
// state change that triggered it.
type Mailer struct {
	apiURL string
	apiKey string
	from   string
	http   *http.Client
}

func NewMailer(cfg config.MailConfig) (*Mailer, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("mail api url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("mail api key is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail from address is required")
	}
	return &Mailer{
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		from:   cfg.From,
		http:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 || msg.Subject == "" {
		return errors.New("recipient and subject are required")
	}

	payload, err := json.Marshal(struct {
		From string `json:"from"`
		Message
	}{From: m.from, Message: msg})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail api returned %d", resp.StatusCode)
	}
	return nil
}

// Noop discards all messages; used when mail is not configured.
type Noop struct{}

func (Noop) Send(context.Context, Message) error { return nil }
