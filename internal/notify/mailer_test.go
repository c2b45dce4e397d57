package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"wishdrop/internal/config"
)

func testMailConfig(url string) config.MailConfig {
	return config.MailConfig{
		APIURL: url,
		APIKey: "test-key",
		From:   "gifts@example.com",
	}
}

func TestMailer_Send(t *testing.T) {
	var got struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
	}
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m, err := NewMailer(testMailConfig(srv.URL))
	if err != nil {
		t.Fatalf("mailer: %v", err)
	}

	err = m.Send(context.Background(), Message{
		Type:    TypeClaimReceipt,
		To:      []string{"ada@example.com"},
		Subject: "Payment confirmed",
		Text:    "thanks",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if auth != "Bearer test-key" {
		t.Errorf("auth header = %q", auth)
	}
	if got.From != "gifts@example.com" || len(got.To) != 1 || got.To[0] != "ada@example.com" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestMailer_SendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	m, _ := NewMailer(testMailConfig(srv.URL))
	err := m.Send(context.Background(), Message{To: []string{"x@example.com"}, Subject: "s"})
	if err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestNewMailer_Validation(t *testing.T) {
	if _, err := NewMailer(config.MailConfig{APIKey: "k", From: "f"}); err == nil {
		t.Error("missing api url accepted")
	}
	if _, err := NewMailer(config.MailConfig{APIURL: "u", From: "f"}); err == nil {
		t.Error("missing api key accepted")
	}
	if _, err := NewMailer(config.MailConfig{APIURL: "u", APIKey: "k"}); err == nil {
		t.Error("missing from accepted")
	}
}
