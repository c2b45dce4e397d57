package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"
)

func sign(t *testing.T, secret string, body []byte) string {
	t.Helper()
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifier_AcceptsValidSignature(t *testing.T) {
	v, err := NewVerifier("whsec")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	body := []byte(`{"event":"charge.success","data":{"reference":"claim_x_1","amount":5000}}`)
	if err := v.Verify(body, sign(t, "whsec", body)); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifier_RejectsTamperedBody(t *testing.T) {
	v, _ := NewVerifier("whsec")

	body := []byte(`{"event":"charge.success","data":{"amount":5000}}`)
	sig := sign(t, "whsec", body)

	tampered := make([]byte, len(body))
	copy(tampered, body)
	tampered[len(tampered)-3] = '9' // 5000 -> 5090

	if err := v.Verify(tampered, sig); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifier_RejectsWrongSecret(t *testing.T) {
	v, _ := NewVerifier("whsec")

	body := []byte(`{"event":"charge.success"}`)
	if err := v.Verify(body, sign(t, "other-secret", body)); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifier_RejectsEmptySignature(t *testing.T) {
	v, _ := NewVerifier("whsec")
	if err := v.Verify([]byte(`{}`), ""); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestParseEvent(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"r","amount":5000,"currency":"NGN","status":"success"}}`)
	ev, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Event != EventChargeSuccess || ev.Data.AmountMinor != 5000 || ev.Data.Currency != "NGN" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}
