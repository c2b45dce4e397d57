package config

import (
	"testing"
	"time"
)

func validBase() Config {
	return Config{
		App:      AppConfig{Env: "local", Port: 8080},
		DB:       DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "wishdrop"},
		Redis:    RedisConfig{Host: "localhost", Port: 6379},
		Auth:     AuthConfig{JWTSecret: "secret"},
		Paystack: PaystackConfig{SecretKey: "sk_test_x", WebhookSecret: "whsec"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "wishdrop"
	c.Auth.JWTAudience = "wishdrop-api"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Platform.ClaimTTL != 20*time.Minute {
		t.Fatalf("expected 20m claim TTL default, got %v", c.Platform.ClaimTTL)
	}
	if c.Platform.DefaultCurrency != "NGN" {
		t.Fatalf("expected NGN default currency, got %q", c.Platform.DefaultCurrency)
	}
	if c.Paystack.BaseURL != "https://api.paystack.co" {
		t.Fatalf("expected paystack base url default, got %q", c.Paystack.BaseURL)
	}
}

func TestValidate_RejectsOutOfRangeFee(t *testing.T) {
	c := validBase()
	c.Platform.FeeBasisPoints = 10001
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for fee above 100%%")
	}
	c = validBase()
	c.Platform.FeeBasisPoints = -1
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for negative fee")
	}
}

func TestValidate_MailRequiresKeyAndFrom(t *testing.T) {
	c := validBase()
	c.Mail = MailConfig{APIURL: "https://mail.example.com/send", Enabled: true}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for mail api without key/from")
	}
}
