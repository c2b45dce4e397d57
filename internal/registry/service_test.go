package registry

import (
	"context"
	"database/sql"
	"testing"

	"wishdrop/internal/config"
)

func TestItemInput_Validate(t *testing.T) {
	low, high := int64(100), int64(500)

	if err := (ItemInput{Name: "camera", PriceMinor: 5000}).validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	if err := (ItemInput{Name: "", PriceMinor: 5000}).validate(); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := (ItemInput{Name: "x", PriceMinor: -1}).validate(); err == nil {
		t.Fatalf("expected error for negative price")
	}
	if err := (ItemInput{Name: "x", PriceMinor: 0, MinPriceMinor: &high, MaxPriceMinor: &low}).validate(); err == nil {
		t.Fatalf("expected error for min > max")
	}
	if err := (ItemInput{Name: "x", PriceMinor: 0, AllowsGroupFunding: true}).validate(); err == nil {
		t.Fatalf("expected error for group funding without target")
	}
}

func TestService_RejectsInvalidArgs(t *testing.T) {
	svc := NewService((*sql.DB)(nil), config.PlatformConfig{DefaultCurrency: "NGN"})

	if _, err := svc.CreateWishlist(context.Background(), "", CreateWishlistRequest{Title: "t"}); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.CreateWishlist(context.Background(), "u", CreateWishlistRequest{}); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.CreateFund(context.Background(), "u", "w", FundInput{Title: "honeymoon", TargetMinor: 0}); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, _, _, err := svc.ResolveShareCode(context.Background(), ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestNewShareCode(t *testing.T) {
	a := NewShareCode()
	b := NewShareCode()
	if a == b {
		t.Fatalf("share codes must not repeat")
	}
	if len(a) != 16 {
		t.Fatalf("expected 16-char code, got %d (%q)", len(a), a)
	}
}
