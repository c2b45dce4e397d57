package wallet

import (
	"context"
	"database/sql"
	"testing"
)

// These are unit tests for wallet.Service input validation behavior. The
// money-path branches (balance checks, idempotent replays, withdrawal
// completion) are covered in ledger_test.go over the in-memory store; the
// schema constraints (UNIQUE (wallet_id, reference), CHECK
// (balance_minor >= 0), CAS UPDATE) back the same invariants in Postgres.

func TestWalletService_Credit_RejectsInvalidArgs(t *testing.T) {
	svc := NewService((*sql.DB)(nil))

	_, _, err := svc.Credit(context.Background(), "", CreditRequest{AmountMinor: 100, Currency: "NGN", Reference: "r"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	_, _, err = svc.Credit(context.Background(), "u", CreditRequest{AmountMinor: 0, Currency: "NGN", Reference: "r"})
	if err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	_, _, err = svc.Credit(context.Background(), "u", CreditRequest{AmountMinor: -5, Currency: "NGN", Reference: "r"})
	if err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	_, _, err = svc.Credit(context.Background(), "u", CreditRequest{AmountMinor: 100, Currency: "", Reference: "r"})
	if err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	_, _, err = svc.Credit(context.Background(), "u", CreditRequest{AmountMinor: 100, Currency: "NGN", Reference: ""})
	if err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestWalletService_Debit_RejectsInvalidArgs(t *testing.T) {
	svc := NewService((*sql.DB)(nil))

	_, _, err := svc.Debit(context.Background(), "", DebitRequest{AmountMinor: 100, Currency: "NGN", Reference: "r"})
	if err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	_, _, err = svc.Debit(context.Background(), "u", DebitRequest{AmountMinor: -1, Currency: "NGN", Reference: "r"})
	if err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestWalletService_RequestWithdrawal_RejectsInvalidArgs(t *testing.T) {
	svc := NewService((*sql.DB)(nil))

	_, err := svc.RequestWithdrawal(context.Background(), "u", WithdrawalRequestInput{AmountMinor: 0, Currency: "NGN", Destination: "bank"})
	if err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument (zero amount), got %v", err)
	}

	_, err = svc.RequestWithdrawal(context.Background(), "u", WithdrawalRequestInput{AmountMinor: 100, Currency: "NGN", Destination: ""})
	if err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument (missing destination), got %v", err)
	}
}

func TestWalletService_ProcessWithdrawal_RequiresOperator(t *testing.T) {
	svc := NewService((*sql.DB)(nil))

	_, err := svc.ProcessWithdrawal(context.Background(), "req", WithdrawalStatusApproved, "", "")
	if err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument (missing operator), got %v", err)
	}
}
