package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type WithdrawalRequestInput struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Destination string `json:"destination"`
}

// RequestWithdrawal records a pending withdrawal. The amount is validated
// against the balance at request time; the authoritative check happens
// again at completion, under the wallet lock.
func (s *Service) RequestWithdrawal(ctx context.Context, userID string, in WithdrawalRequestInput) (WithdrawalRequest, error) {
	if userID == "" || in.Currency == "" || in.Destination == "" {
		return WithdrawalRequest{}, ErrInvalidArgument
	}
	if in.AmountMinor <= 0 {
		return WithdrawalRequest{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	reqID := uuid.NewString()

	var out WithdrawalRequest
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		w, err := s.store.lockWalletByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if w.Currency != in.Currency {
			return ErrInvalidArgument
		}

		b, err := s.store.getBalance(ctx, tx, w.ID)
		if err != nil {
			return err
		}
		if b.BalanceMinor < in.AmountMinor {
			return ErrInsufficientBalance
		}

		out = WithdrawalRequest{
			ID:          reqID,
			WalletID:    w.ID,
			AmountMinor: in.AmountMinor,
			Currency:    in.Currency,
			Destination: in.Destination,
			Status:      WithdrawalStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return s.store.insertWithdrawal(ctx, tx, out)
	})
	return out, err
}

func (s *Service) GetWithdrawal(ctx context.Context, requestID string) (WithdrawalRequest, error) {
	if requestID == "" {
		return WithdrawalRequest{}, ErrInvalidArgument
	}
	return getWithdrawal(ctx, s.db, requestID)
}

func (s *Service) ListWithdrawals(ctx context.Context, status WithdrawalStatus, limit int) ([]WithdrawalRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return listWithdrawals(ctx, s.db, status, limit)
}

// ProcessWithdrawal moves a request along its status lifecycle on behalf
// of an operator.
//
// The transition is a compare-and-swap: the UPDATE only matches rows still
// in the expected prior status, so two racing operator actions cannot both
// advance the same request. On completed, the wallet is debited exactly
// once using the request id as the idempotency reference. On rejected, no
// wallet mutation occurs; funds stay in the wallet.
func (s *Service) ProcessWithdrawal(ctx context.Context, requestID string, newStatus WithdrawalStatus, operatorID, notes string) (WithdrawalRequest, error) {
	if requestID == "" || operatorID == "" {
		return WithdrawalRequest{}, ErrInvalidArgument
	}

	now := s.clock().UTC()

	var out WithdrawalRequest
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		req, err := s.store.getWithdrawalForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if !CanTransition(req.Status, newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, newStatus)
		}

		swapped, err := s.store.swapWithdrawalStatus(ctx, tx, requestID, req.Status, newStatus, operatorID, notes, now)
		if err != nil {
			return err
		}
		if !swapped {
			// Lost the race after the read; the other actor won.
			return fmt.Errorf("%w: request already moved past %s", ErrInvalidTransition, req.Status)
		}

		if newStatus == WithdrawalStatusCompleted {
			if err := s.debitForWithdrawalTx(ctx, tx, req, now); err != nil {
				return err
			}
		}

		req.Status = newStatus
		req.OperatorID = operatorID
		req.OperatorNotes = notes
		req.UpdatedAt = now
		out = req
		return nil
	})
	return out, err
}

// debitForWithdrawalTx posts the completion debit inside the caller's
// transaction, deduped on the request id.
func (s *Service) debitForWithdrawalTx(ctx context.Context, tx *sql.Tx, req WithdrawalRequest, now time.Time) error {
	w, err := s.store.lockWallet(ctx, tx, req.WalletID)
	if err != nil {
		return err
	}

	if _, ok, err := s.store.findTransactionByReference(ctx, tx, w.ID, req.ID); err != nil {
		return err
	} else if ok {
		// Debit already posted for this request.
		return nil
	}

	b, err := s.store.getBalanceForUpdate(ctx, tx, w.ID)
	if err != nil {
		return err
	}
	if b.BalanceMinor < req.AmountMinor {
		return ErrInsufficientBalance
	}

	entry := Transaction{
		ID:          uuid.NewString(),
		WalletID:    w.ID,
		Type:        TransactionTypeDebit,
		AmountMinor: -req.AmountMinor,
		Currency:    req.Currency,
		Reference:   req.ID,
		Description: "withdrawal payout",
		CreatedAt:   now,
	}
	if err := s.store.insertTransaction(ctx, tx, entry); err != nil {
		return err
	}
	_, err = s.store.applyBalanceDelta(ctx, tx, w.ID, req.Currency, -req.AmountMinor, now)
	return err
}
