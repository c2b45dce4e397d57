package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"wishdrop/pkg/utils"

	"github.com/google/uuid"
)

// Service provides wallet operations.
//
// Money invariants:
// - No balance updates without a transaction entry
// - Transactions are append-only (immutable)
// - All money operations execute in a DB transaction
// - Balance never goes negative
//
// Balance strategy:
// - Balance is stored in a projection table (wallet_balances) updated
//   atomically alongside transaction inserts.
type Service struct {
	db *sql.DB
	// clock is injectable for deterministic tests.
	clock func() time.Time

	// store and runTx are the SQL seam; tests swap them for an in-memory
	// fake and a passthrough transaction runner.
	store store
	runTx func(ctx context.Context, fn utils.TxFunc) error
}

func NewService(db *sql.DB) *Service {
	s := &Service{db: db, clock: time.Now, store: sqlStore{}}
	s.runTx = func(ctx context.Context, fn utils.TxFunc) error {
		return utils.WithTx(ctx, s.db, &sql.TxOptions{}, fn)
	}
	return s
}

type CreditRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
}

type DebitRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
}

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidTransition   = errors.New("invalid withdrawal status transition")
)

func (s *Service) GetBalance(ctx context.Context, userID string) (Balance, error) {
	if userID == "" {
		return Balance{}, ErrInvalidArgument
	}
	return getBalanceByUser(ctx, s.db, userID)
}

func (s *Service) ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return listTransactionsByUser(ctx, s.db, userID, limit)
}

// Credit posts a credit, idempotent on reference. A wallet is created on
// first credit so gift owners never need an explicit setup step.
func (s *Service) Credit(ctx context.Context, userID string, req CreditRequest) (Transaction, Balance, error) {
	if err := validateMoneyReq(userID, req.AmountMinor, req.Currency, req.Reference); err != nil {
		return Transaction{}, Balance{}, err
	}

	now := s.clock().UTC()
	txnID := uuid.NewString()

	var outTxn Transaction
	var outBal Balance

	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// Lock (or create) the wallet row to serialize concurrent money
		// operations per user.
		w, err := s.store.ensureWalletLocked(ctx, tx, userID, req.Currency, now)
		if err != nil {
			return err
		}
		if w.Currency != req.Currency {
			return ErrInvalidArgument
		}

		// Idempotency: a replayed reference returns the original posting.
		if existing, ok, err := s.store.findTransactionByReference(ctx, tx, w.ID, req.Reference); err != nil {
			return err
		} else if ok {
			outTxn = existing
			b, err := s.store.getBalance(ctx, tx, w.ID)
			if err != nil {
				return err
			}
			outBal = b
			return nil
		}

		entry := Transaction{
			ID:          txnID,
			WalletID:    w.ID,
			Type:        TransactionTypeCredit,
			AmountMinor: req.AmountMinor,
			Currency:    req.Currency,
			Reference:   req.Reference,
			Description: req.Description,
			Metadata:    req.Metadata,
			CreatedAt:   now,
		}
		if err := s.store.insertTransaction(ctx, tx, entry); err != nil {
			return err
		}

		b, err := s.store.applyBalanceDelta(ctx, tx, w.ID, req.Currency, req.AmountMinor, now)
		if err != nil {
			return err
		}
		outTxn = entry
		outBal = b
		return nil
	})

	return outTxn, outBal, err
}

// Debit posts a debit, idempotent on reference. The balance is checked
// under the wallet lock so it can never go negative.
func (s *Service) Debit(ctx context.Context, userID string, req DebitRequest) (Transaction, Balance, error) {
	if err := validateMoneyReq(userID, req.AmountMinor, req.Currency, req.Reference); err != nil {
		return Transaction{}, Balance{}, err
	}

	now := s.clock().UTC()
	txnID := uuid.NewString()

	var outTxn Transaction
	var outBal Balance

	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		w, err := s.store.lockWalletByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if w.Currency != req.Currency {
			return ErrInvalidArgument
		}

		if existing, ok, err := s.store.findTransactionByReference(ctx, tx, w.ID, req.Reference); err != nil {
			return err
		} else if ok {
			outTxn = existing
			b, err := s.store.getBalance(ctx, tx, w.ID)
			if err != nil {
				return err
			}
			outBal = b
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
			ID:          txnID,
			WalletID:    w.ID,
			Type:        TransactionTypeDebit,
			AmountMinor: -req.AmountMinor,
			Currency:    req.Currency,
			Reference:   req.Reference,
			Description: req.Description,
			Metadata:    req.Metadata,
			CreatedAt:   now,
		}
		if err := s.store.insertTransaction(ctx, tx, entry); err != nil {
			return err
		}

		out, err := s.store.applyBalanceDelta(ctx, tx, w.ID, req.Currency, -req.AmountMinor, now)
		if err != nil {
			return err
		}
		outTxn = entry
		outBal = out
		return nil
	})

	return outTxn, outBal, err
}

func validateMoneyReq(userID string, amountMinor int64, currency, reference string) error {
	if userID == "" {
		return ErrInvalidArgument
	}
	if currency == "" {
		return ErrInvalidArgument
	}
	if reference == "" {
		return ErrInvalidArgument
	}
	if amountMinor <= 0 {
		return ErrInvalidArgument
	}
	return nil
}
