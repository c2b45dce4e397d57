package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// NOTE: This repository assumes the following tables exist:
// - wallets (one row per user)
// - wallet_transactions (immutable append-only)
// - wallet_balances (projection)
// - withdrawal_requests
//
// It also assumes the idempotency constraint:
// UNIQUE (wallet_id, reference) on wallet_transactions

func lockWallet(ctx context.Context, tx *sql.Tx, walletID string) (Wallet, error) {
	// Lock the wallet row to serialize concurrent money operations.
	const q = `
SELECT id, user_id, currency, status, created_at, updated_at
FROM wallets
WHERE id = $1
FOR UPDATE
`
	var w Wallet
	if err := tx.QueryRowContext(ctx, q, walletID).Scan(
		&w.ID,
		&w.UserID,
		&w.Currency,
		&w.Status,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	return w, nil
}

func lockWalletByUser(ctx context.Context, tx *sql.Tx, userID string) (Wallet, error) {
	const q = `
SELECT id, user_id, currency, status, created_at, updated_at
FROM wallets
WHERE user_id = $1
FOR UPDATE
`
	var w Wallet
	if err := tx.QueryRowContext(ctx, q, userID).Scan(
		&w.ID,
		&w.UserID,
		&w.Currency,
		&w.Status,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	return w, nil
}

// ensureWalletLocked returns the user's wallet locked for update, creating
// it first if this is the user's first credit. The unique constraint on
// user_id resolves concurrent first-credit races.
func ensureWalletLocked(ctx context.Context, tx *sql.Tx, userID, currency string, now time.Time) (Wallet, error) {
	const ins = `
INSERT INTO wallets (id, user_id, currency, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (user_id) DO NOTHING
`
	if _, err := tx.ExecContext(ctx, ins, uuid.NewString(), userID, currency, WalletStatusActive, now); err != nil {
		return Wallet{}, err
	}
	return lockWalletByUser(ctx, tx, userID)
}

func getBalanceByUser(ctx context.Context, db *sql.DB, userID string) (Balance, error) {
	const q = `
SELECT b.wallet_id, b.currency, b.balance_minor, b.updated_at
FROM wallet_balances b
JOIN wallets w ON w.id = b.wallet_id
WHERE w.user_id = $1
`
	var b Balance
	if err := db.QueryRowContext(ctx, q, userID).Scan(
		&b.WalletID,
		&b.Currency,
		&b.BalanceMinor,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Balance{}, ErrNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

func getBalanceTx(ctx context.Context, tx *sql.Tx, walletID string) (Balance, error) {
	const q = `
SELECT wallet_id, currency, balance_minor, updated_at
FROM wallet_balances
WHERE wallet_id = $1
`
	var b Balance
	if err := tx.QueryRowContext(ctx, q, walletID).Scan(
		&b.WalletID,
		&b.Currency,
		&b.BalanceMinor,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No postings yet.
			return Balance{WalletID: walletID}, nil
		}
		return Balance{}, err
	}
	return b, nil
}

func getBalanceForUpdate(ctx context.Context, tx *sql.Tx, walletID string) (Balance, error) {
	const q = `
SELECT wallet_id, currency, balance_minor, updated_at
FROM wallet_balances
WHERE wallet_id = $1
FOR UPDATE
`
	var b Balance
	if err := tx.QueryRowContext(ctx, q, walletID).Scan(
		&b.WalletID,
		&b.Currency,
		&b.BalanceMinor,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Balance{WalletID: walletID}, nil
		}
		return Balance{}, err
	}
	return b, nil
}

func findTransactionByReference(ctx context.Context, tx *sql.Tx, walletID, reference string) (Transaction, bool, error) {
	const q = `
SELECT id, wallet_id, type, amount_minor, currency, reference, description, COALESCE(metadata::text, ''), created_at
FROM wallet_transactions
WHERE wallet_id = $1 AND reference = $2
LIMIT 1
`
	var e Transaction
	err := tx.QueryRowContext(ctx, q, walletID, reference).Scan(
		&e.ID,
		&e.WalletID,
		&e.Type,
		&e.AmountMinor,
		&e.Currency,
		&e.Reference,
		&e.Description,
		&e.Metadata,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, false, nil
		}
		return Transaction{}, false, err
	}
	return e, true, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, e Transaction) error {
	const q = `
INSERT INTO wallet_transactions (
  id, wallet_id, type, amount_minor, currency, reference, description, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,NULLIF($8,'')::jsonb,$9
)
`
	_, err := tx.ExecContext(ctx, q,
		e.ID,
		e.WalletID,
		e.Type,
		e.AmountMinor,
		e.Currency,
		e.Reference,
		e.Description,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}

func listTransactionsByUser(ctx context.Context, db *sql.DB, userID string, limit int) ([]Transaction, error) {
	const q = `
SELECT t.id, t.wallet_id, t.type, t.amount_minor, t.currency, t.reference, t.description, COALESCE(t.metadata::text, ''), t.created_at
FROM wallet_transactions t
JOIN wallets w ON w.id = t.wallet_id
WHERE w.user_id = $1
ORDER BY t.created_at DESC
LIMIT $2
`
	rows, err := db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var e Transaction
		if err := rows.Scan(
			&e.ID,
			&e.WalletID,
			&e.Type,
			&e.AmountMinor,
			&e.Currency,
			&e.Reference,
			&e.Description,
			&e.Metadata,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func applyBalanceDelta(ctx context.Context, tx *sql.Tx, walletID, currency string, deltaMinor int64, now time.Time) (Balance, error) {
	// Upsert the balance row. Currency stays stable; the wallet lock plus
	// service-level currency check prevent mixed-currency postings.
	const q = `
INSERT INTO wallet_balances (wallet_id, currency, balance_minor, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (wallet_id)
DO UPDATE SET balance_minor = wallet_balances.balance_minor + EXCLUDED.balance_minor,
              updated_at = EXCLUDED.updated_at
RETURNING wallet_id, currency, balance_minor, updated_at
`
	var b Balance
	if err := tx.QueryRowContext(ctx, q, walletID, currency, deltaMinor, now).Scan(
		&b.WalletID,
		&b.Currency,
		&b.BalanceMinor,
		&b.UpdatedAt,
	); err != nil {
		return Balance{}, err
	}
	return b, nil
}

func insertWithdrawal(ctx context.Context, tx *sql.Tx, r WithdrawalRequest) error {
	const q = `
INSERT INTO withdrawal_requests (
  id, wallet_id, amount_minor, currency, destination, status, operator_id, operator_notes, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,NULLIF($7,'')::uuid,$8,$9,$10
)
`
	_, err := tx.ExecContext(ctx, q,
		r.ID,
		r.WalletID,
		r.AmountMinor,
		r.Currency,
		r.Destination,
		r.Status,
		r.OperatorID,
		r.OperatorNotes,
		r.CreatedAt,
		r.UpdatedAt,
	)
	return err
}

func scanWithdrawal(row *sql.Row) (WithdrawalRequest, error) {
	var r WithdrawalRequest
	var operatorID sql.NullString
	err := row.Scan(
		&r.ID,
		&r.WalletID,
		&r.AmountMinor,
		&r.Currency,
		&r.Destination,
		&r.Status,
		&operatorID,
		&r.OperatorNotes,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WithdrawalRequest{}, ErrNotFound
		}
		return WithdrawalRequest{}, err
	}
	r.OperatorID = operatorID.String
	return r, nil
}

const withdrawalColumns = `id, wallet_id, amount_minor, currency, destination, status, operator_id, operator_notes, created_at, updated_at`

func getWithdrawal(ctx context.Context, db *sql.DB, requestID string) (WithdrawalRequest, error) {
	q := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`
	return scanWithdrawal(db.QueryRowContext(ctx, q, requestID))
}

func getWithdrawalForUpdate(ctx context.Context, tx *sql.Tx, requestID string) (WithdrawalRequest, error) {
	q := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`
	return scanWithdrawal(tx.QueryRowContext(ctx, q, requestID))
}

func listWithdrawals(ctx context.Context, db *sql.DB, status WithdrawalStatus, limit int) ([]WithdrawalRequest, error) {
	q := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests`
	args := []any{}
	if status != "" {
		q += ` WHERE status = $1 ORDER BY created_at ASC LIMIT $2`
		args = append(args, status, limit)
	} else {
		q += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WithdrawalRequest
	for rows.Next() {
		var r WithdrawalRequest
		var operatorID sql.NullString
		if err := rows.Scan(
			&r.ID,
			&r.WalletID,
			&r.AmountMinor,
			&r.Currency,
			&r.Destination,
			&r.Status,
			&operatorID,
			&r.OperatorNotes,
			&r.CreatedAt,
			&r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		r.OperatorID = operatorID.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// swapWithdrawalStatus is the compare-and-swap transition. It returns false
// when the row was no longer in the expected prior status.
func swapWithdrawalStatus(ctx context.Context, tx *sql.Tx, requestID string, from, to WithdrawalStatus, operatorID, notes string, now time.Time) (bool, error) {
	const q = `
UPDATE withdrawal_requests
SET status = $1, operator_id = $2, operator_notes = $3, updated_at = $4
WHERE id = $5 AND status = $6
`
	res, err := tx.ExecContext(ctx, q, to, operatorID, notes, now, requestID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
