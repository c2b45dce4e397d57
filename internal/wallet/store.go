package wallet

import (
	"context"
	"database/sql"
	"time"
)

// store is the seam between Service logic and the SQL in repository.go.
// The money paths (credit/debit/withdrawal completion) go through it so
// their balance and idempotency branches can be driven by an in-memory
// fake; sqlStore is the production implementation.
type store interface {
	lockWallet(ctx context.Context, tx *sql.Tx, walletID string) (Wallet, error)
	lockWalletByUser(ctx context.Context, tx *sql.Tx, userID string) (Wallet, error)
	ensureWalletLocked(ctx context.Context, tx *sql.Tx, userID, currency string, now time.Time) (Wallet, error)
	getBalance(ctx context.Context, tx *sql.Tx, walletID string) (Balance, error)
	getBalanceForUpdate(ctx context.Context, tx *sql.Tx, walletID string) (Balance, error)
	findTransactionByReference(ctx context.Context, tx *sql.Tx, walletID, reference string) (Transaction, bool, error)
	insertTransaction(ctx context.Context, tx *sql.Tx, e Transaction) error
	applyBalanceDelta(ctx context.Context, tx *sql.Tx, walletID, currency string, deltaMinor int64, now time.Time) (Balance, error)
	insertWithdrawal(ctx context.Context, tx *sql.Tx, r WithdrawalRequest) error
	getWithdrawalForUpdate(ctx context.Context, tx *sql.Tx, requestID string) (WithdrawalRequest, error)
	swapWithdrawalStatus(ctx context.Context, tx *sql.Tx, requestID string, from, to WithdrawalStatus, operatorID, notes string, now time.Time) (bool, error)
}

type sqlStore struct{}

func (sqlStore) lockWallet(ctx context.Context, tx *sql.Tx, walletID string) (Wallet, error) {
	return lockWallet(ctx, tx, walletID)
}

func (sqlStore) lockWalletByUser(ctx context.Context, tx *sql.Tx, userID string) (Wallet, error) {
	return lockWalletByUser(ctx, tx, userID)
}

func (sqlStore) ensureWalletLocked(ctx context.Context, tx *sql.Tx, userID, currency string, now time.Time) (Wallet, error) {
	return ensureWalletLocked(ctx, tx, userID, currency, now)
}

func (sqlStore) getBalance(ctx context.Context, tx *sql.Tx, walletID string) (Balance, error) {
	return getBalanceTx(ctx, tx, walletID)
}

func (sqlStore) getBalanceForUpdate(ctx context.Context, tx *sql.Tx, walletID string) (Balance, error) {
	return getBalanceForUpdate(ctx, tx, walletID)
}

func (sqlStore) findTransactionByReference(ctx context.Context, tx *sql.Tx, walletID, reference string) (Transaction, bool, error) {
	return findTransactionByReference(ctx, tx, walletID, reference)
}

func (sqlStore) insertTransaction(ctx context.Context, tx *sql.Tx, e Transaction) error {
	return insertTransaction(ctx, tx, e)
}

func (sqlStore) applyBalanceDelta(ctx context.Context, tx *sql.Tx, walletID, currency string, deltaMinor int64, now time.Time) (Balance, error) {
	return applyBalanceDelta(ctx, tx, walletID, currency, deltaMinor, now)
}

func (sqlStore) insertWithdrawal(ctx context.Context, tx *sql.Tx, r WithdrawalRequest) error {
	return insertWithdrawal(ctx, tx, r)
}

func (sqlStore) getWithdrawalForUpdate(ctx context.Context, tx *sql.Tx, requestID string) (WithdrawalRequest, error) {
	return getWithdrawalForUpdate(ctx, tx, requestID)
}

func (sqlStore) swapWithdrawalStatus(ctx context.Context, tx *sql.Tx, requestID string, from, to WithdrawalStatus, operatorID, notes string, now time.Time) (bool, error) {
	return swapWithdrawalStatus(ctx, tx, requestID, from, to, operatorID, notes, now)
}
