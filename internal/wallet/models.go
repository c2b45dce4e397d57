package wallet

import "time"

// Wallet holds settled gift funds for one user.
// Invariant: the balance must be derived from immutable transaction rows.
// No code should ever mutate a balance without writing a corresponding
// transaction entry.
type Wallet struct {
	ID       string `json:"id" db:"id"`
	UserID   string `json:"user_id" db:"user_id"`
	Currency string `json:"currency" db:"currency"`

	// Optional operational flags (do not encode money state here).
	Status WalletStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type WalletStatus string

const (
	WalletStatusActive   WalletStatus = "active"
	WalletStatusDisabled WalletStatus = "disabled"
)

// Transaction is an immutable append-only entry.
// Each row represents a credit or debit posted to the wallet.
//
// Money invariant: any balance change MUST have a corresponding transaction.
// Dedup invariant: (wallet_id, reference) is unique; a replayed event with
// the same reference must post at most one transaction.
type Transaction struct {
	ID       string `json:"id" db:"id"`
	WalletID string `json:"wallet_id" db:"wallet_id"`

	Type TransactionType `json:"type" db:"type"`

	// AmountMinor is the signed amount in minor units (kobo for NGN).
	// Credits are positive, debits are negative.
	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	Currency    string `json:"currency" db:"currency"`

	// Reference is the idempotency key: claim id, contribution id, or
	// withdrawal request id.
	Reference string `json:"reference" db:"reference"`

	Description string `json:"description,omitempty" db:"description"`

	// Metadata is optional JSON for audit/debug (gross amount, fee taken).
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

type Balance struct {
	WalletID     string    `json:"wallet_id"`
	Currency     string    `json:"currency"`
	BalanceMinor int64     `json:"balance_minor"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WithdrawalRequest tracks a user's request to move wallet funds out to a
// bank destination. Status moves monotonically:
//
//	pending -> approved | rejected
//	approved -> completed
//
// Only the transition into completed debits the wallet, keyed on the
// request id so two racing operator actions debit at most once.
type WithdrawalRequest struct {
	ID          string `json:"id" db:"id"`
	WalletID    string `json:"wallet_id" db:"wallet_id"`
	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	Currency    string `json:"currency" db:"currency"`
	Destination string `json:"destination" db:"destination"`

	Status WithdrawalStatus `json:"status" db:"status"`

	// OperatorID and OperatorNotes record who moved the request and why.
	OperatorID    string `json:"operator_id,omitempty" db:"operator_id"`
	OperatorNotes string `json:"operator_notes,omitempty" db:"operator_notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusApproved  WithdrawalStatus = "approved"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
)

// CanTransition reports whether a withdrawal may move from -> to.
func CanTransition(from, to WithdrawalStatus) bool {
	switch from {
	case WithdrawalStatusPending:
		return to == WithdrawalStatusApproved || to == WithdrawalStatusRejected
	case WithdrawalStatusApproved:
		return to == WithdrawalStatusCompleted
	default:
		// rejected and completed are terminal
		return false
	}
}
