package claims

import (
	"context"
	"time"

	"wishdrop/internal/notify"
	"wishdrop/internal/wallet"
)

// Repository is the persistence boundary for claims and contributions.
//
// WithItemTx / WithFundTx run fn inside a transaction holding a row lock
// on the parent item/fund; all repository calls made with the ctx passed
// to fn join that transaction. The availability re-checks and the insert
// therefore commit or abort together, and the partial unique index on
// exclusive live claims is the final authority if two transactions still
// interleave.
type Repository interface {
	WithItemTx(ctx context.Context, itemID string, fn func(ctx context.Context, item ItemView) error) error
	WithFundTx(ctx context.Context, fundID string, fn func(ctx context.Context, fund FundView) error) error

	HasLiveClaim(ctx context.Context, itemID string) (bool, error)
	// SumLiveClaims totals the amounts reserved against a group-funding
	// item: claims in pending or completed status.
	SumLiveClaims(ctx context.Context, itemID string) (int64, error)
	InsertClaim(ctx context.Context, c Claim) error
	GetClaim(ctx context.Context, id string) (Claim, error)
	ListClaimsByItem(ctx context.Context, itemID string) ([]Claim, error)
	// SwapClaimStatus transitions from -> to only if the row is still in
	// from; reports whether the swap happened.
	SwapClaimStatus(ctx context.Context, id string, from, to PaymentStatus, now time.Time) (bool, error)
	DeleteClaim(ctx context.Context, id string) error

	InsertContribution(ctx context.Context, c Contribution) error
	GetContribution(ctx context.Context, id string) (Contribution, error)
	SwapContributionStatus(ctx context.Context, id string, from, to PaymentStatus, now time.Time) (bool, error)
	// AddFundAmount bumps the fund's maintained running total.
	AddFundAmount(ctx context.Context, fundID string, deltaMinor int64, now time.Time) error

	ExpireClaimsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ExpireContributionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Ledger posts settled money into the owner's wallet. Credits are
// idempotent on reference, so the reconciler may safely re-post.
type Ledger interface {
	Credit(ctx context.Context, userID string, req wallet.CreditRequest) (wallet.Transaction, wallet.Balance, error)
}

// SlotLocker serializes claim creation per item ahead of the database
// constraint. It is an optimization, not the authority; a nil locker is
// valid.
type SlotLocker interface {
	Acquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, holder string) error
}

// Notifier delivers receipts. Fire-and-forget: errors are logged by the
// reconciler and never affect financial state.
type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}
