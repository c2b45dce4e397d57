package claims

import (
	"errors"
	"time"
)

// PaymentStatus is the claim/contribution lifecycle state.
//
// pending is the only live, non-settled state. completed, failed and
// expired are terminal: once reached, no further transition is legal.
// not_required marks free items; it occupies the item's claim slot with
// no payment leg at all.
type PaymentStatus string

const (
	StatusPending     PaymentStatus = "pending"
	StatusCompleted   PaymentStatus = "completed"
	StatusFailed      PaymentStatus = "failed"
	StatusExpired     PaymentStatus = "expired"
	StatusNotRequired PaymentStatus = "not_required"
)

// IsTerminal reports whether a status permits no further transitions.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusNotRequired:
		return true
	}
	return false
}

// Claim is a guest's reservation (and optional payment) against one
// wishlist item.
type Claim struct {
	ID     string `json:"id" db:"id"`
	ItemID string `json:"item_id" db:"item_id"`

	ClaimerName  string `json:"claimer_name" db:"claimer_name"`
	ClaimerEmail string `json:"claimer_email,omitempty" db:"claimer_email"`
	ClaimerPhone string `json:"claimer_phone,omitempty" db:"claimer_phone"`
	IsAnonymous  bool   `json:"is_anonymous" db:"is_anonymous"`
	IsGroupGift  bool   `json:"is_group_gift" db:"is_group_gift"`

	// AmountMinor is nil when no payment is required.
	AmountMinor *int64 `json:"amount_minor,omitempty" db:"amount_minor"`

	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`

	// PaymentReference is the gateway checkout reference, set at creation
	// when a payment is required. The webhook and client callback must both
	// carry it back verbatim.
	PaymentReference string `json:"payment_reference,omitempty" db:"payment_reference"`

	// ExpiresAt is set only when payment is required; a background sweep
	// moves stale pending claims to expired, freeing the slot.
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Contribution is the cash-fund analogue of a Claim. Funds have no
// exclusivity: any number of completed contributions accumulate up to the
// fund target.
type Contribution struct {
	ID     string `json:"id" db:"id"`
	FundID string `json:"fund_id" db:"fund_id"`

	ContributorName  string `json:"contributor_name" db:"contributor_name"`
	ContributorEmail string `json:"contributor_email,omitempty" db:"contributor_email"`
	IsAnonymous      bool   `json:"is_anonymous" db:"is_anonymous"`

	AmountMinor int64 `json:"amount_minor" db:"amount_minor"`

	PaymentStatus    PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentReference string        `json:"payment_reference,omitempty" db:"payment_reference"`
	ExpiresAt        *time.Time    `json:"expires_at,omitempty" db:"expires_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ItemView is the item context the repository exposes under the item lock.
type ItemView struct {
	ID                 string
	WishlistID         string
	OwnerID            string
	Currency           string
	PriceMinor         int64
	MinPriceMinor      *int64
	MaxPriceMinor      *int64
	AllowsGroupFunding bool
}

// FundView is the fund context the repository exposes under the fund lock.
type FundView struct {
	ID           string
	WishlistID   string
	OwnerID      string
	Currency     string
	TargetMinor  int64
	CurrentMinor int64
}

// Validation errors: bad input, reported synchronously, nothing mutated.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrOwnItem        = errors.New("cannot claim an item on your own wishlist")
	ErrAlreadyClaimed = errors.New("item already has a live claim")
	ErrOverfunded     = errors.New("amount exceeds remaining target")
)

// Conflict/idempotency outcomes: benign, callers usually swallow these.
var (
	ErrAlreadyTerminal = errors.New("claim already in a terminal state")
)

// Integrity errors: surfaced loudly, never silently retried.
var (
	// ErrClaimExpired means money moved at the gateway but the claim lost
	// its slot locally; this needs operator attention.
	ErrClaimExpired = errors.New("payment confirmed for an expired claim")

	ErrReferenceMismatch = errors.New("gateway reference does not match claim")
)
