package registry

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
	"time"
)

// Wishlist is owned by exactly one user. Guests never mutate it; they only
// read it through the share code and claim against its items.
type Wishlist struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Title     string    `json:"title" db:"title"`
	Currency  string    `json:"currency" db:"currency"`
	IsPublic  bool      `json:"is_public" db:"is_public"`
	ShareCode string    `json:"share_code" db:"share_code"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Item belongs to exactly one wishlist. Once a completed claim exists
// against it, edits are rejected.
type Item struct {
	ID         string `json:"id" db:"id"`
	WishlistID string `json:"wishlist_id" db:"wishlist_id"`
	Name       string `json:"name" db:"name"`

	// PriceMinor is the target price in minor units. Zero means the item
	// needs no payment to claim.
	PriceMinor    int64  `json:"price_minor" db:"price_minor"`
	MinPriceMinor *int64 `json:"min_price_minor,omitempty" db:"min_price_minor"`
	MaxPriceMinor *int64 `json:"max_price_minor,omitempty" db:"max_price_minor"`

	// AllowsGroupFunding permits multiple partial claims up to PriceMinor.
	AllowsGroupFunding bool `json:"allows_group_funding" db:"allows_group_funding"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Fund is an open-ended cash pool: any number of completed contributions
// may accumulate, capped at TargetMinor. CurrentMinor is a maintained
// running total and must equal the sum of completed contributions.
type Fund struct {
	ID           string    `json:"id" db:"id"`
	WishlistID   string    `json:"wishlist_id" db:"wishlist_id"`
	Title        string    `json:"title" db:"title"`
	TargetMinor  int64     `json:"target_minor" db:"target_minor"`
	CurrentMinor int64     `json:"current_minor" db:"current_minor"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// NewShareCode returns an opaque token granting read access to a wishlist.
// Not guessable; uniqueness is enforced by the DB constraint.
func NewShareCode() string {
	var b [10]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err) // crypto/rand failure is not recoverable
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return strings.ToLower(enc.EncodeToString(b[:]))
}
