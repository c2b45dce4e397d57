package registry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"wishdrop/internal/config"
	"wishdrop/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotOwner        = errors.New("caller does not own this wishlist")

	// ErrItemLocked means a completed claim exists against the item;
	// the item is immutable from that point on.
	ErrItemLocked = errors.New("item has a completed claim and cannot be edited")
)

// Service owns wishlist, item and fund lifecycle. Claim state is out of
// scope here; internal/claims consumes these rows.
type Service struct {
	db       *sql.DB
	platform config.PlatformConfig
	clock    func() time.Time
}

func NewService(db *sql.DB, platform config.PlatformConfig) *Service {
	return &Service{db: db, platform: platform, clock: time.Now}
}

type CreateWishlistRequest struct {
	Title    string `json:"title"`
	Currency string `json:"currency,omitempty"`
	IsPublic bool   `json:"is_public"`
}

func (s *Service) CreateWishlist(ctx context.Context, ownerID string, req CreateWishlistRequest) (Wishlist, error) {
	if ownerID == "" || req.Title == "" {
		return Wishlist{}, ErrInvalidArgument
	}
	currency := req.Currency
	if currency == "" {
		currency = s.platform.DefaultCurrency
	}

	now := s.clock().UTC()
	w := Wishlist{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     req.Title,
		Currency:  currency,
		IsPublic:  req.IsPublic,
		ShareCode: NewShareCode(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := insertWishlist(ctx, s.db, w); err != nil {
		return Wishlist{}, err
	}
	return w, nil
}

func (s *Service) GetWishlist(ctx context.Context, wishlistID string) (Wishlist, error) {
	if wishlistID == "" {
		return Wishlist{}, ErrInvalidArgument
	}
	return getWishlist(ctx, s.db, wishlistID)
}

// ResolveShareCode grants read access to a wishlist via its opaque token.
// Non-public lists are reachable only this way.
func (s *Service) ResolveShareCode(ctx context.Context, code string) (Wishlist, []Item, []Fund, error) {
	if code == "" {
		return Wishlist{}, nil, nil, ErrInvalidArgument
	}
	w, err := getWishlistByShareCode(ctx, s.db, code)
	if err != nil {
		return Wishlist{}, nil, nil, err
	}
	items, err := listItems(ctx, s.db, w.ID)
	if err != nil {
		return Wishlist{}, nil, nil, err
	}
	funds, err := listFunds(ctx, s.db, w.ID)
	if err != nil {
		return Wishlist{}, nil, nil, err
	}
	return w, items, funds, nil
}

type ItemInput struct {
	Name               string `json:"name"`
	PriceMinor         int64  `json:"price_minor"`
	MinPriceMinor      *int64 `json:"min_price_minor,omitempty"`
	MaxPriceMinor      *int64 `json:"max_price_minor,omitempty"`
	AllowsGroupFunding bool   `json:"allows_group_funding"`
}

func (in ItemInput) validate() error {
	if in.Name == "" {
		return ErrInvalidArgument
	}
	if in.PriceMinor < 0 {
		return ErrInvalidArgument
	}
	if in.MinPriceMinor != nil && in.MaxPriceMinor != nil && *in.MinPriceMinor > *in.MaxPriceMinor {
		return ErrInvalidArgument
	}
	if in.AllowsGroupFunding && in.PriceMinor == 0 {
		// A group-funded item needs a target to fund against.
		return ErrInvalidArgument
	}
	return nil
}

func (s *Service) AddItem(ctx context.Context, ownerID, wishlistID string, in ItemInput) (Item, error) {
	if ownerID == "" || wishlistID == "" {
		return Item{}, ErrInvalidArgument
	}
	if err := in.validate(); err != nil {
		return Item{}, err
	}

	w, err := getWishlist(ctx, s.db, wishlistID)
	if err != nil {
		return Item{}, err
	}
	if w.OwnerID != ownerID {
		return Item{}, ErrNotOwner
	}

	now := s.clock().UTC()
	item := Item{
		ID:                 uuid.NewString(),
		WishlistID:         wishlistID,
		Name:               in.Name,
		PriceMinor:         in.PriceMinor,
		MinPriceMinor:      in.MinPriceMinor,
		MaxPriceMinor:      in.MaxPriceMinor,
		AllowsGroupFunding: in.AllowsGroupFunding,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := insertItem(ctx, s.db, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// UpdateItem edits an item unless a completed claim exists against it.
// The lock check and the update run in one transaction so a claim
// completing in between cannot slip an edit through.
func (s *Service) UpdateItem(ctx context.Context, ownerID, itemID string, in ItemInput) (Item, error) {
	if ownerID == "" || itemID == "" {
		return Item{}, ErrInvalidArgument
	}
	if err := in.validate(); err != nil {
		return Item{}, err
	}

	now := s.clock().UTC()
	var out Item
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		item, err := getItemForUpdate(ctx, tx, itemID)
		if err != nil {
			return err
		}
		owner, err := getWishlistOwnerTx(ctx, tx, item.WishlistID)
		if err != nil {
			return err
		}
		if owner != ownerID {
			return ErrNotOwner
		}

		locked, err := itemHasCompletedClaim(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if locked {
			return ErrItemLocked
		}

		item.Name = in.Name
		item.PriceMinor = in.PriceMinor
		item.MinPriceMinor = in.MinPriceMinor
		item.MaxPriceMinor = in.MaxPriceMinor
		item.AllowsGroupFunding = in.AllowsGroupFunding
		item.UpdatedAt = now

		if err := updateItem(ctx, tx, item); err != nil {
			return err
		}
		out = item
		return nil
	})
	return out, err
}

func (s *Service) GetItem(ctx context.Context, itemID string) (Item, error) {
	if itemID == "" {
		return Item{}, ErrInvalidArgument
	}
	return getItem(ctx, s.db, itemID)
}

type FundInput struct {
	Title       string `json:"title"`
	TargetMinor int64  `json:"target_minor"`
}

func (s *Service) CreateFund(ctx context.Context, ownerID, wishlistID string, in FundInput) (Fund, error) {
	if ownerID == "" || wishlistID == "" || in.Title == "" {
		return Fund{}, ErrInvalidArgument
	}
	if in.TargetMinor <= 0 {
		return Fund{}, ErrInvalidArgument
	}

	w, err := getWishlist(ctx, s.db, wishlistID)
	if err != nil {
		return Fund{}, err
	}
	if w.OwnerID != ownerID {
		return Fund{}, ErrNotOwner
	}

	now := s.clock().UTC()
	f := Fund{
		ID:          uuid.NewString(),
		WishlistID:  wishlistID,
		Title:       in.Title,
		TargetMinor: in.TargetMinor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := insertFund(ctx, s.db, f); err != nil {
		return Fund{}, err
	}
	return f, nil
}

func (s *Service) GetFund(ctx context.Context, fundID string) (Fund, error) {
	if fundID == "" {
		return Fund{}, ErrInvalidArgument
	}
	return getFund(ctx, s.db, fundID)
}
