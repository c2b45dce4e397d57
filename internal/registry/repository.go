package registry

import (
	"context"
	"database/sql"
	"errors"
)

func insertWishlist(ctx context.Context, db *sql.DB, w Wishlist) error {
	const q = `
INSERT INTO wishlists (id, owner_id, title, currency, is_public, share_code, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := db.ExecContext(ctx, q,
		w.ID, w.OwnerID, w.Title, w.Currency, w.IsPublic, w.ShareCode, w.CreatedAt, w.UpdatedAt)
	return err
}

const wishlistColumns = `id, owner_id, title, currency, is_public, share_code, created_at, updated_at`

func scanWishlist(row *sql.Row) (Wishlist, error) {
	var w Wishlist
	err := row.Scan(&w.ID, &w.OwnerID, &w.Title, &w.Currency, &w.IsPublic, &w.ShareCode, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wishlist{}, ErrNotFound
		}
		return Wishlist{}, err
	}
	return w, nil
}

func getWishlist(ctx context.Context, db *sql.DB, id string) (Wishlist, error) {
	q := `SELECT ` + wishlistColumns + ` FROM wishlists WHERE id = $1`
	return scanWishlist(db.QueryRowContext(ctx, q, id))
}

func getWishlistByShareCode(ctx context.Context, db *sql.DB, code string) (Wishlist, error) {
	q := `SELECT ` + wishlistColumns + ` FROM wishlists WHERE share_code = $1`
	return scanWishlist(db.QueryRowContext(ctx, q, code))
}

func getWishlistOwnerTx(ctx context.Context, tx *sql.Tx, id string) (string, error) {
	const q = `SELECT owner_id FROM wishlists WHERE id = $1`
	var owner string
	if err := tx.QueryRowContext(ctx, q, id).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return owner, nil
}

const itemColumns = `id, wishlist_id, name, price_minor, min_price_minor, max_price_minor, allows_group_funding, created_at, updated_at`

func insertItem(ctx context.Context, db *sql.DB, it Item) error {
	const q = `
INSERT INTO wishlist_items (id, wishlist_id, name, price_minor, min_price_minor, max_price_minor, allows_group_funding, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := db.ExecContext(ctx, q,
		it.ID, it.WishlistID, it.Name, it.PriceMinor, it.MinPriceMinor, it.MaxPriceMinor, it.AllowsGroupFunding, it.CreatedAt, it.UpdatedAt)
	return err
}

func scanItemRow(scan func(dest ...any) error) (Item, error) {
	var it Item
	err := scan(&it.ID, &it.WishlistID, &it.Name, &it.PriceMinor, &it.MinPriceMinor, &it.MaxPriceMinor, &it.AllowsGroupFunding, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return it, nil
}

func getItem(ctx context.Context, db *sql.DB, id string) (Item, error) {
	q := `SELECT ` + itemColumns + ` FROM wishlist_items WHERE id = $1`
	return scanItemRow(db.QueryRowContext(ctx, q, id).Scan)
}

func getItemForUpdate(ctx context.Context, tx *sql.Tx, id string) (Item, error) {
	q := `SELECT ` + itemColumns + ` FROM wishlist_items WHERE id = $1 FOR UPDATE`
	return scanItemRow(tx.QueryRowContext(ctx, q, id).Scan)
}

func updateItem(ctx context.Context, tx *sql.Tx, it Item) error {
	const q = `
UPDATE wishlist_items
SET name = $1, price_minor = $2, min_price_minor = $3, max_price_minor = $4, allows_group_funding = $5, updated_at = $6
WHERE id = $7
`
	_, err := tx.ExecContext(ctx, q,
		it.Name, it.PriceMinor, it.MinPriceMinor, it.MaxPriceMinor, it.AllowsGroupFunding, it.UpdatedAt, it.ID)
	return err
}

func listItems(ctx context.Context, db *sql.DB, wishlistID string) ([]Item, error) {
	q := `SELECT ` + itemColumns + ` FROM wishlist_items WHERE wishlist_id = $1 ORDER BY created_at ASC`
	rows, err := db.QueryContext(ctx, q, wishlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItemRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func itemHasCompletedClaim(ctx context.Context, tx *sql.Tx, itemID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM claims WHERE item_id = $1 AND payment_status IN ('completed', 'not_required'))`
	var exists bool
	if err := tx.QueryRowContext(ctx, q, itemID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

const fundColumns = `id, wishlist_id, title, target_minor, current_minor, created_at, updated_at`

func insertFund(ctx context.Context, db *sql.DB, f Fund) error {
	const q = `
INSERT INTO cash_funds (id, wishlist_id, title, target_minor, current_minor, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := db.ExecContext(ctx, q,
		f.ID, f.WishlistID, f.Title, f.TargetMinor, f.CurrentMinor, f.CreatedAt, f.UpdatedAt)
	return err
}

func scanFundRow(scan func(dest ...any) error) (Fund, error) {
	var f Fund
	err := scan(&f.ID, &f.WishlistID, &f.Title, &f.TargetMinor, &f.CurrentMinor, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Fund{}, ErrNotFound
		}
		return Fund{}, err
	}
	return f, nil
}

func getFund(ctx context.Context, db *sql.DB, id string) (Fund, error) {
	q := `SELECT ` + fundColumns + ` FROM cash_funds WHERE id = $1`
	return scanFundRow(db.QueryRowContext(ctx, q, id).Scan)
}

func listFunds(ctx context.Context, db *sql.DB, wishlistID string) ([]Fund, error) {
	q := `SELECT ` + fundColumns + ` FROM cash_funds WHERE wishlist_id = $1 ORDER BY created_at ASC`
	rows, err := db.QueryContext(ctx, q, wishlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Fund
	for rows.Next() {
		f, err := scanFundRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
