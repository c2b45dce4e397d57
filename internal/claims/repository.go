package claims

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wishdrop/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepository implements Repository over database/sql (pgx stdlib).
//
// Transactions are carried in the context: WithItemTx/WithFundTx stash the
// *sql.Tx, and every query helper picks it up so calls made inside the
// callback join the same transaction without changing their signatures.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type txKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PostgresRepository) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

func (r *PostgresRepository) WithItemTx(ctx context.Context, itemID string, fn func(ctx context.Context, item ItemView) error) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		ctx = context.WithValue(ctx, txKey{}, tx)

		// Lock the item row for the duration; owner and currency come off
		// the parent wishlist, which is read without a lock.
		var v ItemView
		err := tx.QueryRowContext(ctx, `
			SELECT i.id, i.wishlist_id, w.owner_id, w.currency,
			       i.price_minor, i.min_price_minor, i.max_price_minor,
			       i.allows_group_funding
			FROM wishlist_items i
			JOIN wishlists w ON w.id = i.wishlist_id
			WHERE i.id = $1
			FOR UPDATE OF i`,
			itemID,
		).Scan(&v.ID, &v.WishlistID, &v.OwnerID, &v.Currency,
			&v.PriceMinor, &v.MinPriceMinor, &v.MaxPriceMinor,
			&v.AllowsGroupFunding)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock item: %w", err)
		}
		return fn(ctx, v)
	})
}

func (r *PostgresRepository) WithFundTx(ctx context.Context, fundID string, fn func(ctx context.Context, fund FundView) error) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		ctx = context.WithValue(ctx, txKey{}, tx)

		var v FundView
		err := tx.QueryRowContext(ctx, `
			SELECT f.id, f.wishlist_id, w.owner_id, w.currency,
			       f.target_minor, f.current_minor
			FROM cash_funds f
			JOIN wishlists w ON w.id = f.wishlist_id
			WHERE f.id = $1
			FOR UPDATE OF f`,
			fundID,
		).Scan(&v.ID, &v.WishlistID, &v.OwnerID, &v.Currency,
			&v.TargetMinor, &v.CurrentMinor)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock fund: %w", err)
		}
		return fn(ctx, v)
	})
}

func (r *PostgresRepository) HasLiveClaim(ctx context.Context, itemID string) (bool, error) {
	var exists bool
	err := r.q(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM claims
			WHERE item_id = $1
			  AND payment_status IN ('pending', 'completed', 'not_required')
		)`,
		itemID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check live claim: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) SumLiveClaims(ctx context.Context, itemID string) (int64, error) {
	var sum int64
	err := r.q(ctx).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_minor), 0) FROM claims
		WHERE item_id = $1 AND payment_status IN ('pending', 'completed')`,
		itemID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum completed claims: %w", err)
	}
	return sum, nil
}

func (r *PostgresRepository) InsertClaim(ctx context.Context, c Claim) error {
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO claims (
			id, item_id, claimer_name, claimer_email, claimer_phone,
			is_anonymous, is_group_gift, amount_minor,
			payment_status, payment_reference, expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.ItemID, c.ClaimerName, c.ClaimerEmail, c.ClaimerPhone,
		c.IsAnonymous, c.IsGroupGift, c.AmountMinor,
		c.PaymentStatus, nullString(c.PaymentReference), c.ExpiresAt,
		c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		// claims_exclusive_live_idx: someone else took the slot between the
		// availability check and the insert.
		return ErrAlreadyClaimed
	}
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

const claimColumns = `
	id, item_id, claimer_name, claimer_email, claimer_phone,
	is_anonymous, is_group_gift, amount_minor,
	payment_status, COALESCE(payment_reference, ''), expires_at,
	created_at, updated_at`

func scanClaim(row interface{ Scan(...any) error }) (Claim, error) {
	var c Claim
	err := row.Scan(
		&c.ID, &c.ItemID, &c.ClaimerName, &c.ClaimerEmail, &c.ClaimerPhone,
		&c.IsAnonymous, &c.IsGroupGift, &c.AmountMinor,
		&c.PaymentStatus, &c.PaymentReference, &c.ExpiresAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *PostgresRepository) GetClaim(ctx context.Context, id string) (Claim, error) {
	row := r.q(ctx).QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1`, id)
	c, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Claim{}, ErrNotFound
	}
	if err != nil {
		return Claim{}, fmt.Errorf("get claim: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListClaimsByItem(ctx context.Context, itemID string) ([]Claim, error) {
	rows, err := r.q(ctx).QueryContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE item_id = $1 ORDER BY created_at`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) SwapClaimStatus(ctx context.Context, id string, from, to PaymentStatus, now time.Time) (bool, error) {
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE claims SET payment_status = $1, updated_at = $2
		WHERE id = $3 AND payment_status = $4`,
		to, now, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("swap claim status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepository) DeleteClaim(ctx context.Context, id string) error {
	res, err := r.q(ctx).ExecContext(ctx, `DELETE FROM claims WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete claim: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) InsertContribution(ctx context.Context, c Contribution) error {
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO contributions (
			id, fund_id, contributor_name, contributor_email, is_anonymous,
			amount_minor, payment_status, payment_reference, expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.FundID, c.ContributorName, c.ContributorEmail, c.IsAnonymous,
		c.AmountMinor, c.PaymentStatus, nullString(c.PaymentReference), c.ExpiresAt,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contribution: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetContribution(ctx context.Context, id string) (Contribution, error) {
	var c Contribution
	err := r.q(ctx).QueryRowContext(ctx, `
		SELECT id, fund_id, contributor_name, contributor_email, is_anonymous,
		       amount_minor, payment_status, COALESCE(payment_reference, ''),
		       expires_at, created_at, updated_at
		FROM contributions WHERE id = $1`,
		id,
	).Scan(
		&c.ID, &c.FundID, &c.ContributorName, &c.ContributorEmail, &c.IsAnonymous,
		&c.AmountMinor, &c.PaymentStatus, &c.PaymentReference,
		&c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Contribution{}, ErrNotFound
	}
	if err != nil {
		return Contribution{}, fmt.Errorf("get contribution: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) SwapContributionStatus(ctx context.Context, id string, from, to PaymentStatus, now time.Time) (bool, error) {
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE contributions SET payment_status = $1, updated_at = $2
		WHERE id = $3 AND payment_status = $4`,
		to, now, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("swap contribution status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepository) AddFundAmount(ctx context.Context, fundID string, deltaMinor int64, now time.Time) error {
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE cash_funds SET current_minor = current_minor + $1, updated_at = $2
		WHERE id = $3`,
		deltaMinor, now, fundID,
	)
	if err != nil {
		return fmt.Errorf("add fund amount: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ExpireClaimsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE claims SET payment_status = 'expired', updated_at = $1
		WHERE payment_status = 'pending' AND expires_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("expire claims: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) ExpireContributionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE contributions SET payment_status = 'expired', updated_at = $1
		WHERE payment_status = 'pending' AND expires_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("expire contributions: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
