package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wishdrop/internal/config"
	"wishdrop/internal/gateway"
	"wishdrop/internal/notify"
	"wishdrop/internal/wallet"

	"github.com/google/uuid"
)

// Service is the claim reconciler: it decides whether an item or fund can
// accept money, creates the pending record, and settles it exactly once
// when the gateway confirms payment.
//
// Settlement invariants:
// - exclusive items hold at most one live claim at any time
// - group items and funds never exceed their target with completed money
// - a claim/contribution transitions to a terminal state exactly once
// - the owner's wallet is credited at most once per claim/contribution,
//   keyed on the record id
type Service struct {
	repo     Repository
	ledger   Ledger
	locker   SlotLocker
	notifier Notifier
	platform config.PlatformConfig
	log      *slog.Logger
	clock    func() time.Time
}

func NewService(repo Repository, ledger Ledger, locker SlotLocker, notifier Notifier, platform config.PlatformConfig, log *slog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		ledger:   ledger,
		locker:   locker,
		notifier: notifier,
		platform: platform,
		log:      log,
		clock:    time.Now,
	}
}

type CreateClaimRequest struct {
	ItemID string `json:"item_id"`

	// ClaimerUserID is set when the guest is logged in; owners are matched
	// against it to reject self-claims.
	ClaimerUserID string `json:"-"`
	ClaimerName   string `json:"claimer_name"`
	ClaimerEmail  string `json:"claimer_email,omitempty"`
	ClaimerPhone  string `json:"claimer_phone,omitempty"`
	IsAnonymous   bool   `json:"is_anonymous"`
	IsGroupGift   bool   `json:"is_group_gift"`

	// AmountMinor of zero on a group-funding item means "fund the
	// remainder"; the remainder is computed under the item lock so it
	// cannot be stale.
	AmountMinor int64 `json:"amount_minor"`
}

// CreateClaim validates funding availability and inserts the claim.
//
// Exclusivity is enforced three times over, cheapest first: the redis slot
// lock serializes well-behaved concurrent guests, the re-check runs under
// the item row lock, and the partial unique index rejects anything that
// still slips through.
func (s *Service) CreateClaim(ctx context.Context, req CreateClaimRequest) (Claim, error) {
	if req.ItemID == "" || req.ClaimerName == "" {
		return Claim{}, ErrInvalidAmount
	}
	if req.AmountMinor < 0 {
		return Claim{}, ErrInvalidAmount
	}

	now := s.clock().UTC()
	claimID := uuid.NewString()

	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx, "claim-slot:"+req.ItemID, claimID, 10*time.Second)
		if err != nil {
			// Redis being down must not take claiming down with it; the
			// database constraint still holds the line.
			s.log.Warn("claim slot lock unavailable", "item_id", req.ItemID, "err", err)
		} else if !ok {
			return Claim{}, ErrAlreadyClaimed
		} else {
			defer func() {
				if rerr := s.locker.Release(context.WithoutCancel(ctx), "claim-slot:"+req.ItemID, claimID); rerr != nil {
					s.log.Warn("claim slot release failed", "item_id", req.ItemID, "err", rerr)
				}
			}()
		}
	}

	var out Claim
	err := s.repo.WithItemTx(ctx, req.ItemID, func(ctx context.Context, item ItemView) error {
		if req.ClaimerUserID != "" && req.ClaimerUserID == item.OwnerID {
			return ErrOwnItem
		}

		// On a group-funding item every claim draws from the shared pot,
		// whether or not the claimer asked for a partial gift. A full-price
		// claim next to completed partial claims would overshoot the target.
		groupGift := item.AllowsGroupFunding

		amount, err := s.resolveClaimAmount(ctx, item, req.AmountMinor)
		if err != nil {
			return err
		}

		out = Claim{
			ID:           claimID,
			ItemID:       item.ID,
			ClaimerName:  req.ClaimerName,
			ClaimerEmail: req.ClaimerEmail,
			ClaimerPhone: req.ClaimerPhone,
			IsAnonymous:  req.IsAnonymous,
			IsGroupGift:  groupGift,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if amount == 0 {
			out.PaymentStatus = StatusNotRequired
		} else {
			out.PaymentStatus = StatusPending
			out.AmountMinor = &amount
			out.PaymentReference = gateway.ClaimReference(claimID, now)
			expires := now.Add(s.platform.ClaimTTL)
			out.ExpiresAt = &expires
		}

		return s.repo.InsertClaim(ctx, out)
	})
	if err != nil {
		return Claim{}, err
	}
	return out, nil
}

// resolveClaimAmount computes the amount owed for a claim, enforcing
// exclusivity and overfunding rules. Runs under the item lock.
func (s *Service) resolveClaimAmount(ctx context.Context, item ItemView, requested int64) (int64, error) {
	if item.AllowsGroupFunding {
		// Claims in {pending, completed} hold their reservation until they
		// settle or expire, so the completed sum can never exceed the
		// target no matter how concurrent claims interleave.
		reserved, err := s.repo.SumLiveClaims(ctx, item.ID)
		if err != nil {
			return 0, err
		}
		remaining := item.PriceMinor - reserved
		if remaining <= 0 {
			return 0, ErrOverfunded
		}
		if requested == 0 {
			return remaining, nil
		}
		if requested > remaining {
			return 0, fmt.Errorf("%w: remaining %d", ErrOverfunded, remaining)
		}
		return requested, nil
	}

	live, err := s.repo.HasLiveClaim(ctx, item.ID)
	if err != nil {
		return 0, err
	}
	if live {
		return 0, ErrAlreadyClaimed
	}

	if item.PriceMinor == 0 {
		// Free item: a claim is a reservation, nothing to pay.
		return 0, nil
	}

	// Exclusive priced item: the claimer pays the full price, or an amount
	// within the item's declared range when one exists.
	if requested == 0 {
		return item.PriceMinor, nil
	}
	if item.MinPriceMinor != nil && requested < *item.MinPriceMinor {
		return 0, ErrInvalidAmount
	}
	if item.MaxPriceMinor != nil && requested > *item.MaxPriceMinor {
		return 0, ErrInvalidAmount
	}
	if item.MinPriceMinor == nil && item.MaxPriceMinor == nil && requested != item.PriceMinor {
		return 0, ErrInvalidAmount
	}
	return requested, nil
}

type ContributeRequest struct {
	FundID string `json:"fund_id"`

	ContributorUserID string `json:"-"`
	ContributorName   string `json:"contributor_name"`
	ContributorEmail  string `json:"contributor_email,omitempty"`
	IsAnonymous       bool   `json:"is_anonymous"`

	AmountMinor int64 `json:"amount_minor"`
}

// Contribute records a pending cash-fund contribution. Funds have no
// exclusivity; only the completed sum is capped at the target.
func (s *Service) Contribute(ctx context.Context, req ContributeRequest) (Contribution, error) {
	if req.FundID == "" || req.ContributorName == "" {
		return Contribution{}, ErrInvalidAmount
	}
	if req.AmountMinor <= 0 {
		return Contribution{}, ErrInvalidAmount
	}

	now := s.clock().UTC()
	contribID := uuid.NewString()

	var out Contribution
	err := s.repo.WithFundTx(ctx, req.FundID, func(ctx context.Context, fund FundView) error {
		if req.ContributorUserID != "" && req.ContributorUserID == fund.OwnerID {
			return ErrOwnItem
		}

		remaining := fund.TargetMinor - fund.CurrentMinor
		if remaining <= 0 || req.AmountMinor > remaining {
			return fmt.Errorf("%w: remaining %d", ErrOverfunded, max(remaining, 0))
		}

		expires := now.Add(s.platform.ClaimTTL)
		out = Contribution{
			ID:               contribID,
			FundID:           fund.ID,
			ContributorName:  req.ContributorName,
			ContributorEmail: req.ContributorEmail,
			IsAnonymous:      req.IsAnonymous,
			AmountMinor:      req.AmountMinor,
			PaymentStatus:    StatusPending,
			PaymentReference: gateway.ContributionReference(contribID, now),
			ExpiresAt:        &expires,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return s.repo.InsertContribution(ctx, out)
	})
	if err != nil {
		return Contribution{}, err
	}
	return out, nil
}

// ReconcilePaymentSuccess settles a confirmed claim payment exactly once.
//
// Both completion paths (client callback and gateway webhook) land here;
// whichever arrives first performs the transition, the second finds the
// claim completed and only re-asserts the wallet credit, which is
// idempotent on the claim id. At-least-once webhook delivery therefore
// yields exactly-once settlement.
func (s *Service) ReconcilePaymentSuccess(ctx context.Context, claimID, gatewayRef string) error {
	if claimID == "" {
		return ErrNotFound
	}

	now := s.clock().UTC()

	c, err := s.repo.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}

	if c.PaymentReference == "" || gatewayRef != c.PaymentReference {
		return ErrReferenceMismatch
	}

	switch c.PaymentStatus {
	case StatusCompleted:
		// Replay. Re-assert the credit in case the first pass crashed
		// between the transition and the wallet posting.
		return s.creditForClaim(ctx, c)
	case StatusExpired:
		return ErrClaimExpired
	case StatusFailed, StatusNotRequired:
		return ErrAlreadyTerminal
	}

	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		// The sweep hasn't caught it yet, but the slot is forfeit: the
		// money moved at the gateway after the local deadline.
		return ErrClaimExpired
	}

	var view ItemView
	err = s.repo.WithItemTx(ctx, c.ItemID, func(ctx context.Context, item ItemView) error {
		view = item
		swapped, err := s.repo.SwapClaimStatus(ctx, claimID, StatusPending, StatusCompleted, now)
		if err != nil {
			return err
		}
		if !swapped {
			// The other path won between our read and this transaction.
			fresh, err := s.repo.GetClaim(ctx, claimID)
			if err != nil {
				return err
			}
			if fresh.PaymentStatus == StatusCompleted {
				return nil
			}
			return ErrAlreadyTerminal
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.PaymentStatus = StatusCompleted
	if err := s.creditForClaimView(ctx, c, view); err != nil {
		return err
	}

	s.sendReceipt(ctx, notify.Message{
		Type:    notify.TypeClaimReceipt,
		To:      receiptRecipients(c.ClaimerEmail),
		Subject: "Your gift payment is confirmed",
		Text:    fmt.Sprintf("Your payment for claim %s has been received.", c.ID),
	})
	return nil
}

// ReconcilePaymentFailure marks a pending claim failed, freeing the slot.
// Terminal claims are left untouched.
func (s *Service) ReconcilePaymentFailure(ctx context.Context, claimID, gatewayRef string) error {
	if claimID == "" {
		return ErrNotFound
	}

	c, err := s.repo.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if c.PaymentReference == "" || gatewayRef != c.PaymentReference {
		return ErrReferenceMismatch
	}
	if c.PaymentStatus.IsTerminal() {
		return nil
	}

	_, err = s.repo.SwapClaimStatus(ctx, claimID, StatusPending, StatusFailed, s.clock().UTC())
	return err
}

// ReconcileContributionSuccess is the cash-fund settlement path. The
// status swap and the fund running-total bump commit atomically.
func (s *Service) ReconcileContributionSuccess(ctx context.Context, contributionID, gatewayRef string) error {
	if contributionID == "" {
		return ErrNotFound
	}

	now := s.clock().UTC()

	c, err := s.repo.GetContribution(ctx, contributionID)
	if err != nil {
		return err
	}
	if c.PaymentReference == "" || gatewayRef != c.PaymentReference {
		return ErrReferenceMismatch
	}

	switch c.PaymentStatus {
	case StatusCompleted:
		return s.creditForContribution(ctx, c)
	case StatusExpired:
		return ErrClaimExpired
	case StatusFailed, StatusNotRequired:
		return ErrAlreadyTerminal
	}

	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return ErrClaimExpired
	}

	var view FundView
	err = s.repo.WithFundTx(ctx, c.FundID, func(ctx context.Context, fund FundView) error {
		view = fund
		swapped, err := s.repo.SwapContributionStatus(ctx, contributionID, StatusPending, StatusCompleted, now)
		if err != nil {
			return err
		}
		if !swapped {
			fresh, err := s.repo.GetContribution(ctx, contributionID)
			if err != nil {
				return err
			}
			if fresh.PaymentStatus == StatusCompleted {
				return nil
			}
			return ErrAlreadyTerminal
		}
		return s.repo.AddFundAmount(ctx, fund.ID, c.AmountMinor, now)
	})
	if err != nil {
		return err
	}

	c.PaymentStatus = StatusCompleted
	if err := s.creditForContributionView(ctx, c, view); err != nil {
		return err
	}

	s.sendReceipt(ctx, notify.Message{
		Type:    notify.TypeContributionReceipt,
		To:      receiptRecipients(c.ContributorEmail),
		Subject: "Your contribution is confirmed",
		Text:    fmt.Sprintf("Your contribution %s has been received.", c.ID),
	})
	return nil
}

// ReconcileContributionFailure mirrors the claim failure path for funds.
func (s *Service) ReconcileContributionFailure(ctx context.Context, contributionID, gatewayRef string) error {
	if contributionID == "" {
		return ErrNotFound
	}

	c, err := s.repo.GetContribution(ctx, contributionID)
	if err != nil {
		return err
	}
	if c.PaymentReference == "" || gatewayRef != c.PaymentReference {
		return ErrReferenceMismatch
	}
	if c.PaymentStatus.IsTerminal() {
		return nil
	}

	_, err = s.repo.SwapContributionStatus(ctx, contributionID, StatusPending, StatusFailed, s.clock().UTC())
	return err
}

// ExpireStaleClaims moves pending claims and contributions past their
// deadline to expired, releasing their slots. Idempotent and
// order-independent; runs on a schedule.
func (s *Service) ExpireStaleClaims(ctx context.Context) (int64, error) {
	now := s.clock().UTC()

	claims, err := s.repo.ExpireClaimsBefore(ctx, now)
	if err != nil {
		return 0, err
	}
	contribs, err := s.repo.ExpireContributionsBefore(ctx, now)
	if err != nil {
		return claims, err
	}
	if n := claims + contribs; n > 0 {
		s.log.Info("expired stale claims", "claims", claims, "contributions", contribs)
	}
	return claims + contribs, nil
}

func (s *Service) GetClaim(ctx context.Context, claimID string) (Claim, error) {
	if claimID == "" {
		return Claim{}, ErrNotFound
	}
	return s.repo.GetClaim(ctx, claimID)
}

func (s *Service) GetContribution(ctx context.Context, contributionID string) (Contribution, error) {
	if contributionID == "" {
		return Contribution{}, ErrNotFound
	}
	return s.repo.GetContribution(ctx, contributionID)
}

func (s *Service) ListClaimsByItem(ctx context.Context, itemID string) ([]Claim, error) {
	if itemID == "" {
		return nil, ErrNotFound
	}
	return s.repo.ListClaimsByItem(ctx, itemID)
}

// DeleteClaim removes a non-completed claim, freeing the slot. Completed
// claims carry settled money and are never deleted.
func (s *Service) DeleteClaim(ctx context.Context, claimID string) error {
	c, err := s.repo.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if c.PaymentStatus == StatusCompleted {
		return ErrAlreadyTerminal
	}
	return s.repo.DeleteClaim(ctx, claimID)
}

/* ===================== WALLET POSTING ===================== */

// creditForClaim re-resolves the item context outside a lock; used on
// replays where the claim is already completed.
func (s *Service) creditForClaim(ctx context.Context, c Claim) error {
	var view ItemView
	err := s.repo.WithItemTx(ctx, c.ItemID, func(ctx context.Context, item ItemView) error {
		view = item
		return nil
	})
	if err != nil {
		return err
	}
	return s.creditForClaimView(ctx, c, view)
}

func (s *Service) creditForClaimView(ctx context.Context, c Claim, item ItemView) error {
	if c.AmountMinor == nil || *c.AmountMinor <= 0 {
		return nil
	}
	return s.credit(ctx, item.OwnerID, item.Currency, *c.AmountMinor, c.ID, "gift claim settlement")
}

func (s *Service) creditForContribution(ctx context.Context, c Contribution) error {
	var view FundView
	err := s.repo.WithFundTx(ctx, c.FundID, func(ctx context.Context, fund FundView) error {
		view = fund
		return nil
	})
	if err != nil {
		return err
	}
	return s.creditForContributionView(ctx, c, view)
}

func (s *Service) creditForContributionView(ctx context.Context, c Contribution, fund FundView) error {
	return s.credit(ctx, fund.OwnerID, fund.Currency, c.AmountMinor, c.ID, "cash fund contribution")
}

// credit posts the net-of-fee amount to the owner's wallet. The gross
// amount and fee taken are recorded in the transaction metadata so the
// net posting stays auditable.
func (s *Service) credit(ctx context.Context, ownerID, currency string, grossMinor int64, reference, description string) error {
	fee := grossMinor * s.platform.FeeBasisPoints / 10000
	net := grossMinor - fee
	if net <= 0 {
		return fmt.Errorf("%w: fee consumes entire amount", ErrInvalidAmount)
	}

	meta, _ := json.Marshal(map[string]int64{
		"gross_minor": grossMinor,
		"fee_minor":   fee,
	})

	_, _, err := s.ledger.Credit(ctx, ownerID, wallet.CreditRequest{
		AmountMinor: net,
		Currency:    currency,
		Reference:   reference,
		Description: description,
		Metadata:    string(meta),
	})
	return err
}

func (s *Service) sendReceipt(ctx context.Context, msg notify.Message) {
	if len(msg.To) == 0 {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.log.Warn("receipt send failed", "type", msg.Type, "err", err)
	}
}

func receiptRecipients(email string) []string {
	if email == "" {
		return nil
	}
	return []string{email}
}

// IsBenign reports whether a reconciliation error is an idempotency
// conflict the caller should swallow (ack and move on).
func IsBenign(err error) bool {
	return errors.Is(err, ErrAlreadyTerminal)
}
