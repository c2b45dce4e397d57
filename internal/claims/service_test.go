package claims

import (
	"context"
	"testing"
	"time"

	"wishdrop/internal/config"
	"wishdrop/internal/gateway"
	"wishdrop/internal/notify"
	"wishdrop/internal/wallet"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) WithItemTx(ctx context.Context, itemID string, fn func(context.Context, ItemView) error) error {
	args := m.Called(ctx, itemID)
	if err := args.Error(1); err != nil {
		return err
	}
	return fn(ctx, args.Get(0).(ItemView))
}

func (m *mockRepo) WithFundTx(ctx context.Context, fundID string, fn func(context.Context, FundView) error) error {
	args := m.Called(ctx, fundID)
	if err := args.Error(1); err != nil {
		return err
	}
	return fn(ctx, args.Get(0).(FundView))
}

func (m *mockRepo) HasLiveClaim(ctx context.Context, itemID string) (bool, error) {
	args := m.Called(ctx, itemID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) SumLiveClaims(ctx context.Context, itemID string) (int64, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) InsertClaim(ctx context.Context, c Claim) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockRepo) GetClaim(ctx context.Context, id string) (Claim, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Claim), args.Error(1)
}

func (m *mockRepo) ListClaimsByItem(ctx context.Context, itemID string) ([]Claim, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Claim), args.Error(1)
}

func (m *mockRepo) SwapClaimStatus(ctx context.Context, id string, from, to PaymentStatus, now time.Time) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) DeleteClaim(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) InsertContribution(ctx context.Context, c Contribution) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockRepo) GetContribution(ctx context.Context, id string) (Contribution, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Contribution), args.Error(1)
}

func (m *mockRepo) SwapContributionStatus(ctx context.Context, id string, from, to PaymentStatus, now time.Time) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) AddFundAmount(ctx context.Context, fundID string, deltaMinor int64, now time.Time) error {
	return m.Called(ctx, fundID, deltaMinor).Error(0)
}

func (m *mockRepo) ExpireClaimsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) ExpireContributionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Credit(ctx context.Context, userID string, req wallet.CreditRequest) (wallet.Transaction, wallet.Balance, error) {
	args := m.Called(ctx, userID, req)
	return wallet.Transaction{}, wallet.Balance{}, args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, msg notify.Message) error {
	return m.Called(ctx, msg).Error(0)
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository, ledger Ledger) *Service {
	s := NewService(repo, ledger, nil, notify.Noop{}, config.PlatformConfig{
		FeeBasisPoints:  500,
		ClaimTTL:        20 * time.Minute,
		DefaultCurrency: "NGN",
	}, nil)
	s.clock = func() time.Time { return testNow }
	return s
}

func exclusiveItem(ownerID string, priceMinor int64) ItemView {
	return ItemView{
		ID:         uuid.NewString(),
		WishlistID: uuid.NewString(),
		OwnerID:    ownerID,
		Currency:   "NGN",
		PriceMinor: priceMinor,
	}
}

func TestCreateClaim_ExclusiveItem(t *testing.T) {
	owner := uuid.NewString()
	item := exclusiveItem(owner, 500000)

	repo := new(mockRepo)
	repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)
	repo.On("HasLiveClaim", mock.Anything, item.ID).Return(false, nil)
	repo.On("InsertClaim", mock.Anything, mock.MatchedBy(func(c Claim) bool {
		return c.PaymentStatus == StatusPending &&
			c.AmountMinor != nil && *c.AmountMinor == 500000 &&
			c.PaymentReference != "" && c.ExpiresAt != nil
	})).Return(nil)

	s := newTestService(repo, new(mockLedger))
	c, err := s.CreateClaim(context.Background(), CreateClaimRequest{
		ItemID:      item.ID,
		ClaimerName: "Ada",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, c.PaymentStatus)
	assert.Equal(t, int64(500000), *c.AmountMinor)
	assert.Equal(t, testNow.Add(20*time.Minute), *c.ExpiresAt)

	kind, id, err := gateway.ParseReference(c.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, gateway.RefKindClaim, kind)
	assert.Equal(t, c.ID, id)

	repo.AssertExpectations(t)
}

func TestCreateClaim_RejectsSecondLiveClaim(t *testing.T) {
	item := exclusiveItem(uuid.NewString(), 500000)

	repo := new(mockRepo)
	repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)
	repo.On("HasLiveClaim", mock.Anything, item.ID).Return(true, nil)

	s := newTestService(repo, new(mockLedger))
	_, err := s.CreateClaim(context.Background(), CreateClaimRequest{
		ItemID:      item.ID,
		ClaimerName: "Bisi",
	})
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	repo.AssertNotCalled(t, "InsertClaim", mock.Anything, mock.Anything)
}

func TestCreateClaim_RejectsOwner(t *testing.T) {
	owner := uuid.NewString()
	item := exclusiveItem(owner, 500000)

	repo := new(mockRepo)
	repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)

	s := newTestService(repo, new(mockLedger))
	_, err := s.CreateClaim(context.Background(), CreateClaimRequest{
		ItemID:        item.ID,
		ClaimerUserID: owner,
		ClaimerName:   "Owner",
	})
	assert.ErrorIs(t, err, ErrOwnItem)
}

func TestCreateClaim_FreeItemNeedsNoPayment(t *testing.T) {
	item := exclusiveItem(uuid.NewString(), 0)

	repo := new(mockRepo)
	repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)
	repo.On("HasLiveClaim", mock.Anything, item.ID).Return(false, nil)
	repo.On("InsertClaim", mock.Anything, mock.MatchedBy(func(c Claim) bool {
		return c.PaymentStatus == StatusNotRequired &&
			c.AmountMinor == nil && c.PaymentReference == "" && c.ExpiresAt == nil
	})).Return(nil)

	s := newTestService(repo, new(mockLedger))
	c, err := s.CreateClaim(context.Background(), CreateClaimRequest{
		ItemID:      item.ID,
		ClaimerName: "Chike",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusNotRequired, c.PaymentStatus)
	repo.AssertExpectations(t)
}

func TestCreateClaim_GroupGiftFunding(t *testing.T) {
	item := exclusiveItem(uuid.NewString(), 1000000)
	item.AllowsGroupFunding = true

	t.Run("over the remainder is rejected", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)
		repo.On("SumLiveClaims", mock.Anything, item.ID).Return(int64(400000), nil)

		s := newTestService(repo, new(mockLedger))
		_, err := s.CreateClaim(context.Background(), CreateClaimRequest{
			ItemID:      item.ID,
			ClaimerName: "Dayo",
			IsGroupGift: true,
			AmountMinor: 700000,
		})
		assert.ErrorIs(t, err, ErrOverfunded)
	})

	t.Run("exactly the remainder is accepted", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)
		repo.On("SumLiveClaims", mock.Anything, item.ID).Return(int64(400000), nil)
		repo.On("InsertClaim", mock.Anything, mock.Anything).Return(nil)

		s := newTestService(repo, new(mockLedger))
		c, err := s.CreateClaim(context.Background(), CreateClaimRequest{
			ItemID:      item.ID,
			ClaimerName: "Dayo",
			IsGroupGift: true,
			AmountMinor: 600000,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(600000), *c.AmountMinor)
	})

	t.Run("zero amount funds the remainder", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)
		repo.On("SumLiveClaims", mock.Anything, item.ID).Return(int64(400000), nil)
		repo.On("InsertClaim", mock.Anything, mock.Anything).Return(nil)

		s := newTestService(repo, new(mockLedger))
		c, err := s.CreateClaim(context.Background(), CreateClaimRequest{
			ItemID:      item.ID,
			ClaimerName: "Dayo",
			IsGroupGift: true,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(600000), *c.AmountMinor)
	})

	t.Run("fully funded item rejects further claims", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)
		repo.On("SumLiveClaims", mock.Anything, item.ID).Return(int64(1000000), nil)

		s := newTestService(repo, new(mockLedger))
		_, err := s.CreateClaim(context.Background(), CreateClaimRequest{
			ItemID:      item.ID,
			ClaimerName: "Dayo",
			IsGroupGift: true,
			AmountMinor: 100,
		})
		assert.ErrorIs(t, err, ErrOverfunded)
	})
}

func TestCreateClaim_GroupItemCapsFullClaims(t *testing.T) {
	item := exclusiveItem(uuid.NewString(), 1000000)
	item.AllowsGroupFunding = true

	t.Run("zero amount resolves to the remainder, not the full price", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)
		repo.On("SumLiveClaims", mock.Anything, item.ID).Return(int64(400000), nil)
		repo.On("InsertClaim", mock.Anything, mock.MatchedBy(func(c Claim) bool {
			return c.IsGroupGift && c.AmountMinor != nil && *c.AmountMinor == 600000
		})).Return(nil)

		// The claimer did not opt into a partial gift; with 400000 already
		// reserved against a 1000000 target the claim must still draw from
		// the pot and settle at the remainder.
		s := newTestService(repo, new(mockLedger))
		c, err := s.CreateClaim(context.Background(), CreateClaimRequest{
			ItemID:      item.ID,
			ClaimerName: "Femi",
			IsGroupGift: false,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(600000), *c.AmountMinor)
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "HasLiveClaim", mock.Anything, mock.Anything)
	})

	t.Run("full price on a partly funded item is rejected", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)
		repo.On("SumLiveClaims", mock.Anything, item.ID).Return(int64(400000), nil)

		s := newTestService(repo, new(mockLedger))
		_, err := s.CreateClaim(context.Background(), CreateClaimRequest{
			ItemID:      item.ID,
			ClaimerName: "Femi",
			IsGroupGift: false,
			AmountMinor: 1000000,
		})
		assert.ErrorIs(t, err, ErrOverfunded)
		repo.AssertNotCalled(t, "InsertClaim", mock.Anything, mock.Anything)
	})
}

func pendingClaim(itemID string, amount int64) Claim {
	expires := testNow.Add(10 * time.Minute)
	return Claim{
		ID:               uuid.NewString(),
		ItemID:           itemID,
		ClaimerName:      "Ada",
		AmountMinor:      &amount,
		PaymentStatus:    StatusPending,
		PaymentReference: gateway.ClaimReference("", testNow), // replaced per test
		ExpiresAt:        &expires,
		CreatedAt:        testNow,
		UpdatedAt:        testNow,
	}
}

func TestReconcilePaymentSuccess_CreditsNetOfFee(t *testing.T) {
	owner := uuid.NewString()
	item := exclusiveItem(owner, 500000)

	c := pendingClaim(item.ID, 500000)
	c.PaymentReference = gateway.ClaimReference(c.ID, testNow)

	repo := new(mockRepo)
	repo.On("GetClaim", mock.Anything, c.ID).Return(c, nil)
	repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)
	repo.On("SwapClaimStatus", mock.Anything, c.ID, StatusPending, StatusCompleted).Return(true, nil)

	ledger := new(mockLedger)
	// 500000 kobo gross at 500 bps: 25000 fee, 475000 net.
	ledger.On("Credit", mock.Anything, owner, mock.MatchedBy(func(req wallet.CreditRequest) bool {
		return req.AmountMinor == 475000 && req.Currency == "NGN" && req.Reference == c.ID
	})).Return(nil)

	s := newTestService(repo, ledger)
	err := s.ReconcilePaymentSuccess(context.Background(), c.ID, c.PaymentReference)
	require.NoError(t, err)

	repo.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestReconcilePaymentSuccess_ReplayIsIdempotent(t *testing.T) {
	owner := uuid.NewString()
	item := exclusiveItem(owner, 500000)

	c := pendingClaim(item.ID, 500000)
	c.PaymentReference = gateway.ClaimReference(c.ID, testNow)
	c.PaymentStatus = StatusCompleted

	repo := new(mockRepo)
	repo.On("GetClaim", mock.Anything, c.ID).Return(c, nil)
	repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)

	ledger := new(mockLedger)
	ledger.On("Credit", mock.Anything, owner, mock.Anything).Return(nil)

	s := newTestService(repo, ledger)

	// A replayed webhook re-asserts the idempotent credit and succeeds
	// without a second status transition.
	require.NoError(t, s.ReconcilePaymentSuccess(context.Background(), c.ID, c.PaymentReference))
	require.NoError(t, s.ReconcilePaymentSuccess(context.Background(), c.ID, c.PaymentReference))

	repo.AssertNotCalled(t, "SwapClaimStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	ledger.AssertNumberOfCalls(t, "Credit", 2)
}

func TestReconcilePaymentSuccess_LosingRaceIsBenign(t *testing.T) {
	owner := uuid.NewString()
	item := exclusiveItem(owner, 500000)

	c := pendingClaim(item.ID, 500000)
	c.PaymentReference = gateway.ClaimReference(c.ID, testNow)

	done := c
	done.PaymentStatus = StatusCompleted

	repo := new(mockRepo)
	repo.On("GetClaim", mock.Anything, c.ID).Return(c, nil).Once()
	repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)
	// The concurrent path completed the claim between our read and the swap.
	repo.On("SwapClaimStatus", mock.Anything, c.ID, StatusPending, StatusCompleted).Return(false, nil)
	repo.On("GetClaim", mock.Anything, c.ID).Return(done, nil)

	ledger := new(mockLedger)
	ledger.On("Credit", mock.Anything, owner, mock.Anything).Return(nil)

	s := newTestService(repo, ledger)
	require.NoError(t, s.ReconcilePaymentSuccess(context.Background(), c.ID, c.PaymentReference))
}

func TestReconcilePaymentSuccess_ExpiredClaim(t *testing.T) {
	item := exclusiveItem(uuid.NewString(), 500000)

	c := pendingClaim(item.ID, 500000)
	c.PaymentReference = gateway.ClaimReference(c.ID, testNow)
	past := testNow.Add(-time.Minute)
	c.ExpiresAt = &past

	repo := new(mockRepo)
	repo.On("GetClaim", mock.Anything, c.ID).Return(c, nil)

	ledger := new(mockLedger)
	s := newTestService(repo, ledger)

	err := s.ReconcilePaymentSuccess(context.Background(), c.ID, c.PaymentReference)
	assert.ErrorIs(t, err, ErrClaimExpired)

	repo.AssertNotCalled(t, "SwapClaimStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcilePaymentSuccess_ReferenceMismatch(t *testing.T) {
	item := exclusiveItem(uuid.NewString(), 500000)

	c := pendingClaim(item.ID, 500000)
	c.PaymentReference = gateway.ClaimReference(c.ID, testNow)

	repo := new(mockRepo)
	repo.On("GetClaim", mock.Anything, c.ID).Return(c, nil)

	s := newTestService(repo, new(mockLedger))
	err := s.ReconcilePaymentSuccess(context.Background(), c.ID, gateway.ClaimReference(uuid.NewString(), testNow))
	assert.ErrorIs(t, err, ErrReferenceMismatch)
}

func TestReconcilePaymentFailure(t *testing.T) {
	item := exclusiveItem(uuid.NewString(), 500000)

	c := pendingClaim(item.ID, 500000)
	c.PaymentReference = gateway.ClaimReference(c.ID, testNow)

	repo := new(mockRepo)
	repo.On("GetClaim", mock.Anything, c.ID).Return(c, nil)
	repo.On("SwapClaimStatus", mock.Anything, c.ID, StatusPending, StatusFailed).Return(true, nil)

	s := newTestService(repo, new(mockLedger))
	require.NoError(t, s.ReconcilePaymentFailure(context.Background(), c.ID, c.PaymentReference))
	repo.AssertExpectations(t)
}

func TestReconcilePaymentFailure_TerminalIsNoop(t *testing.T) {
	item := exclusiveItem(uuid.NewString(), 500000)

	c := pendingClaim(item.ID, 500000)
	c.PaymentReference = gateway.ClaimReference(c.ID, testNow)
	c.PaymentStatus = StatusCompleted

	repo := new(mockRepo)
	repo.On("GetClaim", mock.Anything, c.ID).Return(c, nil)

	s := newTestService(repo, new(mockLedger))
	require.NoError(t, s.ReconcilePaymentFailure(context.Background(), c.ID, c.PaymentReference))
	repo.AssertNotCalled(t, "SwapClaimStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func testFund(ownerID string, target, current int64) FundView {
	return FundView{
		ID:           uuid.NewString(),
		WishlistID:   uuid.NewString(),
		OwnerID:      ownerID,
		Currency:     "NGN",
		TargetMinor:  target,
		CurrentMinor: current,
	}
}

func TestContribute_EnforcesTarget(t *testing.T) {
	fund := testFund(uuid.NewString(), 1000000, 400000)

	t.Run("over the remainder is rejected", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("WithFundTx", mock.Anything, fund.ID).Return(fund, nil)

		s := newTestService(repo, new(mockLedger))
		_, err := s.Contribute(context.Background(), ContributeRequest{
			FundID:          fund.ID,
			ContributorName: "Efe",
			AmountMinor:     700000,
		})
		assert.ErrorIs(t, err, ErrOverfunded)
	})

	t.Run("within the remainder is accepted", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("WithFundTx", mock.Anything, fund.ID).Return(fund, nil)
		repo.On("InsertContribution", mock.Anything, mock.MatchedBy(func(c Contribution) bool {
			return c.AmountMinor == 600000 && c.PaymentStatus == StatusPending
		})).Return(nil)

		s := newTestService(repo, new(mockLedger))
		c, err := s.Contribute(context.Background(), ContributeRequest{
			FundID:          fund.ID,
			ContributorName: "Efe",
			AmountMinor:     600000,
		})
		require.NoError(t, err)

		kind, id, err := gateway.ParseReference(c.PaymentReference)
		require.NoError(t, err)
		assert.Equal(t, gateway.RefKindContribution, kind)
		assert.Equal(t, c.ID, id)
	})
}

func TestReconcileContributionSuccess(t *testing.T) {
	owner := uuid.NewString()
	fund := testFund(owner, 1000000, 400000)

	expires := testNow.Add(10 * time.Minute)
	c := Contribution{
		ID:              uuid.NewString(),
		FundID:          fund.ID,
		ContributorName: "Efe",
		AmountMinor:     600000,
		PaymentStatus:   StatusPending,
		ExpiresAt:       &expires,
	}
	c.PaymentReference = gateway.ContributionReference(c.ID, testNow)

	repo := new(mockRepo)
	repo.On("GetContribution", mock.Anything, c.ID).Return(c, nil)
	repo.On("WithFundTx", mock.Anything, fund.ID).Return(fund, nil)
	repo.On("SwapContributionStatus", mock.Anything, c.ID, StatusPending, StatusCompleted).Return(true, nil)
	repo.On("AddFundAmount", mock.Anything, fund.ID, int64(600000)).Return(nil)

	ledger := new(mockLedger)
	ledger.On("Credit", mock.Anything, owner, mock.MatchedBy(func(req wallet.CreditRequest) bool {
		return req.AmountMinor == 570000 && req.Reference == c.ID
	})).Return(nil)

	s := newTestService(repo, ledger)
	require.NoError(t, s.ReconcileContributionSuccess(context.Background(), c.ID, c.PaymentReference))

	repo.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestReconcilePaymentSuccess_NotifyFailureDoesNotBlockMoney(t *testing.T) {
	owner := uuid.NewString()
	item := exclusiveItem(owner, 500000)

	c := pendingClaim(item.ID, 500000)
	c.ClaimerEmail = "ada@example.com"
	c.PaymentReference = gateway.ClaimReference(c.ID, testNow)

	repo := new(mockRepo)
	repo.On("GetClaim", mock.Anything, c.ID).Return(c, nil)
	repo.On("WithItemTx", mock.Anything, item.ID).Return(item, nil)
	repo.On("SwapClaimStatus", mock.Anything, c.ID, StatusPending, StatusCompleted).Return(true, nil)

	ledger := new(mockLedger)
	ledger.On("Credit", mock.Anything, owner, mock.Anything).Return(nil)

	notifier := new(mockNotifier)
	notifier.On("Send", mock.Anything, mock.Anything).Return(assert.AnError)

	s := NewService(repo, ledger, nil, notifier, config.PlatformConfig{
		FeeBasisPoints: 500, ClaimTTL: 20 * time.Minute, DefaultCurrency: "NGN",
	}, nil)
	s.clock = func() time.Time { return testNow }

	// The mailer blowing up must not surface or undo the settlement.
	require.NoError(t, s.ReconcilePaymentSuccess(context.Background(), c.ID, c.PaymentReference))
	ledger.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestExpireStaleClaims(t *testing.T) {
	repo := new(mockRepo)
	repo.On("ExpireClaimsBefore", mock.Anything, testNow).Return(int64(3), nil)
	repo.On("ExpireContributionsBefore", mock.Anything, testNow).Return(int64(2), nil)

	s := newTestService(repo, new(mockLedger))
	n, err := s.ExpireStaleClaims(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestDeleteClaim_RejectsCompleted(t *testing.T) {
	c := pendingClaim(uuid.NewString(), 500000)
	c.PaymentStatus = StatusCompleted

	repo := new(mockRepo)
	repo.On("GetClaim", mock.Anything, c.ID).Return(c, nil)

	s := newTestService(repo, new(mockLedger))
	err := s.DeleteClaim(context.Background(), c.ID)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	repo.AssertNotCalled(t, "DeleteClaim", mock.Anything, mock.Anything)
}

func TestIsTerminal(t *testing.T) {
	terminal := []PaymentStatus{StatusCompleted, StatusFailed, StatusExpired, StatusNotRequired}
	for _, st := range terminal {
		assert.True(t, st.IsTerminal(), string(st))
	}
	assert.False(t, StatusPending.IsTerminal())
}
