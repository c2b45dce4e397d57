package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"wishdrop/internal/auth"
	"wishdrop/internal/claims"
	"wishdrop/internal/gateway"
	"wishdrop/internal/registry"
	"wishdrop/internal/wallet"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth       *auth.Manager
	Registry   *registry.Service
	Claims     *claims.Service
	Wallet     *wallet.Service
	Gateway    *gateway.Client
	Verifier   *gateway.Verifier
	Reconciler Reconciler
	Log        *slog.Logger
}

// Reconciler is the slice of the claims service the payment endpoints
// depend on. *claims.Service satisfies it.
type Reconciler interface {
	ReconcilePaymentSuccess(ctx context.Context, claimID, gatewayRef string) error
	ReconcilePaymentFailure(ctx context.Context, claimID, gatewayRef string) error
	ReconcileContributionSuccess(ctx context.Context, contributionID, gatewayRef string) error
	ReconcileContributionFailure(ctx context.Context, contributionID, gatewayRef string) error
}

// --- Auth ---

type loginRequest struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real deployments must validate
// credentials against an identity provider before issuing tokens.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id and email required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Email, req.IsAdmin)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new pair. Refresh tokens never
// carry the admin flag, so refreshed access tokens are non-admin; admins
// log in again to regain the flag.
func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	cl, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), cl.UserID, cl.Email, false)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Registry ---

func (h Handlers) CreateWishlist(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req registry.CreateWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	w, err := h.Registry.CreateWishlist(c.Request.Context(), uid, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h Handlers) GetWishlist(c *gin.Context) {
	w, err := h.Registry.GetWishlist(c.Request.Context(), c.Param("wishlist_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	uid, _ := auth.UserID(c.Request.Context())
	if !w.IsPublic && w.OwnerID != uid {
		// Non-public lists are reachable only via their share code.
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, w)
}

// ResolveShareCode is the public entry point for guests: the opaque code
// grants read access regardless of the list's public flag.
func (h Handlers) ResolveShareCode(c *gin.Context) {
	w, items, funds, err := h.Registry.ResolveShareCode(c.Request.Context(), c.Param("share_code"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishlist": w, "items": items, "funds": funds})
}

func (h Handlers) AddItem(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var in registry.ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	item, err := h.Registry.AddItem(c.Request.Context(), uid, c.Param("wishlist_id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h Handlers) UpdateItem(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var in registry.ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	item, err := h.Registry.UpdateItem(c.Request.Context(), uid, c.Param("item_id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h Handlers) CreateFund(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var in registry.FundInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	f, err := h.Registry.CreateFund(c.Request.Context(), uid, c.Param("wishlist_id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// --- Claims (guest-facing) ---

// CreateClaim reserves an item for a guest reached via the share code.
// The item must belong to the shared list; item ids are not guessable
// entry points on their own.
func (h Handlers) CreateClaim(c *gin.Context) {
	_, items, _, err := h.Registry.ResolveShareCode(c.Request.Context(), c.Param("share_code"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	itemID := c.Param("item_id")
	if !containsItem(items, itemID) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "item not on this wishlist"})
		return
	}

	var req claims.CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.ItemID = itemID
	req.ClaimerUserID, _ = auth.UserID(c.Request.Context())

	claim, err := h.Claims.CreateClaim(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, claim)
}

func (h Handlers) Contribute(c *gin.Context) {
	_, _, funds, err := h.Registry.ResolveShareCode(c.Request.Context(), c.Param("share_code"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	fundID := c.Param("fund_id")
	if !containsFund(funds, fundID) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "fund not on this wishlist"})
		return
	}

	var req claims.ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.FundID = fundID
	req.ContributorUserID, _ = auth.UserID(c.Request.Context())

	contrib, err := h.Claims.Contribute(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contrib)
}

// ListItemClaims is the owner's view of who claimed an item.
func (h Handlers) ListItemClaims(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	item, err := h.Registry.GetItem(c.Request.Context(), c.Param("item_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	w, err := h.Registry.GetWishlist(c.Request.Context(), item.WishlistID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if w.OwnerID != uid {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not your wishlist"})
		return
	}

	list, err := h.Claims.ListClaimsByItem(c.Request.Context(), item.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": list})
}

// --- Payments ---

type checkoutRequest struct {
	Reference string `json:"reference"`
	Email     string `json:"email"`
}

// Checkout opens a Paystack transaction for a pending claim or
// contribution. The amount comes from the stored record, never from the
// client.
func (h Handlers) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Reference == "" || req.Email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "reference and email required"})
		return
	}

	amount, currency, err := h.lookupPayable(c, req.Reference)
	if err != nil {
		abortWithError(c, err)
		return
	}

	res, err := h.Gateway.Initialize(c.Request.Context(), gateway.InitializeRequest{
		AmountMinor: amount,
		Currency:    currency,
		Email:       req.Email,
		Reference:   req.Reference,
	})
	if err != nil {
		h.Log.Error("paystack initialize failed", "reference", req.Reference, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) lookupPayable(c *gin.Context, reference string) (int64, string, error) {
	kind, id, err := gateway.ParseReference(reference)
	if err != nil {
		return 0, "", claims.ErrNotFound
	}

	ctx := c.Request.Context()
	switch kind {
	case gateway.RefKindClaim:
		cl, err := h.Claims.GetClaim(ctx, id)
		if err != nil {
			return 0, "", err
		}
		if cl.PaymentStatus != claims.StatusPending || cl.AmountMinor == nil || cl.PaymentReference != reference {
			return 0, "", claims.ErrAlreadyTerminal
		}
		item, err := h.Registry.GetItem(ctx, cl.ItemID)
		if err != nil {
			return 0, "", err
		}
		w, err := h.Registry.GetWishlist(ctx, item.WishlistID)
		if err != nil {
			return 0, "", err
		}
		return *cl.AmountMinor, w.Currency, nil

	case gateway.RefKindContribution:
		co, err := h.Claims.GetContribution(ctx, id)
		if err != nil {
			return 0, "", err
		}
		if co.PaymentStatus != claims.StatusPending || co.PaymentReference != reference {
			return 0, "", claims.ErrAlreadyTerminal
		}
		fund, err := h.Registry.GetFund(ctx, co.FundID)
		if err != nil {
			return 0, "", err
		}
		w, err := h.Registry.GetWishlist(ctx, fund.WishlistID)
		if err != nil {
			return 0, "", err
		}
		return co.AmountMinor, w.Currency, nil
	}
	return 0, "", claims.ErrNotFound
}

// PaymentCallback is the client-redirect completion path. It trusts the
// gateway's server-to-server Verify result, never the redirect itself,
// and settles through the same reconciler as the webhook.
func (h Handlers) PaymentCallback(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "reference required"})
		return
	}

	res, err := h.Gateway.Verify(c.Request.Context(), reference)
	if err != nil {
		h.Log.Error("paystack verify failed", "reference", reference, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable"})
		return
	}

	if err := h.settle(c, reference, res.Status == "success"); err != nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"reference": reference, "status": res.Status})
}

// settle routes a verified gateway outcome into the reconciler. Benign
// replays fall through as success; real failures abort the request.
func (h Handlers) settle(c *gin.Context, reference string, success bool) error {
	kind, id, err := gateway.ParseReference(reference)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unrecognized reference"})
		return err
	}

	ctx := c.Request.Context()
	switch {
	case kind == gateway.RefKindClaim && success:
		err = h.Reconciler.ReconcilePaymentSuccess(ctx, id, reference)
	case kind == gateway.RefKindClaim:
		err = h.Reconciler.ReconcilePaymentFailure(ctx, id, reference)
	case kind == gateway.RefKindContribution && success:
		err = h.Reconciler.ReconcileContributionSuccess(ctx, id, reference)
	default:
		err = h.Reconciler.ReconcileContributionFailure(ctx, id, reference)
	}

	if err != nil && !claims.IsBenign(err) {
		abortWithError(c, err)
		return err
	}
	return nil
}

// --- Wallet ---

func (h Handlers) GetWalletBalance(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	bal, err := h.Wallet.GetBalance(c.Request.Context(), uid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, bal)
}

func (h Handlers) ListWalletTransactions(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	txns, err := h.Wallet.ListTransactions(c.Request.Context(), uid, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

func (h Handlers) RequestWithdrawal(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var in wallet.WithdrawalRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req, err := h.Wallet.RequestWithdrawal(c.Request.Context(), uid, in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// --- Admin ---

type verifyPaymentRequest struct {
	Reference string `json:"reference"`
}

// AdminVerifyPayment is the manual reconciliation fallback: an operator
// forces a server-to-server Verify for a reference the webhooks missed.
func (h Handlers) AdminVerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Reference == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "reference required"})
		return
	}

	res, err := h.Gateway.Verify(c.Request.Context(), req.Reference)
	if err != nil {
		h.Log.Error("paystack verify failed", "reference", req.Reference, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable"})
		return
	}

	if err := h.settle(c, req.Reference, res.Status == "success"); err != nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"reference": req.Reference, "status": res.Status})
}

type processWithdrawalRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

func (h Handlers) AdminProcessWithdrawal(c *gin.Context) {
	operatorID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req processWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status required"})
		return
	}

	out, err := h.Wallet.ProcessWithdrawal(c.Request.Context(), c.Param("request_id"),
		wallet.WithdrawalStatus(req.Status), operatorID, req.Notes)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) AdminListWithdrawals(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.Wallet.ListWithdrawals(c.Request.Context(),
		wallet.WithdrawalStatus(c.Query("status")), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

func (h Handlers) AdminDeleteClaim(c *gin.Context) {
	if err := h.Claims.DeleteClaim(c.Request.Context(), c.Param("claim_id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func containsItem(items []registry.Item, id string) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func containsFund(funds []registry.Fund, id string) bool {
	for _, f := range funds {
		if f.ID == id {
			return true
		}
	}
	return false
}
