package httpapi

import (
	"errors"
	"io"
	"net/http"

	"wishdrop/internal/claims"
	"wishdrop/internal/gateway"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

// PaystackWebhook processes gateway charge events.
//
// Contract with the gateway's at-least-once delivery:
// - signature verified over the exact raw bytes before any parsing
// - replays and already-settled claims ack 200 so retries stop
// - expired-but-paid claims ack 200 but log at error level; the money is
//   at the gateway with no slot to settle into, which is an operator case
// - transient internal failures return 500 so the gateway redelivers
func (h Handlers) PaystackWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.Verifier.Verify(body, c.GetHeader(gateway.SignatureHeader)); err != nil {
		h.Log.Warn("webhook signature rejected", "remote", c.ClientIP())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	ev, err := gateway.ParseEvent(body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	switch ev.Event {
	case gateway.EventChargeSuccess, gateway.EventChargeFailed:
	default:
		// Not an event this service acts on.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	kind, id, err := gateway.ParseReference(ev.Data.Reference)
	if err != nil {
		// Signed and well-formed but not one of our references; nothing to
		// settle, nothing to retry.
		h.Log.Warn("webhook reference not recognized", "reference", ev.Data.Reference)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx := c.Request.Context()
	success := ev.Event == gateway.EventChargeSuccess
	switch {
	case kind == gateway.RefKindClaim && success:
		err = h.Reconciler.ReconcilePaymentSuccess(ctx, id, ev.Data.Reference)
	case kind == gateway.RefKindClaim:
		err = h.Reconciler.ReconcilePaymentFailure(ctx, id, ev.Data.Reference)
	case success:
		err = h.Reconciler.ReconcileContributionSuccess(ctx, id, ev.Data.Reference)
	default:
		err = h.Reconciler.ReconcileContributionFailure(ctx, id, ev.Data.Reference)
	}

	switch {
	case err == nil, claims.IsBenign(err):
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, claims.ErrClaimExpired):
		h.Log.Error("payment confirmed for expired claim", "reference", ev.Data.Reference)
		c.JSON(http.StatusOK, gin.H{"status": "expired"})
	case errors.Is(err, claims.ErrNotFound), errors.Is(err, claims.ErrReferenceMismatch):
		h.Log.Warn("webhook reference unmatched", "reference", ev.Data.Reference, "err", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	default:
		h.Log.Error("webhook reconcile failed", "reference", ev.Data.Reference, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reconcile failed"})
	}
}
