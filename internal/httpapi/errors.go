package httpapi

import (
	"errors"
	"net/http"

	"wishdrop/internal/claims"
	"wishdrop/internal/registry"
	"wishdrop/internal/wallet"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors to HTTP status codes.
//
// Families, not individual errors: validation is 400, ownership is 403,
// missing is 404, slot/idempotency conflicts are 409. Anything unmapped
// is a 500 and must not leak its message to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, claims.ErrNotFound),
		errors.Is(err, registry.ErrNotFound),
		errors.Is(err, wallet.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, claims.ErrInvalidAmount),
		errors.Is(err, claims.ErrReferenceMismatch),
		errors.Is(err, registry.ErrInvalidArgument),
		errors.Is(err, wallet.ErrInvalidArgument):
		return http.StatusBadRequest

	case errors.Is(err, claims.ErrOwnItem),
		errors.Is(err, registry.ErrNotOwner):
		return http.StatusForbidden

	case errors.Is(err, claims.ErrAlreadyClaimed),
		errors.Is(err, claims.ErrOverfunded),
		errors.Is(err, claims.ErrAlreadyTerminal),
		errors.Is(err, claims.ErrClaimExpired),
		errors.Is(err, registry.ErrItemLocked),
		errors.Is(err, wallet.ErrInsufficientBalance),
		errors.Is(err, wallet.ErrInvalidTransition):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
