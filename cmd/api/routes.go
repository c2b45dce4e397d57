package main

import (
	"wishdrop/internal/auth"
	"wishdrop/internal/httpapi"
	"wishdrop/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authManager *auth.Manager) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public, signature-verified inside the handler).
	r.POST("/webhooks/paystack", h.PaystackWebhook)

	v1 := r.Group("/v1")

	// AUTH routes (token issuance).
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	// GUEST routes: reachable via share code, no login required. A valid
	// bearer token is still honored so owners can't claim their own items
	// anonymously.
	guest := v1.Group("/")
	guest.Use(auth.OptionalAccessToken(authManager))
	{
		guest.GET("/lists/:share_code", h.ResolveShareCode)
		guest.POST("/lists/:share_code/items/:item_id/claims", h.CreateClaim)
		guest.POST("/lists/:share_code/funds/:fund_id/contributions", h.Contribute)

		guest.POST("/payments/checkout", h.Checkout)
		guest.GET("/payments/callback", h.PaymentCallback)
	}

	// OWNER routes
	authed := v1.Group("/")
	authed.Use(auth.RequireAccessToken(authManager), rbac.RequireUser())
	{
		authed.POST("/wishlists", h.CreateWishlist)
		authed.GET("/wishlists/:wishlist_id", h.GetWishlist)
		authed.POST("/wishlists/:wishlist_id/items", h.AddItem)
		authed.POST("/wishlists/:wishlist_id/funds", h.CreateFund)
		authed.PUT("/items/:item_id", h.UpdateItem)
		authed.GET("/items/:item_id/claims", h.ListItemClaims)

		authed.GET("/wallet/balance", h.GetWalletBalance)
		authed.GET("/wallet/transactions", h.ListWalletTransactions)
		authed.POST("/wallet/withdrawals", h.RequestWithdrawal)
	}

	// ADMIN routes
	admin := v1.Group("/admin")
	admin.Use(auth.RequireAccessToken(authManager), rbac.RequireAdmin())
	{
		admin.POST("/payments/verify", h.AdminVerifyPayment)
		admin.GET("/withdrawals", h.AdminListWithdrawals)
		admin.POST("/withdrawals/:request_id", h.AdminProcessWithdrawal)
		admin.DELETE("/claims/:claim_id", h.AdminDeleteClaim)
	}
}
