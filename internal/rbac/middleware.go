package rbac

import (
	"net/http"

	"wishdrop/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireUser enforces that an authenticated user identity is present.
// It does not validate resource ownership; services check that per operation.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := auth.UserID(c.Request.Context())
		if err != nil || uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user identity required"})
			return
		}
		c.Next()
	}
}

// RequireAdmin gates privileged mutations (manual payment verification,
// withdrawal processing, claim deletion) behind the admin flag.
// Rules:
// - missing identity is 401
// - missing or false admin flag is 403
// Any error resolving the flag denies access: fail closed.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := auth.UserID(c.Request.Context())
		if err != nil || uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user identity required"})
			return
		}
		if !auth.IsAdmin(c.Request.Context()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
