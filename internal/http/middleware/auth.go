// README: Bearer-token auth middleware resolving the caller's user id.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"yumzy/internal/infra"
	"yumzy/internal/types"
)

const userIDKey = "auth_user_id"

func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		uid, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

// UserID returns the authenticated caller. Empty only on routes that skip
// the auth middleware.
func UserID(c *gin.Context) types.ID {
	return types.ID(c.GetString(userIDKey))
}
