package middleware

import (
	"net/http"
	"strings"

	"zentari/internal/logger"
	"zentari/internal/service"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the authenticated account id.
const UserIDKey = "user_id"

// JWT requires a valid bearer token. Browsers cannot set headers on a
// websocket handshake, so a token query parameter is accepted as well.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token", "code": "unauthorized"})
			return
		}

		userID, err := service.ParseJWT(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthorized"})
			return
		}

		c.Set(UserIDKey, userID)
		ctx := c.Request.Context()
		c.Request = c.Request.WithContext(logger.NewContext(ctx, logger.WithContext(ctx).With("user_id", userID)))
		c.Next()
	}
}
