package middleware

import (
	"net/http"
	"strings"

	"github.com/tdiprima/langchain-flask-api/internal/domain"

	"github.com/gin-gonic/gin"
)

// JwtAuth rejects requests without a valid Bearer token and exposes the
// token's username and session id to downstream handlers.
func JwtAuth(tokens domain.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			c.Abort()
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "malformed Authorization header"})
			c.Abort()
			return
		}

		username, sessionID, err := tokens.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrInvalidToken.Error()})
			c.Abort()
			return
		}
		c.Set("username", username)
		c.Set("session_id", sessionID)
		c.Next()
	}
}
