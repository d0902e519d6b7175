package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware requires a valid admin bearer token. An empty secret
// locks the routes entirely.
func AdminAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.LogDebug("AdminAuthMiddleware called")

		if jwtSecret == "" {
			utils.LogError("Admin request rejected: JWT secret is not configured")
			utils.Unauthorized(c, utils.ErrUnauthorized)
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.LogError("Missing Authorization header")
			utils.Unauthorized(c, utils.ErrUnauthorized)
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		email, err := utils.ValidateAdminToken(tokenString, jwtSecret)
		if err != nil {
			utils.LogError("Invalid admin token: %v", err)
			utils.Unauthorized(c, utils.ErrInvalidToken)
			c.Abort()
			return
		}

		c.Set("admin_email", email)
		c.Next()
	}
}

// CronAuthMiddleware requires the scheduler shared secret header. An empty
// secret locks the routes entirely.
func CronAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(utils.CronSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			utils.LogError("Rejected cron request from %s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": utils.ErrUnauthorized})
			return
		}
		c.Next()
	}
}
