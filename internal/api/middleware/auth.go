package middleware

import (
	"strings"

	"guardialog/internal/models"
	"guardialog/internal/services"

	"github.com/gin-gonic/gin"
)

func AuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		token := parts[1]

		session, err := authService.GetSession(token)
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user", &session.User)
		c.Set("user_id", session.UserID)
		c.Set("session", session)

		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			c.JSON(401, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		if !user.(*models.User).EsAdmin {
			c.JSON(403, gin.H{"error": "Forbidden: admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// PasswordChangeGate blocks an account flagged for a forced password change
// from everything except the change itself (the auth routes sit outside
// this gate).
func PasswordChangeGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			c.JSON(401, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		if user.(*models.User).DebeCambiarPassword {
			c.JSON(403, gin.H{
				"error": "Password change required",
				"code":  "password_change_required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
