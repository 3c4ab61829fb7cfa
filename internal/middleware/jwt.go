package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aura-events/registration-service/internal/auth"
	"github.com/aura-events/registration-service/pkg/response"
)

const (
	// ContextUserID is the key for the caller's user ID (int64) in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for the caller's role (models.Role) in gin context.
	ContextUserRole = "user_role"
)

// JWT returns a middleware that validates JWT and sets caller claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}
