package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kavindurs8/studifynew-sub001/internal/auth"
	"github.com/kavindurs8/studifynew-sub001/pkg/response"
)

// Keys under which JWT stores the caller's claims on the gin context.
const (
	ContextUserID    = "user_id"    // uuid.UUID
	ContextUserRole  = "user_role"  // string, one of models.Role
	ContextUserEmail = "user_email" // string
)

// JWT authenticates the caller from an "Authorization: Bearer <token>" header. Requests
// without a valid, unexpired studify token stop here with 401.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "bearer token required")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(strings.TrimSpace(token))
		if err != nil {
			response.Unauthorized(c, "session expired or token invalid, please sign in again")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}
