package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kavindurs8/studifynew-sub001/internal/models"
	"github.com/kavindurs8/studifynew-sub001/pkg/response"
)

// RequireRole admits only callers whose token carries one of roles; others get 403.
// It reads the role JWT stored, so it must be mounted after JWT.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role := models.Role(c.GetString(ContextUserRole))
		switch {
		case role == "":
			response.Unauthorized(c, "request is not authenticated")
			c.Abort()
		case !allowed[role]:
			response.Forbidden(c, "this action is not available to "+string(role)+" accounts")
			c.Abort()
		default:
			c.Next()
		}
	}
}
