package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"fixflow.io/fixflow/internal/domain"
)

// RequireRole returns middleware that rejects requests whose authenticated
// role is not in the allowed set. ADMIN passes every check; fine-grained
// decisions like "assignee or admin" stay in the use case layer where the
// request row is available.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": "FORBIDDEN", "message": "no role in context",
			})
			return
		}

		if actor.Role == domain.RoleAdmin {
			c.Next()
			return
		}

		if slices.Contains(roles, actor.Role) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"code": "FORBIDDEN", "message": "insufficient role",
		})
	}
}
