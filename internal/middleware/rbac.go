package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/civic-connect/civic-api/internal/models"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
	"github.com/civic-connect/civic-api/pkg/response"
)

// RequireRoles admits only the listed roles. Matching is exact: ADMIN passes
// only when it is listed.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Abort(c, appErrors.Clone(appErrors.ErrUnauthenticated, ""))
			return
		}
		if _, ok := allowed[user.Role]; !ok {
			response.Abort(c, appErrors.Clone(appErrors.ErrAccessDenied, "insufficient role"))
			return
		}
		c.Next()
	}
}

// RequireApproved blocks accounts still behind the approval gate.
func RequireApproved() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Abort(c, appErrors.Clone(appErrors.ErrUnauthenticated, ""))
			return
		}
		if !user.CanWrite() {
			response.Abort(c, appErrors.Clone(appErrors.ErrNotApproved, "account is pending approval or was rejected"))
			return
		}
		c.Next()
	}
}
