package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/costpilot-dev/costpilot/internal/access"
	"github.com/costpilot-dev/costpilot/internal/types"
)

// RequirePage gates a route group on page-level access for the
// authenticated role. Denials carry a redirect target so the client can
// land somewhere safe instead of a dead end.
func RequirePage(page access.Page) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := currentUser(ctx)

		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		if !access.CanAccess(access.Role(user.Role), page) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    "You do not have access to this page",
				"redirect": "/dashboard",
			})
			return
		}

		ctx.Next()
	}
}

// RequirePrivilege gates a single operation on a named privilege.
// Admins pass unconditionally.
func RequirePrivilege(privilege string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := currentUser(ctx)

		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		if !access.HasPrivilege(access.Role(user.Role), user.Privileges, privilege) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    "You do not have permission to perform this action",
				"redirect": "/dashboard",
			})
			return
		}

		ctx.Next()
	}
}

func currentUser(ctx *gin.Context) (AuthenticatedUser, bool) {
	value, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return AuthenticatedUser{}, false
	}

	user, ok := value.(AuthenticatedUser)

	return user, ok
}
