package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/costpilot-dev/costpilot/internal/auth"
	"github.com/costpilot-dev/costpilot/internal/bootstrap"
	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/store"
	"github.com/costpilot-dev/costpilot/internal/types"
)

type AuthenticatedUser struct {
	ID         uint     `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Role       string   `json:"role"`
	Status     string   `json:"status"`
	TeamID     *uint    `json:"team_id"`
	Privileges []string `json:"privileges"`
}

func AuthMiddleware(profiles store.ProfileStore, bootstrapper *bootstrap.Bootstrapper) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := extractToken(ctx)

		if tokenString == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}

		token, err := auth.VerifyJWT(tokenString)

		if err != nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)

		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		userIDFloat, ok := claims["user_id"].(float64)

		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token claims"})
			return
		}

		userID := uint(userIDFloat)

		user, err := profiles.GetUser(ctx.Request.Context(), userID)

		if err == store.ErrNotFound {
			// Valid token but no profile record yet. Reconcile instead of
			// rejecting so a fresh identity can use the app immediately.
			email, _ := claims["email"].(string)
			role, _ := claims["role"].(string)

			if email == "" {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
				return
			}

			user = bootstrapper.EnsureProfile(ctx.Request.Context(), bootstrap.Principal{
				ID:    userID,
				Email: email,
				Role:  role,
			})
		} else if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		} else {
			user = bootstrap.Sanitize(user)
		}

		if user.Status == types.StatusInactive {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is inactive"})
			return
		}

		ctx.Set(types.ContextUserKey, AuthenticatedUser{
			ID:         user.ID,
			Name:       user.Name,
			Email:      user.Email,
			Role:       user.Role,
			Status:     user.Status,
			TeamID:     user.TeamID,
			Privileges: decodePrivileges(user),
		})
		ctx.Next()
	}
}

func extractToken(ctx *gin.Context) string {
	authHeader := ctx.GetHeader("Authorization")

	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)

		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}

		return ""
	}

	cookie, err := ctx.Cookie("token")

	if err != nil {
		return ""
	}

	return cookie
}

func decodePrivileges(user models.User) []string {
	if len(user.Privileges) == 0 {
		return nil
	}

	var privileges []string

	if err := json.Unmarshal(user.Privileges, &privileges); err != nil {
		return nil
	}

	return privileges
}
