package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"coolwatch-server-go/internal/domain/auth"
	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/logging"
	"coolwatch-server-go/internal/platform/storage"
)

const currentUserKey = "currentUser"

// AuthMiddleware verifies the bearer token and resolves its subject against
// the live user table. Deactivated accounts lose access immediately, not at
// token expiry.
func AuthMiddleware(tokens *auth.TokenManager, users *storage.UserRepository, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			RespondError(c, http.StatusUnauthorized, "authentication required", nil)
			c.Abort()
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			RespondError(c, http.StatusUnauthorized, "invalid or expired token", nil)
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if logger != nil {
				logger.ErrorTag("Auth", "user lookup failed for token subject %d: %v", claims.UserID, err)
			}
			RespondError(c, http.StatusInternalServerError, "internal error", nil)
			c.Abort()
			return
		}
		if user == nil || !user.IsActive {
			RespondError(c, http.StatusUnauthorized, "account is not active", nil)
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// RequireRoles restricts a route group to the given roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			RespondError(c, http.StatusUnauthorized, "authentication required", nil)
			c.Abort()
			return
		}
		if _, ok := allowed[user.Role]; !ok {
			RespondError(c, http.StatusForbidden, "insufficient permissions", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}
