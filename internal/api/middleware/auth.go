package middleware

import (
	"ctchen222/accounts/internal/api/models"
	"ctchen222/accounts/internal/api/response"
	"ctchen222/accounts/internal/api/service"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "accounts.current_user"

// RequireAuth resolves the bearer token of the request to a user and stores
// it in the gin context. Requests without a valid token are rejected with 401.
func RequireAuth(sessions service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if header == "" {
			response.AbortWithError(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.AbortWithError(c, http.StatusUnauthorized, "Invalid token header.")
			return
		}

		user, err := sessions.Resolve(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				response.AbortWithError(c, http.StatusUnauthorized, "Invalid token.")
				return
			}
			slog.ErrorContext(c.Request.Context(), "Failed to resolve session", "error", err)
			response.AbortWithError(c, http.StatusInternalServerError, "internal server error")
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireAuth, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
