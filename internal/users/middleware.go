package users

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/viewtube/viewtube/internal/apperror"
)

// Context keys for storing the caller's identity in the Echo context. Other
// packages use the exported getters below rather than these keys directly.
const (
	contextKeyUserID   = "auth_user_id"
	contextKeyUsername = "auth_username"
)

// RequireAuth returns middleware that verifies the access token (from the
// accessToken cookie or an Authorization: Bearer header) and injects the
// caller's identity into the request context. Requests without a valid
// access token get 401.
func RequireAuth(tokens *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := accessTokenFromRequest(c)
			if raw == "" {
				return apperror.NewUnauthorized("authentication required")
			}

			claims, err := tokens.VerifyAccess(raw)
			if err != nil {
				return apperror.NewUnauthorized("invalid or expired access token")
			}

			c.Set(contextKeyUserID, claims.Subject)
			c.Set(contextKeyUsername, claims.Username)

			return next(c)
		}
	}
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}

// GetUsername retrieves the authenticated user's username from the Echo
// context. Returns empty string if the request is not authenticated.
func GetUsername(c echo.Context) string {
	name, ok := c.Get(contextKeyUsername).(string)
	if !ok {
		return ""
	}
	return name
}

// accessTokenFromRequest reads the access token from the accessToken cookie,
// falling back to the Authorization: Bearer header for non-browser clients.
func accessTokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(accessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	return ""
}
