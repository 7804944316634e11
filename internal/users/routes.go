package users

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/viewtube/viewtube/internal/middleware"
)

// RegisterRoutes sets up all account and session routes on the given group.
// authMW is the access-token middleware built from the shared TokenIssuer.
//
// Credential-bearing POST endpoints are rate-limited to slow brute-force and
// credential stuffing: 5 registrations and 10 logins per IP per minute.
func RegisterRoutes(g *echo.Group, h *Handler, authMW echo.MiddlewareFunc) {
	// Public routes -- no session required.
	g.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))
	g.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	g.POST("/refresh-token", h.Refresh, middleware.RateLimit(30, time.Minute))

	// Authenticated routes.
	g.POST("/logout", h.Logout, authMW)
	g.POST("/change-password", h.ChangePassword, authMW)
	g.GET("/current-user", h.CurrentUser, authMW)
	g.PATCH("/update-account", h.UpdateAccount, authMW)
	g.PATCH("/avatar", h.UpdateAvatar, authMW)
	g.PATCH("/cover-image", h.UpdateCover, authMW)
}
