package channels

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the channel endpoints on the given group. Both
// require an authenticated viewer, so the caller supplies the auth middleware.
func RegisterRoutes(g *echo.Group, h *Handler, authMW echo.MiddlewareFunc) {
	g.GET("/c/:username", h.ChannelProfile, authMW)
	g.GET("/history", h.WatchHistory, authMW)
}
