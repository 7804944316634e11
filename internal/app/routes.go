package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/viewtube/viewtube/internal/channels"
	"github.com/viewtube/viewtube/internal/users"
)

// RegisterRoutes sets up all application routes. Each feature package wires
// its own repository/service/handler stack here and registers its routes on
// the shared /api/v1/users group.
//
// This is the single place where all routes are aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for Docker health monitoring.
	e.GET("/healthz", func(c echo.Context) error {
		if err := a.DB.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Shared token issuer: the auth middleware and the login/refresh flows
	// must agree on secrets and TTLs.
	tokens := users.NewTokenIssuer(a.Config.Token)
	authMW := users.RequireAuth(tokens)

	api := e.Group("/api/v1/users")

	// --- Accounts and sessions ---
	userRepo := users.NewUserRepository(a.DB)
	userService := users.NewUserService(userRepo, a.Media, tokens, a.Config.Media.MaxUploadSize)
	userHandler := users.NewHandler(userService, a.Config.Token.AccessTTL, a.Config.Token.RefreshTTL)
	users.RegisterRoutes(api, userHandler, authMW)

	// --- Channel profiles and watch history ---
	channelRepo := channels.NewChannelRepository(a.DB)
	channelService := channels.NewChannelService(channelRepo, a.Redis)
	channelHandler := channels.NewHandler(channelService)
	channels.RegisterRoutes(api, channelHandler, authMW)
}
