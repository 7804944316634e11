package channels

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/viewtube/viewtube/internal/apperror"
	"github.com/viewtube/viewtube/internal/users"
	"github.com/viewtube/viewtube/internal/web"
)

// Handler exposes the aggregated channel and history endpoints.
type Handler struct {
	service ChannelService
}

// NewHandler creates a new channel handler.
func NewHandler(service ChannelService) *Handler {
	return &Handler{service: service}
}

// ChannelProfile handles GET /c/:username.
func (h *Handler) ChannelProfile(c echo.Context) error {
	username := c.Param("username")
	if username == "" {
		return apperror.NewBadRequest("username is missing")
	}

	profile, err := h.service.GetChannelProfile(c.Request().Context(), username, users.GetUserID(c))
	if err != nil {
		return err
	}

	return web.JSON(c, http.StatusOK, "User channel fetched successfully", profile)
}

// WatchHistory handles GET /history.
func (h *Handler) WatchHistory(c echo.Context) error {
	history, err := h.service.GetWatchHistory(c.Request().Context(), users.GetUserID(c))
	if err != nil {
		return err
	}

	// The client expects an array even when the user has watched nothing.
	if history == nil {
		history = []EnrichedVideo{}
	}

	return web.JSON(c, http.StatusOK, "Watch history fetched successfully", history)
}
