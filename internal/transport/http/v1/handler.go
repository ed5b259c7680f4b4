// Package v1 provides the HTTP handlers of the travel assistant API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/navigator/internal/service"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	logger  zerolog.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/chat", h.Chat)
	e.POST("/api/plan", h.PlanTrip)
	e.POST("/api/suggestions", h.Suggestions)
	e.GET("/api/tools", h.ListTools)

	e.GET("/conversation/:session_id", h.GetConversation)
	e.DELETE("/conversation/:session_id", h.DeleteConversation)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

// internalError logs err and answers 500 without leaking internals.
func (h *Handler) internalError(c echo.Context, err error, msg string) error {
	h.logger.Error().Err(err).Str("path", c.Path()).Msg(msg)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": msg})
}
