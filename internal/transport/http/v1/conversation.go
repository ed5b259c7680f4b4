package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/navigator/internal/session"
)

// GetConversation returns a live session.
// GET /conversation/:session_id
func (h *Handler) GetConversation(c echo.Context) error {
	id := c.Param("session_id")

	s, err := h.service.Conversation(c.Request().Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}
	if err != nil {
		return h.internalError(c, err, "failed to load session")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"session_id":           s.SessionID,
		"conversation_history": s.History,
		"context":              s.Context,
		"created_at":           s.CreatedAt,
		"last_activity":        s.LastActivity,
	})
}

// DeleteConversation removes a session.
// DELETE /conversation/:session_id
func (h *Handler) DeleteConversation(c echo.Context) error {
	id := c.Param("session_id")

	err := h.service.DeleteConversation(c.Request().Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}
	if err != nil {
		return h.internalError(c, err, "failed to delete session")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Session deleted",
	})
}
