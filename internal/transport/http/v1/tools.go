package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type toolInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required,omitempty"`
	TextParam   string   `json:"text_param,omitempty"`
}

// ListTools lists the tools available to the assistant.
// GET /api/tools
func (h *Handler) ListTools(c echo.Context) error {
	registered := h.service.Tools()
	out := make([]toolInfo, 0, len(registered))
	for _, t := range registered {
		out = append(out, toolInfo{
			Name:        t.Name,
			Description: t.Description,
			Required:    t.Required(),
			TextParam:   t.TextParam,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"tools": out})
}
