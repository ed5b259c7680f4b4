package v1

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"

	"github.com/xiaot623/gogo/navigator/internal/domain"
	"github.com/xiaot623/gogo/navigator/internal/service"
)

type chatResult struct {
	Output     string            `json:"output"`
	OutputHTML string            `json:"output_html,omitempty"`
	Intent     domain.Intent     `json:"intent"`
	LoopStatus domain.LoopStatus `json:"loop_status"`
}

type chatResponse struct {
	Status    string           `json:"status"`
	Result    chatResult       `json:"result"`
	SessionID string           `json:"session_id"`
	History   []domain.Message `json:"conversation_history"`
}

// Chat handles one conversational turn.
// POST /api/chat[?format=html]
func (h *Handler) Chat(c echo.Context) error {
	var req service.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := h.service.Handle(c.Request().Context(), req)
	if errors.Is(err, service.ErrEmptyQuery) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return h.internalError(c, err, "failed to process chat request")
	}

	result := chatResult{Output: resp.Output, Intent: resp.Intent, LoopStatus: resp.Status}
	if c.QueryParam("format") == "html" {
		html, err := renderMarkdown(resp.Output)
		if err != nil {
			h.logger.Warn().Err(err).Msg("markdown rendering failed")
		} else {
			result.OutputHTML = html
		}
	}

	return c.JSON(http.StatusOK, chatResponse{
		Status:    "success",
		Result:    result,
		SessionID: resp.SessionID,
		History:   resp.History,
	})
}

func renderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
