package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/navigator/internal/domain"
	"github.com/xiaot623/gogo/navigator/internal/intent"
	"github.com/xiaot623/gogo/navigator/internal/service"
)

// planRequest takes dates as YYYY-MM-DD.
type planRequest struct {
	Origin       string         `json:"origin"`
	Destination  string         `json:"destination"`
	StartDate    string         `json:"start_date"`
	EndDate      string         `json:"end_date"`
	NumTravelers int            `json:"num_travelers"`
	Preferences  map[string]any `json:"preferences"`
	Budget       *float64       `json:"budget"`
}

func (r planRequest) travelRequest() (domain.TravelRequest, error) {
	start, err := time.Parse(intent.DateLayout, strings.TrimSpace(r.StartDate))
	if err != nil {
		return domain.TravelRequest{}, errors.New("start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(intent.DateLayout, strings.TrimSpace(r.EndDate))
	if err != nil {
		return domain.TravelRequest{}, errors.New("end_date must be YYYY-MM-DD")
	}
	travelers := r.NumTravelers
	if travelers == 0 {
		travelers = 1
	}
	return domain.TravelRequest{
		Origin:       strings.TrimSpace(r.Origin),
		Destination:  strings.TrimSpace(r.Destination),
		StartDate:    start,
		EndDate:      end,
		NumTravelers: travelers,
		Preferences:  r.Preferences,
		Budget:       r.Budget,
	}, nil
}

// PlanTrip builds a complete itinerary.
// POST /api/plan
func (h *Handler) PlanTrip(c echo.Context) error {
	var body planRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	req, err := body.travelRequest()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	it, err := h.service.PlanTrip(c.Request().Context(), req)
	if errors.Is(err, domain.ErrInvalidTravelRequest) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return h.internalError(c, err, "failed to plan trip")
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "success", "itinerary": it})
}

// Suggestions returns two destination suggestions.
// POST /api/suggestions
func (h *Handler) Suggestions(c echo.Context) error {
	var req service.SuggestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	suggestions, err := h.service.Suggest(c.Request().Context(), req)
	if errors.Is(err, service.ErrEmptyQuery) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "prompt is required"})
	}
	if err != nil {
		return h.internalError(c, err, "failed to generate suggestions")
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "success", "suggestions": suggestions})
}
