package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/navigator/internal/adapter/provider"
	"github.com/xiaot623/gogo/navigator/internal/domain"
	"github.com/xiaot623/gogo/navigator/internal/service"
	"github.com/xiaot623/gogo/navigator/internal/session"
	"github.com/xiaot623/gogo/navigator/internal/tools"
)

var refNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// newTestHandler wires a service with no model, so every answer comes from
// the deterministic fallbacks.
func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	now := func() time.Time { return refNow }
	sessions := session.NewManager(session.NewMemoryStore(), session.Options{Now: now}, zerolog.Nop())
	travel := tools.NewTravel(provider.UnavailableSet(), nil, tools.TravelOptions{Now: now}, zerolog.Nop())
	registry := tools.NewRegistry()
	require.NoError(t, travel.Register(registry))
	svc := service.New(sessions, nil, nil, travel, registry, service.Options{Now: now}, zerolog.Nop())
	return NewHandler(svc, zerolog.Nop())
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func chat(t *testing.T, h *Handler, target, body string) (*httptest.ResponseRecorder, chatResponse) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, target, body), rec)
	require.NoError(t, h.Chat(c))

	var resp chatResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","version":"0.1.0"}`, rec.Body.String())
}

func TestChat(t *testing.T) {
	h := newTestHandler(t)

	rec, resp := chat(t, h, "/api/chat", `{"query": "Suggest a weekend getaway", "context": {"travel_style": "relaxed"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, domain.IntentSuggestions, resp.Result.Intent)
	assert.Equal(t, domain.LoopStatusFallback, resp.Result.LoopStatus)
	assert.Contains(t, resp.Result.Output, "* ")
	assert.Empty(t, resp.Result.OutputHTML)
	assert.NotEmpty(t, resp.SessionID)
	assert.Len(t, resp.History, 2)

	rec, again := chat(t, h, "/api/chat", `{"query": "More ideas please", "session_id": "`+resp.SessionID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resp.SessionID, again.SessionID)
	assert.Len(t, again.History, 4)
}

func TestChatRendersHTML(t *testing.T) {
	h := newTestHandler(t)
	rec, resp := chat(t, h, "/api/chat?format=html", `{"query": "Suggest a destination"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, resp.Result.OutputHTML, "<li>")
	assert.Contains(t, resp.Result.OutputHTML, "<ul>")
}

func TestChatValidation(t *testing.T) {
	h := newTestHandler(t)

	rec, _ := chat(t, h, "/api/chat", `{"query": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "query is required")

	rec, _ = chat(t, h, "/api/chat", `{"query": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestConversationLifecycle(t *testing.T) {
	h := newTestHandler(t)
	_, resp := chat(t, h, "/api/chat", `{"query": "Suggest a destination", "context": {"departure_city": "Mumbai"}}`)

	e := echo.New()
	get := func(id string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/conversation/"+id, nil), rec)
		c.SetPath("/conversation/:session_id")
		c.SetParamNames("session_id")
		c.SetParamValues(id)
		require.NoError(t, h.GetConversation(c))
		return rec
	}
	del := func(id string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/conversation/"+id, nil), rec)
		c.SetPath("/conversation/:session_id")
		c.SetParamNames("session_id")
		c.SetParamValues(id)
		require.NoError(t, h.DeleteConversation(c))
		return rec
	}

	rec := get(resp.SessionID)
	require.Equal(t, http.StatusOK, rec.Code)
	var conv struct {
		SessionID string           `json:"session_id"`
		History   []domain.Message `json:"conversation_history"`
		Context   map[string]any   `json:"context"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, resp.SessionID, conv.SessionID)
	assert.Len(t, conv.History, 2)
	assert.Equal(t, "Mumbai", conv.Context["departure_city"])

	rec = del(resp.SessionID)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","message":"Session deleted"}`, rec.Body.String())

	rec = get(resp.SessionID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Session not found"}`, rec.Body.String())

	rec = del(resp.SessionID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlanTrip(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/plan",
		`{"origin": "Mumbai", "destination": "Paris", "start_date": "2025-07-01", "end_date": "2025-07-04", "num_travelers": 2}`), rec)
	require.NoError(t, h.PlanTrip(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Itinerary domain.Itinerary `json:"itinerary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Itinerary.Flights)
	assert.NotEmpty(t, resp.Itinerary.Hotels)
	assert.Len(t, resp.Itinerary.DailyPlans, 3)
	assert.Greater(t, resp.Itinerary.TotalCost, 0.0)

	for _, body := range []string{
		`{"destination": "Paris", "start_date": "July 1", "end_date": "2025-07-04"}`,
		`{"destination": "Paris", "start_date": "2025-07-04", "end_date": "2025-07-01"}`,
		`{"start_date": "2025-07-01", "end_date": "2025-07-04"}`,
	} {
		rec := httptest.NewRecorder()
		c := e.NewContext(jsonRequest(http.MethodPost, "/api/plan", body), rec)
		require.NoError(t, h.PlanTrip(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestSuggestions(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/suggestions",
		`{"prompt": "a relaxing beach", "destination": "Goa", "preferences": {"departure_city": "Mumbai"}}`), rec)
	require.NoError(t, h.Suggestions(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Suggestions []domain.TravelSuggestion `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Suggestions, 2)
	assert.Equal(t, "Goa", resp.Suggestions[0].Destination)
	assert.NotEmpty(t, resp.Suggestions[0].Flights)

	rec = httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPost, "/api/suggestions", `{"prompt": ""}`), rec)
	require.NoError(t, h.Suggestions(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTools(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/tools", nil), rec)
	require.NoError(t, h.ListTools(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tools []toolInfo `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	names := make([]string, 0, len(resp.Tools))
	for _, tool := range resp.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	assert.Contains(t, names, "flight_search")
	assert.Contains(t, names, "weather_info")
	assert.Len(t, names, 7)
}

func TestRoutesRegistered(t *testing.T) {
	e := echo.New()
	newTestHandler(t).RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversation/sess_missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/api/chat", `{"query": "Suggest a destination"}`)
	e.ServeHTTP(rec, req.WithContext(context.Background()))
	assert.Equal(t, http.StatusOK, rec.Code)
}
