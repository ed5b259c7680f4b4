package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/navigator/internal/adapter/llm"
	"github.com/xiaot623/gogo/navigator/internal/adapter/provider"
	"github.com/xiaot623/gogo/navigator/internal/agent"
	"github.com/xiaot623/gogo/navigator/internal/domain"
	"github.com/xiaot623/gogo/navigator/internal/session"
	"github.com/xiaot623/gogo/navigator/internal/tools"
	"github.com/xiaot623/gogo/navigator/policy"
)

var refNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	store    *session.MemoryStore
	sessions *session.Manager
	now      time.Time
}

func (f *fixture) clock() time.Time { return f.now }

// newFixture builds a service on fallback providers. With a model the
// reasoning loop runs; without one every answer is deterministic.
func newFixture(t *testing.T, model *llm.Model) *fixture {
	t.Helper()
	f := &fixture{store: session.NewMemoryStore(), now: refNow}
	f.sessions = session.NewManager(f.store, session.Options{HistoryDepth: 6, MaxAge: time.Hour, Now: f.clock}, zerolog.Nop())

	var completer tools.Completer
	if model != nil {
		completer = model
	}
	travel := tools.NewTravel(provider.UnavailableSet(), completer, tools.TravelOptions{Now: f.clock}, zerolog.Nop())
	registry := tools.NewRegistry()
	require.NoError(t, travel.Register(registry))

	var (
		loop Reasoner
		comp Completer
	)
	if model != nil {
		engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
		require.NoError(t, err)
		loop = agent.New(model, registry, engine, agent.Config{SystemPrompt: SystemPrompt}, zerolog.Nop())
		comp = model
	}
	f.svc = New(f.sessions, loop, comp, travel, registry, Options{Now: f.clock}, zerolog.Nop())
	return f
}

func mockModel() *llm.Model {
	return llm.NewModel(llm.NewMockClient(), llm.Options{Model: "mock"}, zerolog.Nop())
}

// stubReasoner returns a fixed outcome.
type stubReasoner struct {
	out   agent.Outcome
	err   error
	calls int
	last  agent.Input
}

func (s *stubReasoner) Run(_ context.Context, in agent.Input) (agent.Outcome, error) {
	s.calls++
	s.last = in
	return s.out, s.err
}

func TestHandleRejectsEmptyQuery(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Handle(context.Background(), Request{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, f.store.Len())
}

func TestHandleFallbackSuggestions(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := f.svc.Handle(context.Background(), Request{Query: "Suggest a beach holiday"})
	require.NoError(t, err)

	assert.Equal(t, domain.IntentSuggestions, resp.Intent)
	assert.Equal(t, domain.LoopStatusFallback, resp.Status)
	assert.True(t, strings.HasPrefix(resp.SessionID, "sess_"))
	bullets := 0
	for _, line := range strings.Split(resp.Output, "\n") {
		if strings.HasPrefix(line, "* ") && strings.Contains(line, " for ") {
			bullets++
		}
	}
	assert.Equal(t, 2, bullets)

	require.Len(t, resp.History, 2)
	assert.Equal(t, domain.RoleUser, resp.History[0].Role)
	assert.Equal(t, resp.Output, resp.History[1].Content)
}

func TestHandleFallbackItinerary(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := f.svc.Handle(context.Background(), Request{Query: "Create itinerary for Paris for 3 days"})
	require.NoError(t, err)

	assert.Equal(t, domain.IntentItinerary, resp.Intent)
	assert.Contains(t, resp.Output, "Day 1:")
	assert.Contains(t, resp.Output, "Day 3:")
	assert.NotContains(t, resp.Output, "Day 4:")
	assert.Contains(t, resp.Output, "- Morning:")
}

func TestHandleFallbackItineraryCapsTripLength(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := f.svc.Handle(context.Background(), Request{Query: "detailed itinerary for Paris for 200000 days"})
	require.NoError(t, err)

	assert.Equal(t, domain.IntentItinerary, resp.Intent)
	assert.Equal(t, domain.LoopStatusFallback, resp.Status)
	assert.Contains(t, resp.Output, fmt.Sprintf("Here is a %d-day outline", domain.MaxTripDays))
	assert.Contains(t, resp.Output, fmt.Sprintf("Day %d:", domain.MaxTripDays))
	assert.NotContains(t, resp.Output, fmt.Sprintf("Day %d:", domain.MaxTripDays+1))
	assert.Less(t, len(resp.Output), 10000)
}

func TestHandleClarifiesMissingFlightSlots(t *testing.T) {
	f := newFixture(t, mockModel())
	resp, err := f.svc.Handle(context.Background(), Request{Query: "I need a flight to Delhi"})
	require.NoError(t, err)

	assert.Equal(t, domain.IntentFlights, resp.Intent)
	assert.Equal(t, domain.LoopStatusClarify, resp.Status)
	assert.Contains(t, resp.Output, "origin city")
	assert.Contains(t, resp.Output, "departure date")
	assert.Contains(t, resp.Output, "flights from Mumbai to Delhi on 2025-07-15")
}

func TestHandleUsesDepartureCityFromContext(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := f.svc.Handle(context.Background(), Request{
		Query:   "flights to Delhi on 2025-07-15",
		Context: map[string]any{"departure_city": "Mumbai"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.LoopStatusFallback, resp.Status)
	assert.Contains(t, resp.Output, "Found 3 flights from Mumbai to Delhi on 2025-07-15")
}

func TestHandleRunsReasoningLoop(t *testing.T) {
	f := newFixture(t, mockModel())
	resp, err := f.svc.Handle(context.Background(), Request{Query: "Find flights from Mumbai to Delhi on 2025-07-15"})
	require.NoError(t, err)

	assert.Equal(t, domain.LoopStatusFinal, resp.Status)
	assert.Contains(t, resp.Output, "flights from Mumbai to Delhi")
}

func TestHandlePassesContextAndPriorHistory(t *testing.T) {
	f := newFixture(t, nil)
	stub := &stubReasoner{out: agent.Outcome{Output: "Enjoy Rome!", Status: domain.LoopStatusFinal, Iterations: 1}}
	f.svc.loop = stub

	first, err := f.svc.Handle(context.Background(), Request{
		Query:   "Where should I go in Italy?",
		Context: map[string]any{"travel_style": "relaxed"},
	})
	require.NoError(t, err)
	assert.Empty(t, stub.last.History)

	second, err := f.svc.Handle(context.Background(), Request{Query: "And in spring?", SessionID: first.SessionID})
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, "Enjoy Rome!", second.Output)
	require.Len(t, stub.last.History, 2)
	assert.Equal(t, "Where should I go in Italy?", stub.last.History[0].Content)
	assert.Equal(t, "relaxed", stub.last.Context["travel_style"])
	assert.Equal(t, string(domain.IntentSuggestions), stub.last.Context["detected_intent"])
	assert.Len(t, second.History, 4)
}

func TestHandleFallsBackWhenEngineFails(t *testing.T) {
	cases := []struct {
		name string
		out  agent.Outcome
		err  error
	}{
		{"no engine", agent.Outcome{}, agent.ErrNoEngine},
		{"wrapped no engine", agent.Outcome{Status: domain.LoopStatusFallback}, errors.Join(agent.ErrNoEngine, errors.New("dial tcp"))},
		{"parse failure without steps", agent.Outcome{Status: domain.LoopStatusParseFailure, Output: "sorry"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.svc.loop = &stubReasoner{out: tc.out, err: tc.err}

			resp, err := f.svc.Handle(context.Background(), Request{Query: "Suggest somewhere warm"})
			require.NoError(t, err)
			assert.Equal(t, domain.LoopStatusFallback, resp.Status)
			assert.Contains(t, resp.Output, "* ")
		})
	}
}

func TestHandleSeedsNewSessionFromHistory(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := f.svc.Handle(context.Background(), Request{
		Query: "Suggest a destination",
		History: []domain.Message{
			{Role: domain.RoleUser, Content: "Hi"},
			{Role: domain.RoleAssistant, Content: "Hello! Where to?"},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.History, 4)
	assert.Equal(t, "Hi", resp.History[0].Content)

	again, err := f.svc.Handle(context.Background(), Request{
		Query:     "Another one",
		SessionID: resp.SessionID,
		History:   []domain.Message{{Role: domain.RoleUser, Content: "ignored"}},
	})
	require.NoError(t, err)
	assert.Len(t, again.History, 6)
	assert.NotEqual(t, "ignored", again.History[0].Content)
}

func TestHandleExpiredSessionGetsNewID(t *testing.T) {
	f := newFixture(t, nil)
	first, err := f.svc.Handle(context.Background(), Request{Query: "Suggest a destination"})
	require.NoError(t, err)

	f.now = f.now.Add(2 * time.Hour)
	second, err := f.svc.Handle(context.Background(), Request{Query: "Suggest a destination", SessionID: first.SessionID})
	require.NoError(t, err)

	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Len(t, second.History, 2)
	_, err = f.svc.Conversation(context.Background(), first.SessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestHandleSerializesTurnsPerSession(t *testing.T) {
	f := newFixture(t, nil)
	first, err := f.svc.Handle(context.Background(), Request{Query: "Suggest a destination"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Handle(context.Background(), Request{Query: "Suggest another", SessionID: first.SessionID})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := f.svc.Conversation(context.Background(), first.SessionID)
	require.NoError(t, err)
	assert.Len(t, got.History, 6, "no turn may overwrite another")
}

func TestDeleteConversation(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := f.svc.Handle(context.Background(), Request{Query: "Suggest a destination"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteConversation(context.Background(), resp.SessionID))
	assert.ErrorIs(t, f.svc.DeleteConversation(context.Background(), resp.SessionID), session.ErrNotFound)
}

func TestSweepSessions(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Handle(context.Background(), Request{Query: "Suggest a destination"})
	require.NoError(t, err)
	require.Equal(t, 1, f.store.Len())

	f.now = f.now.Add(2 * time.Hour)
	f.svc.sweepSessions(context.Background())
	assert.Zero(t, f.store.Len())
}

func TestPlanTrip(t *testing.T) {
	f := newFixture(t, nil)
	it, err := f.svc.PlanTrip(context.Background(), domain.TravelRequest{
		Origin:       "Mumbai",
		Destination:  "Paris",
		StartDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
		NumTravelers: 2,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, it.Flights)
	assert.NotEmpty(t, it.Hotels)
	require.NotNil(t, it.Weather)
	assert.True(t, it.Weather.IsSynthetic)
	assert.NotEmpty(t, it.Activities)
	assert.Len(t, it.DailyPlans, 3)
	assert.Greater(t, it.TotalCost, 0.0)
}

func TestPlanTripCapsTripLength(t *testing.T) {
	f := newFixture(t, nil)
	it, err := f.svc.PlanTrip(context.Background(), domain.TravelRequest{
		Destination:  "Paris",
		StartDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC),
		NumTravelers: 1,
	})
	require.NoError(t, err)
	assert.Len(t, it.DailyPlans, domain.MaxTripDays)
}

func TestPlanTripRejectsInvalidRequest(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.PlanTrip(context.Background(), domain.TravelRequest{
		Destination:  "Paris",
		StartDate:    time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		NumTravelers: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTravelRequest)
}

func TestSuggestFromModel(t *testing.T) {
	f := newFixture(t, mockModel())
	got, err := f.svc.Suggest(context.Background(), SuggestRequest{
		Prompt:      "somewhere sunny in spring",
		Preferences: domain.Preferences{DepartureCity: "London"},
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "Lisbon", got[0].Destination)
	assert.False(t, got[0].IsSynthetic)
	for _, s := range got {
		assert.NotEmpty(t, s.Flights, "flights attached for %s", s.Destination)
		assert.NotEmpty(t, s.LocalTips)
	}
}

func TestSuggestFallsBackWithoutModel(t *testing.T) {
	f := newFixture(t, nil)
	got, err := f.svc.Suggest(context.Background(), SuggestRequest{Prompt: "surprise me", Destination: "Bali"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "Bali", got[0].Destination)
	assert.True(t, got[0].IsSynthetic)
	assert.Empty(t, got[0].Flights)
}

func TestDecodeSuggestions(t *testing.T) {
	raw, err := decodeSuggestions("Sure! ```json\n[{\"destination\": \"Oslo\"}, 3]\n```")
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "Oslo", raw[0]["destination"])

	raw, err = decodeSuggestions(`{"suggestions": [{"destination": "Rome"}, {"destination": "Nice"}]}`)
	require.NoError(t, err)
	assert.Len(t, raw, 2)

	_, err = decodeSuggestions("no idea")
	assert.Error(t, err)
}
