package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/navigator/internal/agent"
	"github.com/xiaot623/gogo/navigator/internal/domain"
	"github.com/xiaot623/gogo/navigator/internal/intent"
)

// ErrEmptyQuery is returned for a request without a query.
var ErrEmptyQuery = errors.New("query is required")

// SystemPrompt frames the assistant for the reasoning loop.
const SystemPrompt = `You are a helpful travel assistant. Use the tools to look up flights, hotels, weather, currency rates and itineraries.

When suggesting destinations, give exactly 2 suggestions as bullets in the form:
* [Destination Name] for [short description]

When creating an itinerary, use one section per day:
Day N:
- Morning: ...
- Afternoon: ...
- Evening: ...

Never invent flight prices; use the flight tools. If the user has not said where they are flying from, where to, or when, ask for it.`

// Request is one conversational turn.
type Request struct {
	Query     string           `json:"query"`
	Context   map[string]any   `json:"context,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	History   []domain.Message `json:"conversation_history,omitempty"`
}

// Response is the answer to a Request.
type Response struct {
	Output    string            `json:"output"`
	Intent    domain.Intent     `json:"intent"`
	Status    domain.LoopStatus `json:"status"`
	SessionID string            `json:"session_id"`
	History   []domain.Message  `json:"conversation_history"`
}

// Handle processes one user turn. Turns for the same session are handled
// strictly one at a time.
func (s *Service) Handle(ctx context.Context, req Request) (*Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if _, err := s.sessions.SweepExpired(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("session sweep failed")
	}

	if req.SessionID != "" {
		unlock := s.sessions.Lock(req.SessionID)
		defer unlock()
	}
	sess, created, err := s.sessions.GetOrCreate(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if created {
		s.sessions.Seed(sess, req.History)
	}
	prior := append([]domain.Message(nil), sess.History...)

	s.sessions.AddMessage(sess, domain.RoleUser, query)
	s.sessions.MergeContext(sess, req.Context)
	prefs := domain.PreferencesFromContext(sess.Context)

	c := intent.ClassifyAt(query, prefs.DepartureCity, s.opts.Now())
	logger := s.logger.With().Str("session_id", sess.SessionID).Str("intent", string(c.Intent)).Logger()
	logger.Debug().Strs("missing", c.Missing).Msg("classified request")

	output, status := s.answer(ctx, sess.SessionID, query, prior, sess.Context, c)

	s.sessions.AddMessage(sess, domain.RoleAssistant, output)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	logger.Info().Str("status", string(status)).Msg("turn handled")

	return &Response{
		Output:    output,
		Intent:    c.Intent,
		Status:    status,
		SessionID: sess.SessionID,
		History:   sess.History,
	}, nil
}

func (s *Service) answer(ctx context.Context, sessionID, query string, prior []domain.Message, sessCtx map[string]any, c intent.Classification) (string, domain.LoopStatus) {
	if c.Intent == domain.IntentFlights && len(c.Missing) > 0 {
		return intent.Clarification(c.Intent, c.Missing), domain.LoopStatusClarify
	}

	if s.loop != nil {
		out, err := s.loop.Run(ctx, agent.Input{
			Query:     query,
			History:   prior,
			Context:   loopContext(sessCtx, c),
			SessionID: sessionID,
		})
		switch {
		case errors.Is(err, agent.ErrNoEngine):
			s.logger.Warn().Err(err).Msg("reasoning engine unavailable, using fallback")
		case err != nil:
			s.logger.Error().Err(err).Msg("reasoning loop failed, using fallback")
		case out.Status == domain.LoopStatusParseFailure && len(out.Steps) == 0:
			s.logger.Warn().Msg("model never followed the protocol, using fallback")
		default:
			return out.Output, out.Status
		}
	}
	return s.fallback(ctx, c), domain.LoopStatusFallback
}

// loopContext adds what the classifier found to the session context shown
// to the model.
func loopContext(sessCtx map[string]any, c intent.Classification) map[string]any {
	out := make(map[string]any, len(sessCtx)+4)
	for k, v := range sessCtx {
		out[k] = v
	}
	out["detected_intent"] = string(c.Intent)
	if c.Slots.Origin != "" {
		out["detected_origin"] = c.Slots.Origin
	}
	if c.Slots.Destination != "" {
		out["detected_destination"] = c.Slots.Destination
	}
	if c.Slots.DepartureDate != "" {
		out["detected_departure_date"] = c.Slots.DepartureDate
	}
	return out
}
