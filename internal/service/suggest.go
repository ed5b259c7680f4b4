package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/gogo/navigator/internal/domain"
	"github.com/xiaot623/gogo/navigator/internal/normalize"
	"github.com/xiaot623/gogo/navigator/internal/tools"
)

const suggestSystem = "You are a travel expert. Answer only with JSON."

// SuggestRequest asks for destination ideas.
type SuggestRequest struct {
	Prompt      string             `json:"prompt"`
	Preferences domain.Preferences `json:"preferences"`
	Duration    int                `json:"duration,omitempty"`
	// Destination seeds the fallback when the model cannot be used.
	Destination string `json:"destination,omitempty"`
}

// Suggest returns two validated destination suggestions. Model output that
// cannot be decoded is replaced by fallback suggestions, and when a
// departure city is known each suggestion is enriched with flights.
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) ([]domain.TravelSuggestion, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyQuery
	}
	duration := domain.TripDays(req.Duration, s.opts.TripDuration)

	suggestions := s.modelSuggestions(ctx, req, duration)
	if len(suggestions) == 0 {
		suggestions = normalize.FallbackSuggestions(req.Destination, duration)
	}

	origin := req.Preferences.DepartureCity
	if origin == "" {
		origin = s.opts.DepartureCity
	}
	if origin == "" {
		return suggestions, nil
	}

	depart := s.opts.Now().AddDate(0, 0, 30)
	g, gctx := errgroup.WithContext(ctx)
	for i := range suggestions {
		if suggestions[i].IsSynthetic && strings.HasPrefix(suggestions[i].Destination, "Alternative destinations") {
			continue
		}
		g.Go(func() error {
			suggestions[i].Flights = s.travel.Flights(gctx, tools.FlightRequest{
				Origin:        origin,
				Destination:   suggestions[i].Destination,
				DepartureDate: depart,
				ReturnDate:    depart.AddDate(0, 0, suggestions[i].Duration),
				Passengers:    max(req.Preferences.GroupSize, s.opts.NumTravelers),
				TravelClass:   req.Preferences.BudgetRange.CabinClass(),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (s *Service) modelSuggestions(ctx context.Context, req SuggestRequest, duration int) []domain.TravelSuggestion {
	if s.model == nil {
		return nil
	}
	text, err := s.model.Complete(ctx, suggestSystem, suggestPrompt(req, duration))
	if err != nil {
		s.logger.Warn().Err(err).Msg("suggestion generation failed, using fallback")
		return nil
	}
	raw, err := decodeSuggestions(text)
	if err != nil {
		s.logger.Warn().Err(err).Msg("suggestion output was not usable, using fallback")
		return nil
	}
	return normalize.Suggestions(raw, duration)
}

func suggestPrompt(req SuggestRequest, duration int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest exactly 2 travel destinations for this request: %s\n", req.Prompt)
	fmt.Fprintf(&b, "Trip length: %d days.\n", duration)
	p := req.Preferences
	if p.BudgetRange != "" {
		fmt.Fprintf(&b, "Budget: %s.\n", p.BudgetRange)
	}
	if p.TravelStyle != "" {
		fmt.Fprintf(&b, "Travel style: %s.\n", p.TravelStyle)
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s.\n", strings.Join(p.Interests, ", "))
	}
	if len(p.DietaryRestrictions) > 0 {
		fmt.Fprintf(&b, "Dietary restrictions: %s.\n", strings.Join(p.DietaryRestrictions, ", "))
	}
	b.WriteString("Respond with a JSON array of objects with the keys destination, description, " +
		"best_time_to_visit, estimated_budget, weather_info, safety_info, duration, activities, " +
		"accommodation_suggestions, transportation and local_tips.")
	return b.String()
}

// decodeSuggestions finds the JSON array (or single object) in model text.
func decodeSuggestions(text string) ([]map[string]any, error) {
	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return nil, fmt.Errorf("no JSON in model output")
	}
	closer := "]"
	if text[start] == '{' {
		closer = "}"
	}
	end := strings.LastIndex(text, closer)
	if end < start {
		return nil, fmt.Errorf("unterminated JSON in model output")
	}
	body := text[start : end+1]

	if closer == "}" {
		var one map[string]any
		if err := json.Unmarshal([]byte(body), &one); err != nil {
			return nil, fmt.Errorf("failed to decode suggestion: %w", err)
		}
		if list, ok := one["suggestions"].([]any); ok {
			return objects(list), nil
		}
		return []map[string]any{one}, nil
	}
	var list []any
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}
	return objects(list), nil
}

func objects(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
