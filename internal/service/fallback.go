package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/navigator/internal/domain"
	"github.com/xiaot623/gogo/navigator/internal/intent"
	"github.com/xiaot623/gogo/navigator/internal/normalize"
)

const flightsUnavailable = "I could not search flights right now. Please try again in a moment, for example: '" + intent.FlightExample + "'"

// openPair is suggested when the user named no destination at all.
var openPair = []struct{ destination, description string }{
	{"Lisbon, Portugal", "sunny viewpoints, tiled old quarters and excellent seafood at moderate prices"},
	{"Kyoto, Japan", "temples, gardens and traditional food culture within easy reach of Osaka"},
}

// fallback answers without the reasoning engine. The reply is shaped by the
// classified intent.
func (s *Service) fallback(ctx context.Context, c intent.Classification) string {
	switch c.Intent {
	case domain.IntentFlights:
		return s.fallbackFlights(ctx, c.Slots)
	case domain.IntentItinerary:
		if c.Slots.Destination == "" {
			return intent.Clarification(c.Intent, intent.Missing(c.Intent, c.Slots))
		}
		days := domain.TripDays(c.Slots.DurationDays, s.opts.TripDuration)
		return fmt.Sprintf("Here is a %d-day outline for %s:\n\n%s",
			days, c.Slots.Destination, normalize.DaySkeleton(c.Slots.Destination, days))
	default:
		return s.fallbackSuggestions(c.Slots)
	}
}

func (s *Service) fallbackSuggestions(slots intent.Slots) string {
	var b strings.Builder
	b.WriteString("Here are two ideas for your next trip:\n\n")
	if slots.Destination == "" {
		for _, p := range openPair {
			fmt.Fprintf(&b, "* %s for %s\n", p.destination, p.description)
		}
		return strings.TrimRight(b.String(), "\n")
	}
	duration := domain.TripDays(slots.DurationDays, s.opts.TripDuration)
	for _, sug := range normalize.FallbackSuggestions(slots.Destination, duration) {
		fmt.Fprintf(&b, "* %s for %s\n", sug.Destination, firstSentence(sug.Description))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Service) fallbackFlights(ctx context.Context, slots intent.Slots) string {
	args := map[string]any{
		"origin":         slots.Origin,
		"destination":    slots.Destination,
		"departure_date": slots.DepartureDate,
	}
	if slots.ReturnDate != "" {
		args["return_date"] = slots.ReturnDate
	}
	if slots.Travelers > 0 {
		args["num_passengers"] = slots.Travelers
	}
	prepared, err := s.registry.Prepare("flight_search", args, "")
	if err != nil {
		s.logger.Warn().Err(err).Msg("fallback flight search failed")
		return flightsUnavailable
	}
	out, err := s.registry.Execute(ctx, "flight_search", prepared)
	if err != nil {
		s.logger.Warn().Err(err).Msg("fallback flight search failed")
		return flightsUnavailable
	}
	return out
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ". "); i > 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
