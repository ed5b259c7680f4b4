// Package intent classifies free-text travel requests and extracts the slot
// values (route, dates, party size, budget) the planner needs.
package intent

import (
	"strings"
	"time"

	"github.com/xiaot623/gogo/navigator/internal/domain"
)

var (
	comprehensiveKeywords = []string{
		"curate", "experience", "activities", "places to visit", "things to do",
		"romantic experience", "island escape", "day by day", "itinerary",
		"recommend resorts", "recommend hotels", "attractions", "sightseeing",
		"what to do", "where to go", "travel guide", "complete details",
		"day-by-day", "personalized tips", "unforgettable", "honeymoon",
	}
	pureFlightKeywords = []string{
		"search flights only", "find flights only", "flight prices only",
		"compare flights", "cheapest flights", "flight deals only",
	}
	itineraryKeywords = []string{
		"create itinerary", "make itinerary", "detailed itinerary", "travel plan",
		"schedule", "day 1", "day 2", "day 3", "morning", "afternoon", "evening",
	}
	flightWords        = []string{"flight", "flights", "round-trip", "round trip"}
	travelContentWords = []string{"recommend", "suggest", "experience", "activities", "places", "resort", "hotel"}
)

// Slots are the values extracted from a request. Empty strings and zero
// values mean the slot was not present in the text.
type Slots struct {
	Origin        string            `json:"origin,omitempty"`
	Destination   string            `json:"destination,omitempty"`
	DepartureDate string            `json:"departure_date,omitempty"`
	ReturnDate    string            `json:"return_date,omitempty"`
	Travelers     int               `json:"travelers,omitempty"`
	DurationDays  int               `json:"duration_days,omitempty"`
	Budget        *float64          `json:"budget,omitempty"`
	BudgetTier    domain.BudgetTier `json:"budget_tier,omitempty"`
}

// Classification is the result of Classify.
type Classification struct {
	Intent  domain.Intent `json:"intent"`
	Slots   Slots         `json:"slots"`
	Missing []string      `json:"missing,omitempty"`
}

// Classify determines the intent of input and extracts its slots.
func Classify(input, preferredOrigin string) Classification {
	return ClassifyAt(input, preferredOrigin, time.Now())
}

// ClassifyAt is Classify with an explicit reference time for relative dates.
func ClassifyAt(input, preferredOrigin string, now time.Time) Classification {
	c := Classification{Intent: DetectIntent(input)}

	c.Slots.Origin, c.Slots.Destination = ExtractRoute(input, preferredOrigin)
	if d := ExtractDates(input, now); d.DepartureFound {
		c.Slots.DepartureDate = d.Departure.Format(DateLayout)
		if d.ReturnFound {
			c.Slots.ReturnDate = d.Return.Format(DateLayout)
		}
	}
	e := ExtractEntities(input)
	c.Slots.Travelers = e.Travelers
	c.Slots.DurationDays = e.DurationDays
	c.Slots.Budget = e.Budget
	c.Slots.BudgetTier = e.BudgetTier

	c.Missing = Missing(c.Intent, c.Slots)
	return c
}

// DetectIntent applies the keyword priority cascade:
// comprehensive planning (2+ hits) > pure flight search > itinerary >
// flights mentioned alongside travel content > flights alone > suggestions.
func DetectIntent(input string) domain.Intent {
	lower := strings.ToLower(input)

	if countContained(lower, comprehensiveKeywords) >= 2 {
		return domain.IntentSuggestions
	}
	if countContained(lower, pureFlightKeywords) > 0 {
		return domain.IntentFlights
	}
	if countContained(lower, itineraryKeywords) > 0 {
		return domain.IntentItinerary
	}

	hasFlight := countContained(lower, flightWords) > 0
	hasTravel := countContained(lower, travelContentWords) > 0
	switch {
	case hasFlight && hasTravel:
		return domain.IntentSuggestions
	case hasFlight:
		return domain.IntentFlights
	default:
		return domain.IntentSuggestions
	}
}

func countContained(s string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(s, k) {
			n++
		}
	}
	return n
}

// Missing names the slots an intent cannot proceed without.
func Missing(intent domain.Intent, s Slots) []string {
	var missing []string
	switch intent {
	case domain.IntentFlights:
		if s.Origin == "" {
			missing = append(missing, "origin city")
		}
		if s.Destination == "" {
			missing = append(missing, "destination city")
		}
		if s.DepartureDate == "" {
			missing = append(missing, "departure date")
		}
	case domain.IntentItinerary:
		if s.Destination == "" {
			missing = append(missing, "destination")
		}
	}
	return missing
}

// FlightExample is the canonical example query shown in clarification prompts.
const FlightExample = "flights from Mumbai to Delhi on 2025-07-15"

// Clarification renders a user-facing request for the missing slots, or ""
// when nothing is missing.
func Clarification(intent domain.Intent, missing []string) string {
	if len(missing) == 0 {
		return ""
	}
	list := strings.Join(missing, ", ")
	switch intent {
	case domain.IntentFlights:
		return "To search for flights, I need the " + list +
			". Could you please provide these details? For example: '" + FlightExample + "'"
	case domain.IntentItinerary:
		return "To plan your itinerary, I need the " + list +
			". Could you tell me where you would like to go and for how many days?"
	default:
		return "Could you tell me a bit more? I still need the " + list + "."
	}
}
