package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/navigator/internal/domain"
)

var refNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		input string
		want  domain.Intent
	}{
		{"flights from Mumbai to Delhi on 2025-07-15", domain.IntentFlights},
		{"Plan a honeymoon itinerary in Bali", domain.IntentSuggestions},
		{"compare flights to London", domain.IntentFlights},
		{"cheapest flights with things to do", domain.IntentFlights},
		{"what should I do on day 1 in Paris", domain.IntentItinerary},
		{"a relaxed morning schedule in Rome", domain.IntentItinerary},
		{"round trip flights and recommend a hotel", domain.IntentSuggestions},
		{"I need a round-trip to Tokyo", domain.IntentFlights},
		{"somewhere warm in December", domain.IntentSuggestions},
		{"", domain.IntentSuggestions},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectIntent(tt.input))
		})
	}
}

func TestClassifyFlightQuery(t *testing.T) {
	c := ClassifyAt("flights from Mumbai to Delhi on 2025-07-15", "", refNow)
	assert.Equal(t, domain.IntentFlights, c.Intent)
	assert.Equal(t, "Mumbai", c.Slots.Origin)
	assert.Equal(t, "Delhi", c.Slots.Destination)
	assert.Equal(t, "2025-07-15", c.Slots.DepartureDate)
	assert.Empty(t, c.Slots.ReturnDate)
	assert.Empty(t, c.Missing)
}

func TestClassifyReportsMissingSlots(t *testing.T) {
	c := ClassifyAt("find me flights", "", refNow)
	assert.Equal(t, domain.IntentFlights, c.Intent)
	assert.Equal(t, []string{"origin city", "destination city", "departure date"}, c.Missing)

	msg := Clarification(c.Intent, c.Missing)
	assert.Contains(t, msg, "origin city, destination city, departure date")
	assert.Contains(t, msg, FlightExample)

	assert.Empty(t, Clarification(domain.IntentFlights, nil))
	assert.Contains(t, Clarification(domain.IntentItinerary, []string{"destination"}), "destination")
}

func TestExtractRouteIATAPriority(t *testing.T) {
	origin, dest := ExtractRoute("Book me from Mumbai (DMM) to Tokyo (SZX) next week", "")
	assert.Equal(t, "Dammam", origin)
	assert.Equal(t, "Shenzhen", dest)

	origin, dest = ExtractRoute("fly (ABC) then (XYZ)", "")
	assert.Equal(t, "ABC", origin)
	assert.Equal(t, "XYZ", dest)
}

func TestExtractRouteFromTo(t *testing.T) {
	origin, dest := ExtractRoute("I want to go from new york to london, please", "")
	assert.Equal(t, "New York", origin)
	assert.Equal(t, "London", dest)

	origin, dest = ExtractRoute("trip from springfield to lisbon on friday", "")
	assert.Equal(t, "Springfield", origin)
	assert.Equal(t, "Lisbon", dest)
}

func TestExtractRouteKnownCities(t *testing.T) {
	t.Run("single city uses preferred origin", func(t *testing.T) {
		origin, dest := ExtractRoute("What is there to see in Tokyo?", "Chennai")
		assert.Equal(t, "Chennai", origin)
		assert.Equal(t, "Tokyo", dest)
	})
	t.Run("single city without preference", func(t *testing.T) {
		origin, dest := ExtractRoute("Tokyo in spring", "")
		assert.Empty(t, origin)
		assert.Equal(t, "Tokyo", dest)
	})
	t.Run("preferred origin among mentioned cities", func(t *testing.T) {
		origin, dest := ExtractRoute("Paris or London? I live in London", "london")
		assert.Equal(t, "London", origin)
		assert.Equal(t, "Paris", dest)
	})
	t.Run("positional order", func(t *testing.T) {
		origin, dest := ExtractRoute("Sydney and Singapore", "")
		assert.Equal(t, "Sydney", origin)
		assert.Equal(t, "Singapore", dest)
	})
	t.Run("airport code preference", func(t *testing.T) {
		origin, dest := ExtractRoute("thinking about Dubai", "bom")
		assert.Equal(t, "Mumbai", origin)
		assert.Equal(t, "Dubai", dest)
	})
	t.Run("nothing found", func(t *testing.T) {
		origin, dest := ExtractRoute("somewhere warm", "Delhi")
		assert.Equal(t, "Delhi", origin)
		assert.Empty(t, dest)
	})
}

func TestExtractDates(t *testing.T) {
	t.Run("natural language", func(t *testing.T) {
		d := ExtractDates("departing on July 10th and returning on July 18th", refNow)
		require.True(t, d.DepartureFound)
		require.True(t, d.ReturnFound)
		assert.Equal(t, "2025-07-10", d.Departure.Format(DateLayout))
		assert.Equal(t, "2025-07-18", d.Return.Format(DateLayout))
	})
	t.Run("iso dates in order", func(t *testing.T) {
		d := ExtractDates("Delhi 2025-08-01 back 2025-08-09", refNow)
		assert.Equal(t, "2025-08-01", d.Departure.Format(DateLayout))
		assert.Equal(t, "2025-08-09", d.Return.Format(DateLayout))
		assert.True(t, d.ReturnFound)
	})
	t.Run("defaults", func(t *testing.T) {
		d := ExtractDates("somewhere sunny", refNow)
		assert.False(t, d.DepartureFound)
		assert.False(t, d.ReturnFound)
		assert.Equal(t, "2025-07-01", d.Departure.Format(DateLayout))
		assert.Equal(t, "2025-07-08", d.Return.Format(DateLayout))
	})
	t.Run("return before departure is discarded", func(t *testing.T) {
		d := ExtractDates("leaving Aug 20 and coming back Aug 2", refNow)
		assert.Equal(t, "2025-08-20", d.Departure.Format(DateLayout))
		assert.False(t, d.ReturnFound)
		assert.Equal(t, "2025-08-27", d.Return.Format(DateLayout))
	})
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"July 10th", "Jul 10", "7/10", "7-10", "10 July", "10 Jul", "2025-07-10"} {
		got, ok := ParseDate(s, refNow)
		require.True(t, ok, s)
		assert.Equal(t, "2025-07-10", got.Format(DateLayout), s)
	}
	got, ok := ParseDate("March 3rd", refNow)
	require.True(t, ok)
	assert.Equal(t, "2026-03-03", got.Format(DateLayout))

	_, ok = ParseDate("someday", refNow)
	assert.False(t, ok)
}

func TestExtractEntities(t *testing.T) {
	e := ExtractEntities("2 weeks in Japan for 3 people under $4,500 on a budget")
	assert.Equal(t, 14, e.DurationDays)
	assert.Equal(t, 3, e.Travelers)
	require.NotNil(t, e.Budget)
	assert.Equal(t, 4500.0, *e.Budget)
	assert.Equal(t, domain.BudgetTierBudget, e.BudgetTier)

	e = ExtractEntities("a luxury honeymoon for 10 days")
	assert.Equal(t, 10, e.DurationDays)
	assert.Equal(t, 2, e.Travelers)
	assert.Nil(t, e.Budget)
	assert.Equal(t, domain.BudgetTierLuxury, e.BudgetTier)

	e = ExtractEntities("1 month backpacking solo")
	assert.Equal(t, 30, e.DurationDays)
	assert.Equal(t, 1, e.Travelers)

	e = ExtractEntities("for 2025-07-15")
	assert.Zero(t, e.Travelers)

	e = ExtractEntities("a road trip for 200000 days")
	assert.Equal(t, domain.MaxTripDays, e.DurationDays)
	e = ExtractEntities("12 months around the world")
	assert.Equal(t, domain.MaxTripDays, e.DurationDays)
}
