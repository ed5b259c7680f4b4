package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/navigator/internal/adapter/provider"
	"github.com/xiaot623/gogo/navigator/internal/domain"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestCodes(t *testing.T) {
	assert.Equal(t, "BOM", AirportCode("Mumbai"))
	assert.Equal(t, "DEL", AirportCode(" delhi "))
	assert.Equal(t, "ATLANTIS", AirportCode("Atlantis"))
	assert.Equal(t, "LON", HotelCityCode("London"))
	assert.Equal(t, "ATL", HotelCityCode("atlantis"))
	assert.Equal(t, "Dammam", CityForIATA("dmm"))
	assert.Equal(t, "XYZ", CityForIATA("xyz"))

	cities := KnownCities()
	require.NotEmpty(t, cities)
	for i := 1; i < len(cities); i++ {
		assert.GreaterOrEqual(t, len(cities[i-1]), len(cities[i]))
	}
}

func TestLoadTablesRejectsIncomplete(t *testing.T) {
	_, err := loadTables([]byte("airports: {a: b}\n"))
	assert.Error(t, err)
	_, err = loadTables([]byte("::"))
	assert.Error(t, err)
}

func TestFallbackFlights(t *testing.T) {
	q := FlightQuery{Origin: "BOM", Destination: "DEL", DepartureDate: day("2025-07-15")}
	flights := FallbackFlights(q)
	require.Len(t, flights, 3)
	for i, f := range flights {
		assert.Equal(t, i, f.Stops)
		assert.True(t, f.IsSynthetic)
		assert.Equal(t, domain.TripOneWay, f.TripType)
		assert.Equal(t, "BOM", f.Departure)
		assert.Nil(t, f.ReturnStops)
	}
	assert.Equal(t, "$450", flights[0].Price)
	assert.Equal(t, "2025-07-15T08:00:00", flights[0].DepartureTime)

	q.ReturnDate = day("2025-07-20")
	rt := FallbackFlights(q)
	assert.Equal(t, "$810", rt[0].Price)
	assert.Equal(t, domain.TripRoundTrip, rt[2].TripType)
	require.NotNil(t, rt[2].ReturnStops)
	assert.Equal(t, 2, *rt[2].ReturnStops)
	assert.Contains(t, rt[1].ReturnDepartureTime, "2025-07-20")
}

func TestFlightsFromAmadeus(t *testing.T) {
	payload := `{
		"data": [{
			"itineraries": [
				{"duration": "PT2H10M", "segments": [
					{"carrierCode": "AI", "number": "101", "departure": {"at": "2025-07-15T06:00:00"}, "arrival": {"at": "2025-07-15T07:00:00"}},
					{"carrierCode": "AI", "number": "102", "departure": {"at": "2025-07-15T07:30:00"}, "arrival": {"at": "2025-07-15T08:10:00"}}
				]},
				{"duration": "PT2H", "segments": [
					{"carrierCode": "AI", "number": "201", "departure": {"at": "2025-07-20T09:00:00"}, "arrival": {"at": "2025-07-20T11:00:00"}}
				]}
			],
			"price": {"total": "312.40", "currency": "USD"}
		}],
		"dictionaries": {"carriers": {"AI": "AIR INDIA"}}
	}`
	q := FlightQuery{Origin: "BOM", Destination: "DEL", DepartureDate: day("2025-07-15")}
	flights := Flights(provider.Success(json.RawMessage(payload)), q)
	require.Len(t, flights, 1)
	f := flights[0]
	assert.Equal(t, "Air India", f.Airline)
	assert.Equal(t, "AI101", f.FlightNumber)
	assert.Equal(t, "2h 10m", f.Duration)
	assert.Equal(t, "$312.40", f.Price)
	assert.Equal(t, 1, f.Stops)
	assert.Equal(t, domain.TripRoundTrip, f.TripType)
	require.NotNil(t, f.ReturnStops)
	assert.Equal(t, 0, *f.ReturnStops)
	assert.False(t, f.IsSynthetic)
}

func TestFlightsFallBackOnFailureAndEmpty(t *testing.T) {
	q := FlightQuery{Origin: "BOM", Destination: "DEL", DepartureDate: day("2025-07-15")}

	failed := Flights(provider.Fail(provider.FailureNetwork, "boom"), q)
	require.Len(t, failed, 3)
	assert.True(t, failed[0].IsSynthetic)

	empty := Flights(provider.Success(json.RawMessage(`{"data": []}`)), q)
	assert.Len(t, empty, 3)

	garbage := Flights(provider.Success(json.RawMessage(`not json`)), q)
	assert.Len(t, garbage, 3)
}

func TestFlightOptionIsIdempotent(t *testing.T) {
	for _, f := range FallbackFlights(FlightQuery{Origin: "A", Destination: "B"}) {
		assert.Equal(t, f, FlightOption(f))
		assert.Equal(t, FlightOption(f), FlightOption(FlightOption(f)))
	}
	fixed := FlightOption(domain.FlightOption{Stops: -1})
	assert.Equal(t, 0, fixed.Stops)
	assert.Equal(t, "Unknown", fixed.Airline)
	assert.Equal(t, domain.TripOneWay, fixed.TripType)
}

func TestHotels(t *testing.T) {
	payload := `{"data": [
		{"name": "GRAND PALACE", "rating": 4.5, "address": {"lines": ["1 Main St"]}},
		{"name": ""},
		{"name": "harbor view", "address": {"cityName": "MUMBAI"}}
	]}`
	hotels := Hotels(provider.Success(json.RawMessage(payload)), HotelQuery{Location: "Mumbai"})
	require.Len(t, hotels, 2)
	assert.Equal(t, "Grand Palace", hotels[0].Name)
	assert.Equal(t, "4.5", hotels[0].Rating)
	assert.Equal(t, "1 Main St", hotels[0].Address)
	assert.Equal(t, "Price on request", hotels[0].Price)
	assert.NotEmpty(t, hotels[0].Amenities)
	assert.Equal(t, "MUMBAI", hotels[1].Address)
	assert.Equal(t, "N/A", hotels[1].Rating)

	fallback := Hotels(provider.Fail(provider.FailureUnconfigured, "no key"), HotelQuery{Location: "Goa"})
	require.Len(t, fallback, 3)
	assert.Equal(t, "Goa Inn", fallback[0].Name)
	assert.Equal(t, "$40/night", fallback[0].Price)
	assert.Contains(t, fallback[2].Amenities, "Swimming Pool")
	for _, h := range fallback {
		assert.True(t, h.IsSynthetic)
		assert.Equal(t, h, HotelOption(h))
	}
}

func TestWeather(t *testing.T) {
	payload := `{"name": "Paris", "main": {"temp": 21.34, "humidity": 60}, "weather": [{"description": "clear sky"}], "wind": {"speed": 3.2}}`
	w := Weather(provider.Success(json.RawMessage(payload)), "Paris", "2025-07-15")
	assert.Equal(t, "21.3°C", w.Temperature)
	assert.Equal(t, "clear sky", w.Description)
	assert.Equal(t, "60%", w.Humidity)
	assert.Equal(t, "3.2 m/s", w.WindSpeed)
	assert.False(t, w.IsSynthetic)

	fb := Weather(provider.Fail(provider.FailureStatus, "status 500"), "Paris", "")
	assert.Equal(t, "N/A", fb.Temperature)
	assert.Equal(t, "Weather data unavailable", fb.Description)
	assert.True(t, fb.IsSynthetic)
	assert.Equal(t, fb, WeatherInfo(fb))

	noTemp := Weather(provider.Success(json.RawMessage(`{"main": {}}`)), "Paris", "")
	assert.True(t, noTemp.IsSynthetic)
}

func TestCurrency(t *testing.T) {
	t.Run("identity never consults provider", func(t *testing.T) {
		c := Currency(provider.Fail(provider.FailureNetwork, "down"), 125.5, "usd", "USD")
		assert.Equal(t, 125.5, c.ConvertedAmount)
		assert.Equal(t, 1.0, c.ExchangeRate)
		assert.Equal(t, domain.CurrencySourceIdentity, c.Source)
		assert.False(t, c.IsSynthetic)
	})

	t.Run("live rate", func(t *testing.T) {
		res := provider.Success(json.RawMessage(`{"base": "USD", "rates": {"EUR": 0.9}}`))
		c := Currency(res, 100, "USD", "EUR")
		assert.Equal(t, 90.0, c.ConvertedAmount)
		assert.Equal(t, domain.CurrencySourceLive, c.Source)
	})

	t.Run("static table", func(t *testing.T) {
		c := Currency(provider.Fail(provider.FailureNetwork, "down"), 100, "USD", "INR")
		assert.Equal(t, 7500.0, c.ConvertedAmount)
		assert.Equal(t, domain.CurrencySourceFallback, c.Source)
		assert.Equal(t, FallbackRateNote, c.Note)
		assert.True(t, c.IsSynthetic)
	})

	t.Run("missing rate in live payload", func(t *testing.T) {
		res := provider.Success(json.RawMessage(`{"rates": {"JPY": 150}}`))
		c := Currency(res, 10, "USD", "EUR")
		assert.Equal(t, domain.CurrencySourceFallback, c.Source)
		assert.Equal(t, 8.5, c.ConvertedAmount)
	})

	t.Run("unknown pair", func(t *testing.T) {
		c := FallbackCurrency(10, "CHF", "SEK")
		assert.Equal(t, 1.0, c.ExchangeRate)
		assert.Equal(t, 10.0, c.ConvertedAmount)
	})

	t.Run("revalidation", func(t *testing.T) {
		c := FallbackCurrency(33.333, "EUR", "JPY")
		assert.Equal(t, c, CurrencyConversion(c))
		forced := CurrencyConversion(domain.CurrencyConversion{OriginalAmount: 5, FromCurrency: "gbp", ToCurrency: "GBP", ConvertedAmount: 9})
		assert.Equal(t, 5.0, forced.ConvertedAmount)
		assert.Equal(t, domain.CurrencySourceIdentity, forced.Source)
	})
}

func assertComplete(t *testing.T, s domain.TravelSuggestion) {
	t.Helper()
	assert.NotEmpty(t, s.Destination)
	assert.NotEmpty(t, s.Description)
	assert.NotEmpty(t, s.BestTimeToVisit)
	assert.NotEmpty(t, s.EstimatedBudget)
	assert.NotEmpty(t, s.WeatherInfo)
	assert.NotEmpty(t, s.SafetyInfo)
	assert.Positive(t, s.Duration)
	assert.NotEmpty(t, s.Activities)
	assert.LessOrEqual(t, len(s.Activities), maxActivities)
	assert.NotEmpty(t, s.AccommodationSuggestions)
	assert.LessOrEqual(t, len(s.AccommodationSuggestions), maxAccommodations)
	assert.NotEmpty(t, s.Transportation)
	assert.LessOrEqual(t, len(s.Transportation), maxTransportation)
	assert.NotEmpty(t, s.LocalTips)
	assert.LessOrEqual(t, len(s.LocalTips), maxLocalTips)
}

func TestSuggestionsFromModelOutput(t *testing.T) {
	var raw []map[string]any
	require.NoError(t, json.Unmarshal([]byte(`[
		{"destination": "Kyoto, Japan", "description": "Temples", "duration": "7 days",
		 "activities": ["a", "b", "c", "d", "e", "f", "g"], "transportation": "Train"},
		{"name": "Hanoi", "activitySuggestions": {"options": [{"title": "Street food tour"}]},
		 "accommodations": [{"name": "Old Quarter Inn"}, {}],
		 "transportInformation": {"bus": [{"routeName": "Route 9"}], "taxi": "yes"},
		 "localTips": {"tips": [{"text": "Carry cash"}]}},
		{"destination": "Third"}
	]`), &raw))

	out := Suggestions(raw, 4)
	require.Len(t, out, 2)
	for _, s := range out {
		assertComplete(t, s)
	}

	assert.Equal(t, "Kyoto, Japan", out[0].Destination)
	assert.Equal(t, 7, out[0].Duration)
	assert.Len(t, out[0].Activities, maxActivities)
	assert.Equal(t, []string{"Train"}, out[0].Transportation)
	assert.Equal(t, defaultLocalTips, out[0].LocalTips)
	assert.Equal(t, defaultBestTime, out[0].BestTimeToVisit)

	assert.Equal(t, "Hanoi, Location Unknown", out[1].Destination)
	assert.Equal(t, 4, out[1].Duration)
	assert.Equal(t, []string{"Street food tour"}, out[1].Activities)
	assert.Equal(t, []string{"Old Quarter Inn", "Hotel"}, out[1].AccommodationSuggestions)
	assert.Equal(t, []string{"bus: Route 9", "taxi: Local routes available"}, out[1].Transportation)
	assert.Equal(t, []string{"Carry cash"}, out[1].LocalTips)
}

func TestSuggestionIsIdempotent(t *testing.T) {
	inputs := []domain.TravelSuggestion{
		{},
		{Destination: "Lisbon", Activities: []string{" ", "Tram 28"}},
		FallbackSuggestions("Lisbon", 6)[1],
	}
	for _, in := range inputs {
		once := Suggestion(in, 3)
		assertComplete(t, once)
		assert.Equal(t, once, Suggestion(once, 3))
	}
	assert.Equal(t, defaultTripLength, Suggestion(domain.TravelSuggestion{}, 0).Duration)
}

func TestSuggestionLeavesInputFlightsUntouched(t *testing.T) {
	flights := []domain.FlightOption{{Airline: "", Price: ""}}
	in := domain.TravelSuggestion{Destination: "Lisbon", Flights: flights}

	out := Suggestion(in, 3)
	require.Len(t, out.Flights, 1)
	assert.Equal(t, "Unknown", out.Flights[0].Airline)
	assert.Equal(t, "N/A", out.Flights[0].Price)

	assert.Empty(t, flights[0].Airline)
	assert.Empty(t, flights[0].Price)
	assert.Nil(t, Suggestion(domain.TravelSuggestion{}, 3).Flights)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 10, parseDuration("10 days", 5))
	assert.Equal(t, 3, parseDuration(float64(3), 5))
	assert.Equal(t, 6, parseDuration("a week or so", 6))
	assert.Equal(t, defaultTripLength, parseDuration(nil, 0))
}

func TestFallbackSuggestion(t *testing.T) {
	prefs := domain.Preferences{
		TravelStyle:         "adventure",
		BudgetRange:         domain.BudgetTierLuxury,
		AccommodationType:   "Resort",
		DietaryRestrictions: []string{"vegan", "gluten-free"},
	}
	s := FallbackSuggestion("Queenstown", prefs, 5)
	assertComplete(t, s)
	assert.True(t, s.IsSynthetic)
	assert.Equal(t, "Adventure activities in the area", s.Activities[0])
	assert.Equal(t, "Resort in central location", s.AccommodationSuggestions[0])
	assert.Equal(t, "Budget-friendly resort", s.AccommodationSuggestions[1])
	assert.Equal(t, "Find vegan-gluten-free friendly restaurants", s.LocalTips[0])
	assert.Contains(t, s.Description, "adventure travel style and Luxury budget")

	plain := FallbackSuggestion("Somewhere", domain.Preferences{}, 0)
	assert.Equal(t, "Local cultural experiences", plain.Activities[0])
	assert.Equal(t, "Find local friendly restaurants", plain.LocalTips[0])
	assert.Equal(t, "Within moderate range", plain.EstimatedBudget)
}

func TestFallbackSuggestions(t *testing.T) {
	out := FallbackSuggestions("Japan", 7)
	require.Len(t, out, 2)
	assert.Equal(t, "Japan", out[0].Destination)
	assert.Equal(t, 7, out[0].Duration)
	assert.Equal(t, "Alternative destinations in Japan", out[1].Destination)
	assert.Equal(t, 6, out[1].Duration)
	for _, s := range out {
		assertComplete(t, s)
		assert.True(t, s.IsSynthetic)
	}
	assert.Equal(t, 2, FallbackSuggestions("Japan", 2)[1].Duration)
}

func TestPriceAndTotalCost(t *testing.T) {
	assert.Equal(t, 1234.5, Price("$1,234.50"))
	assert.Equal(t, 1234.0, Price("$1,234 USD"))
	assert.Equal(t, 1234.0, Price("USD 1,234"))
	assert.Equal(t, 40.0, Price("$40/night"))
	assert.Equal(t, 0.0, Price("Price on request"))
	assert.Equal(t, 0.0, Price(""))

	it := domain.Itinerary{
		TravelRequest: domain.TravelRequest{
			StartDate:    day("2025-07-15"),
			EndDate:      day("2025-07-18"),
			NumTravelers: 2,
		},
		Flights:    []domain.FlightOption{{Price: "$450"}, {Price: "$650"}, {Price: "$850"}, {Price: "N/A"}},
		Hotels:     []domain.HotelOption{{Price: "$40/night"}, {Price: "$90/night"}, {Price: "Price on request"}},
		Activities: []domain.Activity{{Name: "Tour", Price: "$25"}, {Name: "Walk"}},
	}
	// 450+650+850 + 40+90 + 25
	assert.Equal(t, 2105.0, TotalCost(it))

	it.Flights = append(it.Flights, domain.FlightOption{Price: "$1,234 USD"})
	assert.Equal(t, 3339.0, TotalCost(it))
	assert.Equal(t, 0.0, TotalCost(domain.Itinerary{}))
}

func TestDaySkeleton(t *testing.T) {
	text := DaySkeleton("Kyoto", 2)
	assert.Equal(t, 2, CountDays(text))
	assert.Contains(t, text, "Day 1:\n- Morning: Explore Kyoto's main attractions\n")
	assert.Contains(t, text, "- Evening: Experience local nightlife/entertainment")

	assert.Equal(t, defaultTripLength, CountDays(DaySkeleton("", 0)))
	assert.Equal(t, domain.MaxTripDays, CountDays(DaySkeleton("Kyoto", 200000)))
}

func TestEnsureDays(t *testing.T) {
	full := "Day 1: Arrive\nDay 2: Museums"
	assert.Equal(t, full, EnsureDays(full, 2))

	partial := EnsureDays("Day 1: Arrive", 3)
	assert.Contains(t, partial, "Day 1: Arrive")
	assert.Contains(t, partial, "Day-by-Day Breakdown:")
	assert.Contains(t, partial, "Day 3:\n- Morning: Explore local attractions")

	assert.Equal(t, 2, CountDays(EnsureDays("", 2)))
	assert.Equal(t, domain.MaxTripDays, CountDays(EnsureDays("", 1<<40)))
}

func TestDailyPlans(t *testing.T) {
	text := "Intro\n**Day 1: Arrival**\nCheck in.\n\n## Day 2\n- Morning: Temples\n- Evening: Gion\nDay 2: duplicate"
	plans := DailyPlans(text)
	require.Len(t, plans, 2)
	assert.Equal(t, "Arrival\nCheck in.", plans["Day 1"])
	assert.Equal(t, "- Morning: Temples\n- Evening: Gion", plans["Day 2"])
}
