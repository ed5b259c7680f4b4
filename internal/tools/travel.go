package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/navigator/internal/adapter/provider"
	"github.com/xiaot623/gogo/navigator/internal/domain"
	"github.com/xiaot623/gogo/navigator/internal/intent"
	"github.com/xiaot623/gogo/navigator/internal/normalize"
)

// Completer produces free text for a prompt. It is satisfied by the LLM
// adapter and used for day-plan generation.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// TravelOptions are market defaults applied to searches.
type TravelOptions struct {
	Currency string
	Now      func() time.Time
}

// Travel performs the travel searches behind the tools. Every method returns
// canonical data: provider failures come back as fallback results.
type Travel struct {
	adapters provider.Set
	planner  Completer
	opts     TravelOptions
	logger   zerolog.Logger
}

// NewTravel wires adapters and an optional planner. A nil planner makes
// day plans use the generic skeleton.
func NewTravel(adapters provider.Set, planner Completer, opts TravelOptions, logger zerolog.Logger) *Travel {
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Travel{adapters: adapters, planner: planner, opts: opts, logger: logger}
}

// FlightRequest is a structured flight search.
type FlightRequest struct {
	Origin        string
	Destination   string
	DepartureDate time.Time
	ReturnDate    time.Time
	Passengers    int
	TravelClass   string
}

// Flights searches flights. Origin and destination may be city names or codes.
func (t *Travel) Flights(ctx context.Context, req FlightRequest) []domain.FlightOption {
	origin, destination := normalize.AirportCode(req.Origin), normalize.AirportCode(req.Destination)
	params := provider.Params{
		"origin":         origin,
		"destination":    destination,
		"departure_date": req.DepartureDate.Format(intent.DateLayout),
		"adults":         max(req.Passengers, 1),
		"currency":       t.opts.Currency,
	}
	if !req.ReturnDate.IsZero() {
		params["return_date"] = req.ReturnDate.Format(intent.DateLayout)
	}
	if req.TravelClass != "" {
		params["travel_class"] = req.TravelClass
	}

	res := t.adapters.Flights.Search(ctx, params)
	t.logFailure(res, "flights")
	return normalize.Flights(res, normalize.FlightQuery{
		Origin:        origin,
		Destination:   destination,
		DepartureDate: req.DepartureDate,
		ReturnDate:    req.ReturnDate,
	})
}

// Hotels searches hotels in a city.
func (t *Travel) Hotels(ctx context.Context, location string) []domain.HotelOption {
	res := t.adapters.Hotels.Search(ctx, provider.Params{"city_code": normalize.HotelCityCode(location)})
	t.logFailure(res, "hotels")
	return normalize.Hotels(res, normalize.HotelQuery{Location: location})
}

// Weather returns current conditions for a location.
func (t *Travel) Weather(ctx context.Context, location, date string) domain.WeatherInfo {
	res := t.adapters.Weather.Search(ctx, provider.Params{"location": location})
	if res.Failure != nil && res.Failure.Kind == provider.FailureStatus {
		// The name lookup missed; retry by coordinates.
		if lat, lon, ok := t.geocode(ctx, location); ok {
			res = t.adapters.Weather.Search(ctx, provider.Params{"location": location, "lat": lat, "lon": lon})
		}
	}
	t.logFailure(res, "weather")
	return normalize.Weather(res, location, date)
}

func (t *Travel) geocode(ctx context.Context, location string) (lat, lon string, ok bool) {
	if t.adapters.Geocode == nil {
		return "", "", false
	}
	var places []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	res := t.adapters.Geocode.Search(ctx, provider.Params{"location": location})
	if f := res.Decode(&places); f != nil || len(places) == 0 {
		return "", "", false
	}
	return strconv.FormatFloat(places[0].Lat, 'f', 4, 64), strconv.FormatFloat(places[0].Lon, 'f', 4, 64), true
}

// Convert converts between currencies. Same-currency requests never reach
// the provider.
func (t *Travel) Convert(ctx context.Context, amount float64, from, to string) domain.CurrencyConversion {
	if normalize.SameCurrency(from, to) {
		return normalize.Currency(provider.Result{}, amount, from, to)
	}
	res := t.adapters.Currency.Search(ctx, provider.Params{"from": from})
	t.logFailure(res, "currency")
	return normalize.Currency(res, amount, from, to)
}

// DayPlan produces a day-by-day plan covering every day of the trip.
func (t *Travel) DayPlan(ctx context.Context, destination string, days int, preferences string) string {
	days = domain.TripDays(days, 7)
	if preferences == "" {
		preferences = "general sightseeing"
	}
	if t.planner == nil {
		return t.fallbackPlan(destination, days)
	}

	prompt := fmt.Sprintf("Create a detailed %d-day itinerary for %s focusing on %s. "+
		"Use one section per day titled \"Day N:\" with Morning, Afternoon and Evening lines.",
		days, destination, preferences)
	text, err := t.planner.Complete(ctx, "You are an expert travel planner.", prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		t.logger.Warn().Err(err).Str("destination", destination).Msg("day plan generation failed, using skeleton")
		return t.fallbackPlan(destination, days)
	}
	return fmt.Sprintf("%d-Day Travel Itinerary for %s\nFocus: %s\n\n%s",
		days, destination, preferences, normalize.EnsureDays(text, days))
}

func (t *Travel) fallbackPlan(destination string, days int) string {
	return fmt.Sprintf("%d-Day Travel Guide for %s\n\n%s\nTips: Research local transportation, book accommodations in advance, and try local specialties!",
		days, destination, normalize.DaySkeleton(destination, days))
}

func (t *Travel) logFailure(res provider.Result, kind string) {
	if res.Failure != nil {
		t.logger.Warn().
			Str("adapter", kind).
			Str("failure_kind", string(res.Failure.Kind)).
			Str("reason", res.Failure.Reason).
			Msg("provider call failed, using fallback data")
	}
}
