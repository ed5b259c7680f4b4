package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/gogo/navigator/internal/domain"
	"github.com/xiaot623/gogo/navigator/internal/intent"
	"github.com/xiaot623/gogo/navigator/internal/normalize"
	"github.com/xiaot623/gogo/navigator/internal/tools"
)

// PlanTrip assembles a full itinerary for req. Flights, hotels, weather and
// the day plan are fetched concurrently; provider failures degrade to
// fallback data rather than failing the plan.
func (s *Service) PlanTrip(ctx context.Context, req domain.TravelRequest) (*domain.Itinerary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	prefs := domain.PreferencesFromContext(req.Preferences)
	if req.Origin == "" {
		req.Origin = prefs.DepartureCity
	}
	days := domain.TripDays(req.Days(), 1)

	it := &domain.Itinerary{TravelRequest: req}
	var (
		weather domain.WeatherInfo
		plan    string
	)

	g, gctx := errgroup.WithContext(ctx)
	if req.Origin != "" {
		g.Go(func() error {
			it.Flights = s.travel.Flights(gctx, tools.FlightRequest{
				Origin:        req.Origin,
				Destination:   req.Destination,
				DepartureDate: req.StartDate,
				ReturnDate:    req.EndDate,
				Passengers:    req.NumTravelers,
				TravelClass:   prefs.BudgetRange.CabinClass(),
			})
			return nil
		})
	}
	g.Go(func() error {
		it.Hotels = s.travel.Hotels(gctx, req.Destination)
		return nil
	})
	g.Go(func() error {
		weather = s.travel.Weather(gctx, req.Destination, req.StartDate.Format(intent.DateLayout))
		return nil
	})
	g.Go(func() error {
		plan = s.travel.DayPlan(gctx, req.Destination, days, strings.Join(prefs.Interests, ", "))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	it.Weather = &weather
	for _, a := range normalize.FallbackSuggestion(req.Destination, prefs, days).Activities {
		it.Activities = append(it.Activities, domain.Activity{Name: a})
	}
	it.DailyPlans = normalize.DailyPlans(plan)
	it.TotalCost = normalize.TotalCost(*it)

	s.logger.Info().
		Str("destination", req.Destination).
		Int("days", days).
		Int("flights", len(it.Flights)).
		Int("hotels", len(it.Hotels)).
		Float64("total_cost", it.TotalCost).
		Msg("trip planned")
	return it, nil
}
