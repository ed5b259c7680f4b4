package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xiaot623/gogo/navigator/internal/domain"
	"github.com/xiaot623/gogo/navigator/internal/intent"
	"github.com/xiaot623/gogo/navigator/internal/protocol"
)

const (
	maxListedFlights = 5
	syntheticNote    = "Note: live data is unavailable right now, these are sample options."
)

// Register adds every travel tool to r.
func (t *Travel) Register(r *Registry) error {
	schemas, err := BuiltinSchemas()
	if err != nil {
		return err
	}
	defs := []Tool{
		{
			Name: "flight_search",
			Description: "Search one-way or round-trip flights when origin, destination and departure date are known. " +
				"For natural language requests use intelligent_flight_search instead.",
			Exec: t.flightSearch,
		},
		{
			Name: "intelligent_flight_search",
			Description: "Search flights from a natural language request; extracts origin, destination and dates, " +
				"and asks for whatever is missing.",
			TextParam: "query",
			Exec:      t.intelligentFlightSearch,
		},
		{
			Name:        "search_flights_flexible",
			Description: "Search flights from a JSON text request. Use when flight_search has parameter issues.",
			TextParam:   "flight_request",
			Exec:        t.flexibleFlightSearch,
		},
		{
			Name:        "hotel_search",
			Description: "Find hotels in a city across budget, mid-range and luxury tiers.",
			TextParam:   "location",
			Exec:        t.hotelSearch,
		},
		{
			Name:        "currency_conversion",
			Description: "Convert an amount between two currency codes using current exchange rates.",
			Exec:        t.currencyConversion,
		},
		{
			Name:        "weather_info",
			Description: "Get current weather for a location.",
			TextParam:   "location",
			Exec:        t.weatherInfo,
		},
		{
			Name:        "travel_planner",
			Description: "Create a detailed day-by-day itinerary for a destination.",
			Exec:        t.travelPlanner,
		},
	}
	for _, def := range defs {
		schema, ok := schemas[def.Name]
		if !ok {
			return fmt.Errorf("no parameter schema for tool %s", def.Name)
		}
		def.Params = schema
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func (t *Travel) flightSearch(ctx context.Context, args Args) (string, error) {
	req, problem := t.flightRequest(args.Str("origin"), args.Str("destination"),
		args.Str("departure_date"), args.Str("return_date"), args.Int("num_passengers", 1))
	if problem != "" {
		return problem, nil
	}
	req.TravelClass = args.Str("travel_class")
	return formatFlights(req, t.Flights(ctx, req)), nil
}

func (t *Travel) intelligentFlightSearch(ctx context.Context, args Args) (string, error) {
	query := args.Str("query")
	c := intent.ClassifyAt(query, "", t.opts.Now())
	if missing := intent.Missing(domain.IntentFlights, c.Slots); len(missing) > 0 {
		return intent.Clarification(domain.IntentFlights, missing), nil
	}
	passengers := c.Slots.Travelers
	req, problem := t.flightRequest(c.Slots.Origin, c.Slots.Destination,
		c.Slots.DepartureDate, c.Slots.ReturnDate, passengers)
	if problem != "" {
		return problem, nil
	}
	if c.Slots.BudgetTier != "" {
		req.TravelClass = c.Slots.BudgetTier.CabinClass()
	}
	return formatFlights(req, t.Flights(ctx, req)), nil
}

func (t *Travel) flexibleFlightSearch(ctx context.Context, args Args) (string, error) {
	params, _, _ := protocol.DecodeArgs(args.Str("flight_request"))
	if params == nil {
		return "Error: Could not parse flight request. Please provide JSON format with origin, destination, and departure_date.", nil
	}
	p := Args(params)
	switch {
	case protocol.IsPlaceholder(params["origin"]):
		return "Error: Origin is required", nil
	case protocol.IsPlaceholder(params["destination"]):
		return "Error: Destination is required", nil
	case protocol.IsPlaceholder(params["departure_date"]):
		return "Error: Departure date is required", nil
	}
	req, problem := t.flightRequest(p.Str("origin"), p.Str("destination"),
		p.Str("departure_date"), p.Str("return_date"), p.Int("num_passengers", 1))
	if problem != "" {
		return problem, nil
	}
	return formatFlights(req, t.Flights(ctx, req)), nil
}

// flightRequest validates raw flight fields. A non-empty problem is a
// user-facing explanation of what is wrong.
func (t *Travel) flightRequest(origin, destination, departure, ret string, passengers int) (FlightRequest, string) {
	if protocol.IsPlaceholder(origin) {
		return FlightRequest{}, "Error: Origin is required for flight search"
	}
	if protocol.IsPlaceholder(destination) {
		return FlightRequest{}, "Error: Destination is required for flight search"
	}
	if protocol.IsPlaceholder(departure) {
		return FlightRequest{}, "Error: Departure date is required for flight search"
	}
	dep, err := time.Parse(intent.DateLayout, departure)
	if err != nil {
		return FlightRequest{}, fmt.Sprintf("Error: departure_date %q must use YYYY-MM-DD, for example '%s'", departure, intent.FlightExample)
	}
	req := FlightRequest{Origin: origin, Destination: destination, DepartureDate: dep, Passengers: max(passengers, 1)}
	if !protocol.IsPlaceholder(ret) {
		r, err := time.Parse(intent.DateLayout, ret)
		if err != nil {
			return FlightRequest{}, fmt.Sprintf("Error: return_date %q must use YYYY-MM-DD", ret)
		}
		if r.Before(dep) {
			return FlightRequest{}, "Error: return_date must not be before departure_date"
		}
		req.ReturnDate = r
	}
	return req, ""
}

func (t *Travel) hotelSearch(ctx context.Context, args Args) (string, error) {
	location := args.Str("location")
	hotels := t.Hotels(ctx, location)

	var b strings.Builder
	fmt.Fprintf(&b, "Hotels in %s:\n", location)
	if len(hotels) > 0 && hotels[0].IsSynthetic {
		b.WriteString(syntheticNote + "\n")
	}
	for i, h := range hotels {
		fmt.Fprintf(&b, "\n%d. %s\n   - Price: %s\n   - Rating: %s\n   - Address: %s\n", i+1, h.Name, h.Price, h.Rating, h.Address)
		if len(h.Amenities) > 0 {
			fmt.Fprintf(&b, "   - Amenities: %s\n", strings.Join(h.Amenities, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (t *Travel) currencyConversion(ctx context.Context, args Args) (string, error) {
	amount := args.Float("amount", 0)
	from, to := strings.ToUpper(args.Str("from_currency")), strings.ToUpper(args.Str("to_currency"))
	c := t.Convert(ctx, amount, from, to)

	out := fmt.Sprintf("%s %s = %s %s\nExchange rate: 1 %s = %s %s",
		formatAmount(c.OriginalAmount), c.FromCurrency, formatAmount(c.ConvertedAmount), c.ToCurrency,
		c.FromCurrency, strconv.FormatFloat(c.ExchangeRate, 'f', -1, 64), c.ToCurrency)
	if c.Note != "" {
		out += "\nNote: " + c.Note
	}
	return out, nil
}

func (t *Travel) weatherInfo(ctx context.Context, args Args) (string, error) {
	location := args.Str("location")
	w := t.Weather(ctx, location, args.Str("date"))
	out := fmt.Sprintf("Weather in %s:\n- Temperature: %s\n- Condition: %s\n- Humidity: %s",
		location, w.Temperature, w.Description, orNA(w.Humidity))
	if w.WindSpeed != "" {
		out += "\n- Wind: " + w.WindSpeed
	}
	return out, nil
}

func (t *Travel) travelPlanner(ctx context.Context, args Args) (string, error) {
	return t.DayPlan(ctx, args.Str("destination"), args.Int("duration", 7), args.Str("preferences")), nil
}

func formatFlights(req FlightRequest, flights []domain.FlightOption) string {
	tripType := domain.TripOneWay
	if !req.ReturnDate.IsZero() {
		tripType = domain.TripRoundTrip
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d flights from %s to %s on %s (%s)\n",
		len(flights), req.Origin, req.Destination, req.DepartureDate.Format(intent.DateLayout), tripType)
	if req.Passengers > 1 {
		fmt.Fprintf(&b, "Showing prices for %d passengers.\n", req.Passengers)
	}
	if len(flights) > 0 && flights[0].IsSynthetic {
		b.WriteString(syntheticNote + "\n")
	}
	for i, f := range flights {
		if i == maxListedFlights {
			break
		}
		fmt.Fprintf(&b, "\n%d. %s %s\n", i+1, f.Airline, f.FlightNumber)
		fmt.Fprintf(&b, "   - Departs: %s, arrives: %s\n", f.DepartureTime, f.ArrivalTime)
		fmt.Fprintf(&b, "   - Duration: %s, stops: %d\n", f.Duration, f.Stops)
		fmt.Fprintf(&b, "   - Price: %s\n", f.Price)
		if f.TripType == domain.TripRoundTrip {
			stops := 0
			if f.ReturnStops != nil {
				stops = *f.ReturnStops
			}
			fmt.Fprintf(&b, "   - Return: departs %s, arrives %s (%s, stops: %d)\n",
				f.ReturnDepartureTime, f.ReturnArrivalTime, f.ReturnDuration, stops)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
