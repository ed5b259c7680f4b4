package domain

import (
	"errors"
	"time"
)

// Preferences holds what the user told us about how they like to travel.
type Preferences struct {
	DepartureCity       string     `json:"departure_city,omitempty"`
	BudgetRange         BudgetTier `json:"budget_range,omitempty"`
	TravelStyle         string     `json:"travel_style,omitempty"`
	Interests           []string   `json:"interests,omitempty"`
	GroupSize           int        `json:"group_size,omitempty"`
	LanguagePreference  string     `json:"language_preference,omitempty"`
	DietaryRestrictions []string   `json:"dietary_restrictions,omitempty"`
	AccommodationType   string     `json:"accommodation_type,omitempty"`
}

// PreferencesFromContext reads preferences out of a session context map.
// Unknown or mistyped keys are ignored.
func PreferencesFromContext(ctx map[string]any) Preferences {
	var p Preferences
	if ctx == nil {
		return p
	}
	p.DepartureCity = stringValue(ctx["departure_city"])
	p.BudgetRange = BudgetTier(stringValue(ctx["budget_range"]))
	p.TravelStyle = stringValue(ctx["travel_style"])
	p.LanguagePreference = stringValue(ctx["language_preference"])
	p.AccommodationType = stringValue(ctx["accommodation_type"])
	p.Interests = stringSlice(ctx["interests"])
	p.DietaryRestrictions = stringSlice(ctx["dietary_restrictions"])
	switch n := ctx["group_size"].(type) {
	case int:
		p.GroupSize = n
	case float64:
		p.GroupSize = int(n)
	}
	return p
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if vv != "" {
			return []string{vv}
		}
	}
	return nil
}

// ErrInvalidTravelRequest is returned when a TravelRequest violates its invariants.
var ErrInvalidTravelRequest = errors.New("invalid travel request")

// TravelRequest is an immutable planning request.
type TravelRequest struct {
	Origin       string         `json:"origin"`
	Destination  string         `json:"destination"`
	StartDate    time.Time      `json:"start_date"`
	EndDate      time.Time      `json:"end_date"`
	NumTravelers int            `json:"num_travelers"`
	Preferences  map[string]any `json:"preferences,omitempty"`
	Budget       *float64       `json:"budget,omitempty"`
}

// Validate checks end_date >= start_date and a positive party size.
func (r TravelRequest) Validate() error {
	if r.Destination == "" {
		return errors.Join(ErrInvalidTravelRequest, errors.New("destination is required"))
	}
	if r.EndDate.Before(r.StartDate) {
		return errors.Join(ErrInvalidTravelRequest, errors.New("end_date must not be before start_date"))
	}
	if r.NumTravelers < 1 {
		return errors.Join(ErrInvalidTravelRequest, errors.New("num_travelers must be positive"))
	}
	return nil
}

// MaxTripDays bounds every trip length taken from a request.
const MaxTripDays = 30

// TripDays returns n limited to MaxTripDays, or def when n is not positive.
func TripDays(n, def int) int {
	if n <= 0 {
		n = def
	}
	return min(max(n, 1), MaxTripDays)
}

// Days is the trip length in whole days.
func (r TravelRequest) Days() int {
	return int(r.EndDate.Sub(r.StartDate).Hours() / 24)
}

// FlightOption is one bookable flight, live or synthesized.
type FlightOption struct {
	Airline             string   `json:"airline"`
	FlightNumber        string   `json:"flight_number"`
	Departure           string   `json:"departure"`
	Arrival             string   `json:"arrival"`
	DepartureTime       string   `json:"departure_time"`
	ArrivalTime         string   `json:"arrival_time"`
	Duration            string   `json:"duration"`
	Price               string   `json:"price"`
	Stops               int      `json:"stops"`
	TripType            TripType `json:"trip_type"`
	ReturnDepartureTime string   `json:"return_departure_time,omitempty"`
	ReturnArrivalTime   string   `json:"return_arrival_time,omitempty"`
	ReturnDuration      string   `json:"return_duration,omitempty"`
	ReturnStops         *int     `json:"return_stops,omitempty"`
	IsSynthetic         bool     `json:"is_synthetic"`
}

// HotelOption is one accommodation option.
type HotelOption struct {
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	Rating      string   `json:"rating"`
	Address     string   `json:"address"`
	Amenities   []string `json:"amenities"`
	IsSynthetic bool     `json:"is_synthetic"`
}

// WeatherInfo is the current weather at a location.
type WeatherInfo struct {
	Location    string `json:"location"`
	Date        string `json:"date,omitempty"`
	Temperature string `json:"temperature"`
	Description string `json:"description"`
	Humidity    string `json:"humidity,omitempty"`
	WindSpeed   string `json:"wind_speed,omitempty"`
	IsSynthetic bool   `json:"is_synthetic"`
}

// CurrencyConversion is the result of converting an amount.
type CurrencyConversion struct {
	OriginalAmount  float64        `json:"original_amount"`
	FromCurrency    string         `json:"from_currency"`
	ToCurrency      string         `json:"to_currency"`
	ConvertedAmount float64        `json:"converted_amount"`
	ExchangeRate    float64        `json:"exchange_rate"`
	Source          CurrencySource `json:"source"`
	Note            string         `json:"note,omitempty"`
	IsSynthetic     bool           `json:"is_synthetic"`
}

// TravelSuggestion is a validated destination suggestion. After
// normalization every field is populated.
type TravelSuggestion struct {
	Destination              string         `json:"destination"`
	Description              string         `json:"description"`
	BestTimeToVisit          string         `json:"best_time_to_visit"`
	EstimatedBudget          string         `json:"estimated_budget"`
	WeatherInfo              string         `json:"weather_info"`
	SafetyInfo               string         `json:"safety_info"`
	Duration                 int            `json:"duration"`
	Activities               []string       `json:"activities"`
	AccommodationSuggestions []string       `json:"accommodation_suggestions"`
	Transportation           []string       `json:"transportation"`
	LocalTips                []string       `json:"local_tips"`
	Flights                  []FlightOption `json:"flights,omitempty"`
	IsSynthetic              bool           `json:"is_synthetic"`
}

// Itinerary aggregates everything planned for one TravelRequest.
type Itinerary struct {
	TravelRequest TravelRequest     `json:"travel_request"`
	Flights       []FlightOption    `json:"flights"`
	Hotels        []HotelOption     `json:"hotels"`
	Weather       *WeatherInfo      `json:"weather,omitempty"`
	Activities    []Activity        `json:"activities"`
	TotalCost     float64           `json:"total_cost"`
	DailyPlans    map[string]string `json:"daily_plans,omitempty"`
}

// Activity is a priced thing to do at the destination.
type Activity struct {
	Name  string `json:"name"`
	Price string `json:"price,omitempty"`
}
