package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/xiaot623/gogo/navigator/internal/domain"
)

const (
	maxSuggestions     = 2
	maxActivities      = 5
	maxAccommodations  = 3
	maxTransportation  = 2
	maxLocalTips       = 3
	defaultTripLength  = 5
	unknownDestination = "Unknown"
)

var (
	defaultActivities     = []string{"Local exploration", "Cultural activities", "Food experiences", "Nature exploration", "Local markets"}
	defaultAccommodations = []string{"Recommended hotels", "Local guesthouses", "Budget options"}
	defaultTransportation = []string{"Public transportation", "Walking tours"}
	defaultLocalTips      = []string{"Research local customs", "Learn basic phrases", "Follow local guidelines"}
)

const (
	defaultBestTime = "Check local seasons"
	defaultBudget   = "Varies based on preferences"
	defaultWeather  = "Check local weather conditions"
	defaultSafety   = "Follow standard travel precautions"
)

// Suggestions validates raw suggestion objects (as decoded from model JSON)
// and returns at most two fully populated suggestions.
func Suggestions(raw []map[string]any, duration int) []domain.TravelSuggestion {
	out := make([]domain.TravelSuggestion, 0, maxSuggestions)
	for _, data := range raw {
		if data == nil {
			continue
		}
		out = append(out, SuggestionFromMap(data, duration))
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// SuggestionFromMap validates one raw suggestion object.
func SuggestionFromMap(data map[string]any, duration int) domain.TravelSuggestion {
	destination := str(data["destination"])
	if (destination == "" || destination == unknownDestination) && str(data["name"]) != "" {
		country := str(data["country"])
		if country == "" {
			country = "Location Unknown"
		}
		destination = str(data["name"]) + ", " + country
	}

	description := str(data["description"])
	if description == "" {
		description = str(data["Description"])
	}

	activities := list(data["activities"])
	if len(activities) == 0 {
		activities = titledItems(data["activitySuggestions"], "options", "title")
	}

	accommodations := list(data["accommodation_suggestions"])
	if len(accommodations) == 0 {
		accommodations = namedItems(data["accommodations"])
	}

	transportation := list(data["transportation"])
	if len(transportation) == 0 {
		transportation = transportRoutes(data["transportInformation"])
	}

	tips := list(data["local_tips"])
	if len(tips) == 0 {
		tips = titledItems(data["localTips"], "tips", "text")
	}

	return Suggestion(domain.TravelSuggestion{
		Destination:              destination,
		Description:              description,
		BestTimeToVisit:          str(data["best_time_to_visit"]),
		EstimatedBudget:          str(data["estimated_budget"]),
		WeatherInfo:              str(data["weather_info"]),
		SafetyInfo:               str(data["safety_info"]),
		Duration:                 parseDuration(data["duration"], duration),
		Activities:               activities,
		AccommodationSuggestions: accommodations,
		Transportation:           transportation,
		LocalTips:                tips,
	}, duration)
}

// Suggestion enforces the total-definedness of a suggestion: every text
// field non-empty, every list non-empty and within its cap. Applying it to
// its own output returns the same value.
func Suggestion(s domain.TravelSuggestion, duration int) domain.TravelSuggestion {
	s.Destination = orDefault(s.Destination, unknownDestination)
	if strings.TrimSpace(s.Description) == "" {
		s.Description = "Discover what " + s.Destination + " has to offer."
	}
	s.BestTimeToVisit = orDefault(s.BestTimeToVisit, defaultBestTime)
	s.EstimatedBudget = orDefault(s.EstimatedBudget, defaultBudget)
	s.WeatherInfo = orDefault(s.WeatherInfo, defaultWeather)
	s.SafetyInfo = orDefault(s.SafetyInfo, defaultSafety)
	if s.Duration <= 0 {
		s.Duration = positiveOr(duration, defaultTripLength)
	}
	s.Activities = listOrDefault(s.Activities, maxActivities, defaultActivities)
	s.AccommodationSuggestions = listOrDefault(s.AccommodationSuggestions, maxAccommodations, defaultAccommodations)
	s.Transportation = listOrDefault(s.Transportation, maxTransportation, defaultTransportation)
	s.LocalTips = listOrDefault(s.LocalTips, maxLocalTips, defaultLocalTips)
	if s.Flights != nil {
		flights := make([]domain.FlightOption, len(s.Flights))
		for i, f := range s.Flights {
			flights[i] = FlightOption(f)
		}
		s.Flights = flights
	}
	return s
}

// FallbackSuggestion builds a single suggestion shaped by the traveler's
// preferences, used when the model output cannot be salvaged.
func FallbackSuggestion(destination string, prefs domain.Preferences, duration int) domain.TravelSuggestion {
	activities := []string{
		"Local cultural experiences",
		"Traditional food tasting",
		"Historical site visits",
		"Nature exploration",
		"Local market tours",
	}
	if prefs.TravelStyle != "" {
		activities = []string{
			titleCase(prefs.TravelStyle) + " activities in the area",
			"Local cultural experiences",
			"Food experiences suitable for your dietary needs",
			"Nature and outdoor activities",
			"Local market exploration",
		}
	}

	accommodation := orDefault(prefs.AccommodationType, "Hotel")
	dietary := "local"
	if len(prefs.DietaryRestrictions) > 0 {
		dietary = strings.Join(prefs.DietaryRestrictions, "-")
	}
	style := orDefault(prefs.TravelStyle, "preferred")
	budget := orDefault(string(prefs.BudgetRange), "moderate")

	s := Suggestion(domain.TravelSuggestion{
		Destination:     destination,
		Description:     fmt.Sprintf("A destination selected to match your %s travel style and %s budget.", style, budget),
		BestTimeToVisit: "Please check seasonal information",
		EstimatedBudget: fmt.Sprintf("Within %s range", budget),
		WeatherInfo:     "Research current weather patterns",
		SafetyInfo:      "Follow standard travel safety guidelines",
		Duration:        duration,
		Activities:      activities,
		AccommodationSuggestions: []string{
			accommodation + " in central location",
			"Budget-friendly " + strings.ToLower(accommodation),
			"Local guesthouses with good reviews",
		},
		Transportation: []string{"Public transportation with route guidance", "Walking tours in safe areas"},
		LocalTips: []string{
			fmt.Sprintf("Find %s friendly restaurants", dietary),
			"Learn basic local phrases",
			"Research local customs and traditions",
		},
	}, duration)
	s.IsSynthetic = true
	return s
}

// FallbackSuggestions returns a main and an alternative suggestion around a
// destination.
func FallbackSuggestions(destination string, duration int) []domain.TravelSuggestion {
	destination = orDefault(destination, "your destination")
	duration = positiveOr(duration, defaultTripLength)
	alt := duration - 1
	if alt < 2 {
		alt = 2
	}
	out := []domain.TravelSuggestion{
		{
			Destination:     destination,
			Description:     fmt.Sprintf("Explore the vibrant culture and attractions of %s. A perfect destination for travelers seeking authentic experiences.", destination),
			BestTimeToVisit: "Check local weather patterns for optimal timing",
			EstimatedBudget: "$50-150 per day depending on preferences",
			Duration:        duration,
			Activities: []string{
				"Visit historic landmarks and cultural sites",
				"Explore local markets and shopping districts",
				"Try authentic local cuisine and restaurants",
				"Take guided tours of major attractions",
				"Experience local nightlife and entertainment",
			},
			AccommodationSuggestions: []string{"Budget hostels ($20-40/night)", "Mid-range hotels ($60-120/night)", "Luxury resorts ($150-300/night)"},
			Transportation:           []string{"Public transportation (buses, trains)", "Taxi services and ride-sharing apps"},
			LocalTips:                []string{"Learn basic local phrases", "Research cultural customs and etiquette", "Keep copies of important documents"},
			WeatherInfo:              "Check current weather forecasts before traveling",
			SafetyInfo:               "Follow standard travel safety precautions",
		},
		{
			Destination:     "Alternative destinations in " + destination,
			Description:     fmt.Sprintf("Discover nearby attractions and hidden gems around %s. Perfect for extending your trip or exploring off-the-beaten-path destinations.", destination),
			BestTimeToVisit: "Similar climate to main destination",
			EstimatedBudget: "$40-120 per day for local experiences",
			Duration:        alt,
			Activities: []string{
				"Day trips to nearby towns and villages",
				"Nature walks and outdoor activities",
				"Local festivals and cultural events",
				"Photography tours of scenic locations",
				"Visit local museums and galleries",
			},
			AccommodationSuggestions: []string{"Local guesthouses ($25-50/night)", "Boutique hotels ($70-140/night)", "Eco-lodges ($100-200/night)"},
			Transportation:           []string{"Rental cars for flexibility", "Local bus services"},
			LocalTips:                []string{"Book accommodations in advance", "Try local specialties and street food", "Respect local environment and wildlife"},
			WeatherInfo:              "Generally similar to main destination weather",
			SafetyInfo:               "Check local conditions and travel advisories",
		},
	}
	for i := range out {
		out[i] = Suggestion(out[i], duration)
		out[i].IsSynthetic = true
	}
	return out
}

// parseDuration extracts the digits of a duration-like value ("7 days" -> 7).
func parseDuration(v any, def int) int {
	def = positiveOr(def, defaultTripLength)
	switch d := v.(type) {
	case float64:
		if d >= 1 {
			return int(d)
		}
		return def
	case int:
		return positiveOr(d, def)
	case string:
		var digits strings.Builder
		for _, r := range d {
			if unicode.IsDigit(r) {
				digits.WriteRune(r)
			}
		}
		if n, err := strconv.Atoi(digits.String()); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func positiveOr(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// list coerces a single string or a flat list into a string slice.
func list(v any) []string {
	switch l := v.(type) {
	case string:
		return compact([]string{l})
	case []string:
		return compact(l)
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			out = append(out, str(item))
		}
		return compact(out)
	}
	return nil
}

// titledItems reads either a flat list or {container: [{field: ...}]}.
func titledItems(v any, container, field string) []string {
	if l := list(v); len(l) > 0 {
		return l
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	items, _ := m[container].([]any)
	var out []string
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, str(obj[field]))
		}
	}
	return compact(out)
}

// namedItems reads [{name: ...}] or {name: ...}; items without a name count as "Hotel".
func namedItems(v any) []string {
	switch a := v.(type) {
	case []any:
		var out []string
		for _, item := range a {
			switch it := item.(type) {
			case map[string]any:
				out = append(out, orDefault(str(it["name"]), "Hotel"))
			case string:
				out = append(out, it)
			}
		}
		return compact(out)
	case map[string]any:
		return []string{orDefault(str(a["name"]), "Hotel")}
	}
	return list(v)
}

// transportRoutes reads {mode: [{routeName: ...}] | other}.
func transportRoutes(v any) []string {
	m, ok := v.(map[string]any)
	if !ok {
		return list(v)
	}
	modes := make([]string, 0, len(m))
	for mode := range m {
		modes = append(modes, mode)
	}
	sort.Strings(modes)

	var out []string
	for _, mode := range modes {
		if routes, ok := m[mode].([]any); ok {
			for _, r := range routes {
				name := "Local route"
				if obj, ok := r.(map[string]any); ok && str(obj["routeName"]) != "" {
					name = str(obj["routeName"])
				}
				out = append(out, mode+": "+name)
			}
			continue
		}
		out = append(out, mode+": Local routes available")
	}
	return out
}

func listOrDefault(items []string, max int, def []string) []string {
	items = capList(compact(items), max)
	if len(items) == 0 {
		return append([]string(nil), def...)
	}
	return items
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func capList(items []string, max int) []string {
	if len(items) > max {
		return items[:max]
	}
	return items
}
