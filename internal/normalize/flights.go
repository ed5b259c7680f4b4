// Package normalize converts raw provider payloads into canonical results and
// synthesizes fallback data when a provider has nothing usable.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/xiaot623/gogo/navigator/internal/adapter/provider"
	"github.com/xiaot623/gogo/navigator/internal/domain"
)

const maxFlights = 10

// FlightQuery is the request context a flight result is normalized against.
type FlightQuery struct {
	Origin        string
	Destination   string
	DepartureDate time.Time
	// ReturnDate is zero for one-way searches.
	ReturnDate time.Time
}

// RoundTrip reports whether a return date was requested.
func (q FlightQuery) RoundTrip() bool {
	return !q.ReturnDate.IsZero()
}

type amadeusOffers struct {
	Data []struct {
		Itineraries []struct {
			Duration string `json:"duration"`
			Segments []struct {
				CarrierCode string `json:"carrierCode"`
				Number      string `json:"number"`
				Departure   struct {
					At string `json:"at"`
				} `json:"departure"`
				Arrival struct {
					At string `json:"at"`
				} `json:"arrival"`
			} `json:"segments"`
		} `json:"itineraries"`
		Price struct {
			Total    string `json:"total"`
			Currency string `json:"currency"`
		} `json:"price"`
	} `json:"data"`
	Dictionaries struct {
		Carriers map[string]string `json:"carriers"`
	} `json:"dictionaries"`
}

// Flights returns canonical flight options for a provider result. Failed,
// empty or unparsable results produce FallbackFlights.
func Flights(res provider.Result, q FlightQuery) []domain.FlightOption {
	var offers amadeusOffers
	if f := res.Decode(&offers); f != nil {
		return FallbackFlights(q)
	}

	var out []domain.FlightOption
	for _, offer := range offers.Data {
		if len(offer.Itineraries) == 0 || len(offer.Itineraries[0].Segments) == 0 {
			continue
		}
		outbound := offer.Itineraries[0]
		first, last := outbound.Segments[0], outbound.Segments[len(outbound.Segments)-1]

		airline := first.CarrierCode
		if name, ok := offers.Dictionaries.Carriers[airline]; ok && name != "" {
			airline = titleCase(name)
		}
		opt := domain.FlightOption{
			Airline:       orDefault(airline, "Unknown"),
			FlightNumber:  first.CarrierCode + first.Number,
			Departure:     q.Origin,
			Arrival:       q.Destination,
			DepartureTime: orDefault(first.Departure.At, "N/A"),
			ArrivalTime:   orDefault(last.Arrival.At, "N/A"),
			Duration:      isoDuration(outbound.Duration),
			Price:         "$" + orDefault(offer.Price.Total, "N/A"),
			Stops:         len(outbound.Segments) - 1,
			TripType:      domain.TripOneWay,
		}
		if len(offer.Itineraries) > 1 && len(offer.Itineraries[1].Segments) > 0 {
			ret := offer.Itineraries[1]
			stops := len(ret.Segments) - 1
			opt.TripType = domain.TripRoundTrip
			opt.ReturnDepartureTime = orDefault(ret.Segments[0].Departure.At, "N/A")
			opt.ReturnArrivalTime = orDefault(ret.Segments[len(ret.Segments)-1].Arrival.At, "N/A")
			opt.ReturnDuration = isoDuration(ret.Duration)
			opt.ReturnStops = &stops
		}
		out = append(out, opt)
		if len(out) == maxFlights {
			break
		}
	}
	if len(out) == 0 {
		return FallbackFlights(q)
	}
	return out
}

var (
	fallbackAirlines = []string{"Air India", "Emirates", "British Airways"}
	fallbackPrices   = []int{450, 650, 850}
)

// FallbackFlights synthesizes three deterministic options with 0, 1 and 2
// stops. Round-trip prices are 1.8x the one-way base.
func FallbackFlights(q FlightQuery) []domain.FlightOption {
	dep := q.DepartureDate
	if dep.IsZero() {
		dep = time.Now().AddDate(0, 0, 30)
	}
	tripType := domain.TripOneWay
	if q.RoundTrip() {
		tripType = domain.TripRoundTrip
	}

	out := make([]domain.FlightOption, 0, len(fallbackAirlines))
	for i, airline := range fallbackAirlines {
		price := fallbackPrices[i]
		if q.RoundTrip() {
			price = price * 18 / 10
		}
		depHour := 8 + 2*i
		opt := domain.FlightOption{
			Airline:       airline,
			FlightNumber:  fmt.Sprintf("%s%d", strings.ToUpper(airline[:2]), 1000+i),
			Departure:     q.Origin,
			Arrival:       q.Destination,
			DepartureTime: atClock(dep, depHour, 0),
			ArrivalTime:   atClock(dep, depHour+6+i, 30+15*i),
			Duration:      fmt.Sprintf("%dh %dm", 6+i, 30+15*i),
			Price:         fmt.Sprintf("$%d", price),
			Stops:         i,
			TripType:      tripType,
			IsSynthetic:   true,
		}
		if q.RoundTrip() {
			retHour := 10 + 2*i
			stops := i
			opt.ReturnDepartureTime = atClock(q.ReturnDate, retHour, 0)
			opt.ReturnArrivalTime = atClock(q.ReturnDate, retHour+6+i, 45+10*i)
			opt.ReturnDuration = fmt.Sprintf("%dh %dm", 6+i, 45+10*i)
			opt.ReturnStops = &stops
		}
		out = append(out, opt)
	}
	return out
}

// FlightOption re-validates an already canonical option.
func FlightOption(f domain.FlightOption) domain.FlightOption {
	f.Airline = orDefault(f.Airline, "Unknown")
	f.DepartureTime = orDefault(f.DepartureTime, "N/A")
	f.ArrivalTime = orDefault(f.ArrivalTime, "N/A")
	f.Duration = orDefault(f.Duration, "N/A")
	f.Price = orDefault(f.Price, "N/A")
	if f.Stops < 0 {
		f.Stops = 0
	}
	if f.TripType == "" {
		f.TripType = domain.TripOneWay
		if f.ReturnDepartureTime != "" {
			f.TripType = domain.TripRoundTrip
		}
	}
	return f
}

func atClock(day time.Time, hour, minute int) string {
	t := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
	return t.Format("2006-01-02T15:04:05")
}

// isoDuration renders "PT6H30M" as "6h 30m"; other strings pass through.
func isoDuration(s string) string {
	if s == "" {
		return "N/A"
	}
	if !strings.HasPrefix(s, "PT") {
		return s
	}
	d, err := time.ParseDuration(strings.ToLower(strings.TrimPrefix(s, "PT")))
	if err != nil {
		return s
	}
	h := int(d.Hours())
	m := int(d.Minutes()) - h*60
	return fmt.Sprintf("%dh %dm", h, m)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// titleCase upper-cases the first letter of each word and lower-cases the rest.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
