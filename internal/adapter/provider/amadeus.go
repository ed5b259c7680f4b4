package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// AmadeusOptions configures the Amadeus-backed adapters.
type AmadeusOptions struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	Timeout       time.Duration
	RatePerSecond float64
	HTTPClient    *http.Client
}

// amadeus is the authenticated transport shared by the flight and hotel
// adapters. A 401 refreshes the token and retries exactly once.
type amadeus struct {
	baseURL string
	tokens  *TokenSource
	caller  *caller
}

func newAmadeus(opts AmadeusOptions, tokens *TokenSource) *amadeus {
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if tokens == nil {
		tokens = NewTokenSource(AmadeusTokenURL(base), opts.ClientID, opts.ClientSecret, opts.HTTPClient)
	}
	return &amadeus{
		baseURL: base,
		tokens:  tokens,
		caller:  newCaller(opts.HTTPClient, opts.Timeout, opts.RatePerSecond),
	}
}

func (a *amadeus) get(ctx context.Context, path string, query url.Values) Result {
	if !a.tokens.Configured() {
		return Fail(FailureUnconfigured, "amadeus credentials not configured")
	}

	token, err := a.tokens.AccessToken(ctx)
	if err != nil {
		return Fail(FailureAuth, "%v", err)
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequest(http.MethodGet, a.baseURL+path+"?"+query.Encode(), nil)
		if err != nil {
			return Fail(FailureMalformed, "failed to create request: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		status, body, err := a.caller.do(ctx, req)
		if err == nil && status == http.StatusUnauthorized && attempt == 0 {
			token, err = a.tokens.Refresh(ctx, token)
			if err != nil {
				return Fail(FailureAuth, "%v", err)
			}
			continue
		}
		return classify(status, body, err)
	}
}

// FlightAdapter searches Amadeus flight offers.
//
// Params: origin, destination (IATA codes), departure_date, return_date
// (YYYY-MM-DD), adults, travel_class, currency, max.
type FlightAdapter struct {
	api *amadeus
}

// NewFlightAdapter creates a flight adapter. tokens may be shared with the
// hotel adapter; nil creates a private TokenSource.
func NewFlightAdapter(opts AmadeusOptions, tokens *TokenSource) *FlightAdapter {
	return &FlightAdapter{api: newAmadeus(opts, tokens)}
}

func (f *FlightAdapter) Name() string { return "amadeus-flights" }

func (f *FlightAdapter) Search(ctx context.Context, params Params) Result {
	origin, destination, date := params.Str("origin"), params.Str("destination"), params.Str("departure_date")
	if origin == "" || destination == "" || date == "" {
		return Fail(FailureMalformed, "origin, destination and departure_date are required")
	}

	q := url.Values{}
	q.Set("originLocationCode", origin)
	q.Set("destinationLocationCode", destination)
	q.Set("departureDate", date)
	if ret := params.Str("return_date"); ret != "" {
		q.Set("returnDate", ret)
	}
	q.Set("adults", strconv.Itoa(params.Int("adults", 1)))
	if class := params.Str("travel_class"); class != "" {
		q.Set("travelClass", class)
	}
	if cur := params.Str("currency"); cur != "" {
		q.Set("currencyCode", cur)
	}
	q.Set("max", strconv.Itoa(params.Int("max", 5)))

	return f.api.get(ctx, "/v2/shopping/flight-offers", q)
}

// HotelAdapter lists Amadeus hotels for a city code.
//
// Params: city_code.
type HotelAdapter struct {
	api *amadeus
}

func NewHotelAdapter(opts AmadeusOptions, tokens *TokenSource) *HotelAdapter {
	return &HotelAdapter{api: newAmadeus(opts, tokens)}
}

func (h *HotelAdapter) Name() string { return "amadeus-hotels" }

func (h *HotelAdapter) Search(ctx context.Context, params Params) Result {
	city := params.Str("city_code")
	if city == "" {
		return Fail(FailureMalformed, "city_code is required")
	}
	q := url.Values{}
	q.Set("cityCode", city)
	return h.api.get(ctx, "/v1/reference-data/locations/hotels/by-city", q)
}

// AmadeusTokenURL is the token endpoint under an Amadeus base URL.
func AmadeusTokenURL(baseURL string) string {
	return fmt.Sprintf("%s/v1/security/oauth2/token", strings.TrimSuffix(baseURL, "/"))
}
