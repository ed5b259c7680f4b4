package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OpenWeatherOptions configures the weather and geocoding adapters.
type OpenWeatherOptions struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
	HTTPClient    *http.Client
}

type openWeather struct {
	baseURL string
	apiKey  string
	caller  *caller
}

func newOpenWeather(opts OpenWeatherOptions) *openWeather {
	return &openWeather{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		caller:  newCaller(opts.HTTPClient, opts.Timeout, opts.RatePerSecond),
	}
}

func (o *openWeather) get(ctx context.Context, path string, q url.Values) Result {
	if o.apiKey == "" {
		return Fail(FailureUnconfigured, "weather api key not configured")
	}
	q.Set("appid", o.apiKey)
	req, err := http.NewRequest(http.MethodGet, o.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return Fail(FailureMalformed, "failed to create request: %v", err)
	}
	return classify(o.caller.do(ctx, req))
}

// WeatherAdapter fetches current conditions. Params: location.
type WeatherAdapter struct {
	api *openWeather
}

func NewWeatherAdapter(opts OpenWeatherOptions) *WeatherAdapter {
	return &WeatherAdapter{api: newOpenWeather(opts)}
}

func (w *WeatherAdapter) Name() string { return "openweather" }

func (w *WeatherAdapter) Search(ctx context.Context, params Params) Result {
	q := url.Values{}
	q.Set("units", "metric")
	if lat, lon := params.Str("lat"), params.Str("lon"); lat != "" && lon != "" {
		q.Set("lat", lat)
		q.Set("lon", lon)
		return w.api.get(ctx, "/data/2.5/weather", q)
	}
	location := params.Str("location")
	if location == "" {
		return Fail(FailureMalformed, "location is required")
	}
	q.Set("q", location)
	return w.api.get(ctx, "/data/2.5/weather", q)
}

// GeocodeAdapter resolves a place name to coordinates. Params: location.
type GeocodeAdapter struct {
	api *openWeather
}

func NewGeocodeAdapter(opts OpenWeatherOptions) *GeocodeAdapter {
	return &GeocodeAdapter{api: newOpenWeather(opts)}
}

func (g *GeocodeAdapter) Name() string { return "openweather-geocode" }

func (g *GeocodeAdapter) Search(ctx context.Context, params Params) Result {
	location := params.Str("location")
	if location == "" {
		return Fail(FailureMalformed, "location is required")
	}
	q := url.Values{}
	q.Set("q", location)
	q.Set("limit", "1")
	res := g.api.get(ctx, "/geo/1.0/direct", q)
	if res.OK() && string(res.Payload) == "[]" {
		return Fail(FailureEmpty, "no match for %q", location)
	}
	return res
}
