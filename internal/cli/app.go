package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/navigator/internal/adapter/llm"
	"github.com/xiaot623/gogo/navigator/internal/adapter/provider"
	"github.com/xiaot623/gogo/navigator/internal/agent"
	"github.com/xiaot623/gogo/navigator/internal/config"
	"github.com/xiaot623/gogo/navigator/internal/logging"
	"github.com/xiaot623/gogo/navigator/internal/repository"
	"github.com/xiaot623/gogo/navigator/internal/service"
	"github.com/xiaot623/gogo/navigator/internal/session"
	"github.com/xiaot623/gogo/navigator/internal/tools"
	"github.com/xiaot623/gogo/navigator/policy"
)

// app holds the wired components of a running navigator.
type app struct {
	service *service.Service
	closers []io.Closer
}

func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// buildApp wires storage, providers, the model, tools, policy and the
// reasoning loop into a Service.
func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}

	store, err := openStore(cfg.Storage, logging.Component(logger, "storage"))
	if err != nil {
		return nil, err
	}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	sessions := session.NewManager(store, session.Options{
		HistoryDepth: cfg.Session.HistoryDepth * 2,
		MaxAge:       cfg.Session.MaxAge,
	}, logging.Component(logger, "session"))

	model := llm.NewFromConfig(cfg.LLM, logging.Component(logger, "llm"))

	var planner tools.Completer
	if model != nil {
		planner = model
	}
	travel := tools.NewTravel(providers(cfg.Provider, logger), planner,
		tools.TravelOptions{Currency: cfg.Defaults.Currency}, logging.Component(logger, "tools"))
	registry := tools.NewRegistry()
	if err := travel.Register(registry); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	var (
		loop      service.Reasoner
		completer service.Completer
	)
	if model != nil {
		gate, err := newGate(ctx, cfg.Agent.PolicyFile)
		if err != nil {
			a.Close()
			return nil, err
		}
		loop = agent.New(model, registry, gate, agent.Config{
			MaxIterations: cfg.Agent.MaxIterations,
			Timeout:       cfg.Agent.Timeout,
			SystemPrompt:  service.SystemPrompt,
		}, logging.Component(logger, "agent"))
		completer = model
	}

	a.service = service.New(sessions, loop, completer, travel, registry, service.Options{
		DepartureCity: cfg.Defaults.DepartureCity,
		TripDuration:  cfg.Defaults.TripDuration,
		NumTravelers:  cfg.Defaults.NumTravelers,
	}, logging.Component(logger, "service"))
	return a, nil
}

func openStore(cfg config.StorageConfig, logger zerolog.Logger) (session.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		logger.Info().Msg("using in-memory session store")
		return session.NewMemoryStore(), nil
	case "sqlite":
		logger.Info().Str("database_url", cfg.DatabaseURL).Msg("using sqlite session store")
		store, err := repository.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q (valid: memory, sqlite)", cfg.Driver)
	}
}

// providers builds live adapters for every upstream with credentials and
// Unavailable stand-ins for the rest.
func providers(cfg config.ProviderConfig, logger zerolog.Logger) provider.Set {
	set := provider.UnavailableSet()
	httpClient := &http.Client{Timeout: cfg.Timeout}
	plog := logging.Component(logger, "provider")

	if cfg.AmadeusClientID != "" && cfg.AmadeusClientSecret != "" {
		opts := provider.AmadeusOptions{
			BaseURL:       cfg.AmadeusBaseURL,
			ClientID:      cfg.AmadeusClientID,
			ClientSecret:  cfg.AmadeusClientSecret,
			Timeout:       cfg.Timeout,
			RatePerSecond: cfg.RatePerSecond,
			HTTPClient:    httpClient,
		}
		tokens := provider.NewTokenSource(provider.AmadeusTokenURL(cfg.AmadeusBaseURL),
			cfg.AmadeusClientID, cfg.AmadeusClientSecret, httpClient)
		set.Flights = provider.NewFlightAdapter(opts, tokens)
		set.Hotels = provider.NewHotelAdapter(opts, tokens)
	} else {
		plog.Warn().Msg("amadeus credentials missing, flights and hotels use fallback data")
	}

	if cfg.WeatherAPIKey != "" {
		opts := provider.OpenWeatherOptions{
			BaseURL:       cfg.WeatherBaseURL,
			APIKey:        cfg.WeatherAPIKey,
			Timeout:       cfg.Timeout,
			RatePerSecond: cfg.RatePerSecond,
			HTTPClient:    httpClient,
		}
		set.Weather = provider.NewWeatherAdapter(opts)
		set.Geocode = provider.NewGeocodeAdapter(opts)
	} else {
		plog.Warn().Msg("weather api key missing, weather uses fallback data")
	}

	if cfg.CurrencyBaseURL != "" {
		set.Currency = provider.NewCurrencyAdapter(provider.CurrencyOptions{
			BaseURL:       cfg.CurrencyBaseURL,
			Timeout:       cfg.Timeout,
			RatePerSecond: cfg.RatePerSecond,
			HTTPClient:    httpClient,
		})
	}
	return set
}

func newGate(ctx context.Context, file string) (*policy.Engine, error) {
	engine, err := policy.NewEngineFromFile(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}
	return engine, nil
}
