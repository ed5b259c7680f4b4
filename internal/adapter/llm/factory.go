package llm

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/navigator/internal/config"
)

// ModeMock selects the offline mock client.
const ModeMock = "MOCK"

// NewFromConfig builds the configured Model. It returns nil when neither a
// base URL nor mock mode is configured; callers then answer without an LLM.
func NewFromConfig(cfg config.LLMConfig, logger zerolog.Logger) *Model {
	var client LLMClient
	switch {
	case strings.EqualFold(cfg.Mode, ModeMock):
		logger.Info().Msg("llm mode MOCK, using mock client")
		client = NewMockClient()
	case cfg.BaseURL != "":
		client = NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
	default:
		logger.Warn().Msg("llm base_url not configured, answering from fallbacks")
		return nil
	}

	return NewModel(client, Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Retry: RetryPolicy{
			Attempts:         cfg.Retry.Attempts,
			Backoff:          cfg.Retry.Backoff,
			RetryTemperature: cfg.Retry.RetryTemperature,
		},
	}, logger)
}
