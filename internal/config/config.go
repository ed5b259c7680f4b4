// Package config provides configuration for the travel planner.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds the navigator configuration.
type Config struct {
	// Server settings
	HTTPPort int `mapstructure:"http_port"`

	Storage   StorageConfig   `mapstructure:"storage"`
	Session   SessionConfig   `mapstructure:"session"`
	Agent     AgentConfig     `mapstructure:"agent"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

// StorageConfig selects where sessions live.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"` // memory or sqlite
	DatabaseURL string `mapstructure:"database_url"`
}

type SessionConfig struct {
	// HistoryDepth counts exchanges; each keeps a user and an assistant message.
	HistoryDepth  int           `mapstructure:"history_depth"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxAge       time.Duration `mapstructure:"max_age"`
}

// AgentConfig bounds the reasoning loop.
type AgentConfig struct {
	MaxIterations int           `mapstructure:"max_iterations"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// PolicyFile replaces the built-in tool policy with a Rego module.
	PolicyFile string `mapstructure:"policy_file"`
}

// LLMConfig points at an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Mode        string        `mapstructure:"mode"` // "" or MOCK
	Retry       RetryConfig   `mapstructure:"retry"`
}

// RetryConfig is the declarative retry policy applied to LLM calls.
type RetryConfig struct {
	Attempts         int           `mapstructure:"attempts"`
	Backoff          time.Duration `mapstructure:"backoff"`
	RetryTemperature float64       `mapstructure:"retry_temperature"`
}

// ProviderConfig carries upstream credentials and call limits.
type ProviderConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`

	AmadeusBaseURL      string `mapstructure:"amadeus_base_url"`
	AmadeusClientID     string `mapstructure:"amadeus_client_id"`
	AmadeusClientSecret string `mapstructure:"amadeus_client_secret"`

	WeatherBaseURL string `mapstructure:"weather_base_url"`
	WeatherAPIKey  string `mapstructure:"weather_api_key"`

	CurrencyBaseURL string `mapstructure:"currency_base_url"`
}

// DefaultsConfig are the market defaults used when the user says nothing.
type DefaultsConfig struct {
	Market        string `mapstructure:"market"`
	Currency      string `mapstructure:"currency"`
	Language      string `mapstructure:"language"`
	DepartureCity string `mapstructure:"departure_city"`
	TripDuration  int    `mapstructure:"trip_duration"`
	NumTravelers  int    `mapstructure:"num_travelers"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

type WebSocketConfig struct {
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
}

// New returns a viper instance with defaults and NAVIGATOR_* env binding.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("NAVIGATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8000)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.database_url", "file:navigator.db?cache=shared&mode=rwc")

	v.SetDefault("session.history_depth", 10)
	v.SetDefault("session.max_age", 24*time.Hour)
	v.SetDefault("session.sweep_interval", 5*time.Minute)

	v.SetDefault("agent.max_iterations", 8)
	v.SetDefault("agent.timeout", 90*time.Second)
	v.SetDefault("agent.policy_file", "")

	v.SetDefault("llm.base_url", "https://openrouter.ai/api")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "meta-llama/llama-3.3-8b-instruct:free")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.mode", "")
	v.SetDefault("llm.retry.attempts", 2)
	v.SetDefault("llm.retry.backoff", 500*time.Millisecond)
	v.SetDefault("llm.retry.retry_temperature", 0.3)

	v.SetDefault("provider.timeout", 25*time.Second)
	v.SetDefault("provider.rate_per_second", 5.0)
	v.SetDefault("provider.amadeus_base_url", "https://test.api.amadeus.com")
	v.SetDefault("provider.amadeus_client_id", "")
	v.SetDefault("provider.amadeus_client_secret", "")
	v.SetDefault("provider.weather_base_url", "https://api.openweathermap.org")
	v.SetDefault("provider.weather_api_key", "")
	v.SetDefault("provider.currency_base_url", "https://api.exchangerate-api.com/v4/latest")

	v.SetDefault("defaults.market", "US")
	v.SetDefault("defaults.currency", "USD")
	v.SetDefault("defaults.language", "en-US")
	v.SetDefault("defaults.departure_city", "")
	v.SetDefault("defaults.trip_duration", 5)
	v.SetDefault("defaults.num_travelers", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/navigator.log")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dir", "logs")

	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("websocket.read_timeout", 60*time.Second)
	v.SetDefault("websocket.write_timeout", 10*time.Second)
	v.SetDefault("websocket.ping_interval", 30*time.Second)
}

// Load reads the optional config file and unmarshals everything into a Config.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}
	return Unmarshal(v)
}

// Unmarshal decodes the current viper state.
func Unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Session.HistoryDepth <= 0 {
		return nil, fmt.Errorf("session.history_depth must be positive, got %d", cfg.Session.HistoryDepth)
	}
	if cfg.Agent.MaxIterations <= 0 {
		return nil, fmt.Errorf("agent.max_iterations must be positive, got %d", cfg.Agent.MaxIterations)
	}
	return &cfg, nil
}

// Watch re-reads the config file on change and hands the new Config to fn.
// Decode failures are reported through onErr and leave the old config in place.
func Watch(v *viper.Viper, fn func(*Config), onErr func(error)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Unmarshal(v)
		if err != nil {
			onErr(err)
			return
		}
		fn(cfg)
	})
	v.WatchConfig()
}
