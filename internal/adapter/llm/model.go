package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrEmptyCompletion is returned when every attempt produced no text.
var ErrEmptyCompletion = errors.New("llm returned an empty completion")

// Reinforcement is appended to the conversation after an empty completion.
const Reinforcement = "Your previous reply was empty. Respond now, following the required format exactly."

// RetryPolicy describes how failed or empty completions are retried.
type RetryPolicy struct {
	// Attempts is the total number of calls, including the first.
	Attempts int
	Backoff  time.Duration
	// RetryTemperature replaces the sampling temperature on retries.
	// Zero keeps the base temperature.
	RetryTemperature float64
}

// DefaultRetryPolicy is used when none is configured.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 500 * time.Millisecond, RetryTemperature: 0.3}

// Options configure a Model.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Retry       RetryPolicy
}

// Model wraps an LLMClient with sampling defaults and a retry policy.
type Model struct {
	client LLMClient
	opts   Options
	logger zerolog.Logger
}

// NewModel creates a Model. Zero options take the defaults used by the
// planner: temperature 0.7, 2000 max tokens.
func NewModel(client LLMClient, opts Options, logger zerolog.Logger) *Model {
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 2000
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = DefaultRetryPolicy
	}
	return &Model{client: client, opts: opts, logger: logger}
}

// Generate returns the assistant reply to messages.
//
// Transport errors and temporary status codes are retried with backoff. An
// empty completion is retried with the reinforcement prompt appended.
func (m *Model) Generate(ctx context.Context, messages []ChatMessage) (string, error) {
	msgs := append([]ChatMessage(nil), messages...)
	var lastErr error

	for attempt := 0; attempt < m.opts.Retry.Attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, m.opts.Retry.Backoff*time.Duration(attempt)); err != nil {
				return "", err
			}
		}

		temperature := m.opts.Temperature
		if attempt > 0 && m.opts.Retry.RetryTemperature > 0 {
			temperature = m.opts.Retry.RetryTemperature
		}
		maxTokens := m.opts.MaxTokens

		resp, err := m.client.CreateChatCompletion(ctx, &ChatCompletionRequest{
			Model:       m.opts.Model,
			Messages:    msgs,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		})
		if err != nil {
			if !retryable(err) || ctx.Err() != nil {
				return "", err
			}
			lastErr = err
			m.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("llm call failed, retrying")
			continue
		}

		if text := strings.TrimSpace(resp.Content()); text != "" {
			return text, nil
		}
		lastErr = ErrEmptyCompletion
		m.logger.Warn().Int("attempt", attempt+1).Msg("llm returned empty completion")
		msgs = append(msgs, ChatMessage{Role: "user", Content: Reinforcement})
	}
	return "", fmt.Errorf("llm failed after %d attempts: %w", m.opts.Retry.Attempts, lastErr)
}

// Complete is a single-turn convenience over Generate.
func (m *Model) Complete(ctx context.Context, system, prompt string) (string, error) {
	var msgs []ChatMessage
	if system != "" {
		msgs = append(msgs, ChatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, ChatMessage{Role: "user", Content: prompt})
	return m.Generate(ctx, msgs)
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
