// Package service is the agent orchestrator: it ties sessions, intent
// classification, the reasoning loop and deterministic fallbacks together.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/navigator/internal/agent"
	"github.com/xiaot623/gogo/navigator/internal/domain"
	"github.com/xiaot623/gogo/navigator/internal/session"
	"github.com/xiaot623/gogo/navigator/internal/tools"
)

// Reasoner runs the reasoning loop for one turn.
type Reasoner interface {
	Run(ctx context.Context, in agent.Input) (agent.Outcome, error)
}

// Completer produces free text; nil means no model is configured.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Options carry defaults applied when a request leaves them out.
type Options struct {
	DepartureCity string
	TripDuration  int
	NumTravelers  int
	Now           func() time.Time
}

type Service struct {
	sessions *session.Manager
	loop     Reasoner
	model    Completer
	travel   *tools.Travel
	registry *tools.Registry
	opts     Options
	logger   zerolog.Logger
}

// New creates the orchestrator. loop and model may be nil, in which case
// every answer comes from the deterministic fallbacks.
func New(sessions *session.Manager, loop Reasoner, model Completer, travel *tools.Travel, registry *tools.Registry, opts Options, logger zerolog.Logger) *Service {
	if opts.TripDuration <= 0 {
		opts.TripDuration = 5
	}
	if opts.NumTravelers <= 0 {
		opts.NumTravelers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		sessions: sessions,
		loop:     loop,
		model:    model,
		travel:   travel,
		registry: registry,
		opts:     opts,
		logger:   logger,
	}
}

// Sessions exposes the session manager to transports.
func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

// Tools lists the registered tools.
func (s *Service) Tools() []tools.Tool {
	names := s.registry.Names()
	out := make([]tools.Tool, 0, len(names))
	for _, name := range names {
		if t, ok := s.registry.Get(name); ok {
			out = append(out, t)
		}
	}
	return out
}

// OpenSession resolves id to a live, stored session and returns its id. An
// empty, unknown or expired id starts a new session.
func (s *Service) OpenSession(ctx context.Context, id string) (string, error) {
	if id != "" {
		unlock := s.sessions.Lock(id)
		defer unlock()
	}
	sess, created, err := s.sessions.GetOrCreate(ctx, id)
	if err != nil {
		return "", err
	}
	if created {
		s.logger.Debug().Str("session_id", sess.SessionID).Str("requested", id).Msg("session opened")
	}
	return sess.SessionID, nil
}

// Conversation returns a live session or session.ErrNotFound.
func (s *Service) Conversation(ctx context.Context, id string) (*domain.Session, error) {
	return s.sessions.Get(ctx, id)
}

// DeleteConversation removes a session or returns session.ErrNotFound.
func (s *Service) DeleteConversation(ctx context.Context, id string) error {
	unlock := s.sessions.Lock(id)
	defer unlock()
	return s.sessions.Delete(ctx, id)
}
