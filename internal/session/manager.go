package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/navigator/internal/domain"
)

const (
	DefaultHistoryDepth = 20
	DefaultMaxAge       = 24 * time.Hour
)

// Options configure a Manager.
type Options struct {
	// HistoryDepth is the number of messages kept per session.
	HistoryDepth int
	MaxAge       time.Duration
	Now          func() time.Time
}

// Manager resolves, updates and expires sessions on top of a Store.
type Manager struct {
	store  Store
	opts   Options
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a Manager.
func NewManager(store Store, opts Options, logger zerolog.Logger) *Manager {
	if opts.HistoryDepth <= 0 {
		opts.HistoryDepth = DefaultHistoryDepth
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{store: store, opts: opts, logger: logger, locks: make(map[string]*sessionLock)}
}

// NewID returns a fresh session id.
func NewID() string {
	return "sess_" + uuid.New().String()[:8]
}

// GetOrCreate returns the live session for id. A missing, unknown or
// expired id yields a brand-new session with a fresh id; expired sessions
// are deleted, never revived.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*domain.Session, bool, error) {
	if id != "" {
		s, err := m.store.Get(ctx, id)
		switch {
		case err == nil && !m.IsExpired(s):
			return s, false, nil
		case err == nil:
			m.logger.Info().Str("session_id", id).Msg("session expired, starting a new one")
			if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
				return nil, false, fmt.Errorf("failed to delete expired session: %w", err)
			}
		case !errors.Is(err, ErrNotFound):
			return nil, false, fmt.Errorf("failed to load session: %w", err)
		}
	}

	now := m.opts.Now()
	s := &domain.Session{
		SessionID:    NewID(),
		CreatedAt:    now,
		LastActivity: now,
		History:      []domain.Message{},
		Context:      map[string]any{},
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}
	return s, true, nil
}

// Get returns a live session or ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.IsExpired(s) {
		return nil, ErrNotFound
	}
	return s, nil
}

// Save persists s.
func (m *Manager) Save(ctx context.Context, s *domain.Session) error {
	return m.store.Save(ctx, s)
}

// Delete removes a session.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// AddMessage appends a turn, evicting the oldest messages beyond the
// history window, and refreshes the activity time.
func (m *Manager) AddMessage(s *domain.Session, role domain.Role, content string) {
	s.History = append(s.History, domain.Message{Role: role, Content: content})
	if over := len(s.History) - m.opts.HistoryDepth; over > 0 {
		s.History = append([]domain.Message(nil), s.History[over:]...)
	}
	s.LastActivity = m.opts.Now()
}

// Seed fills an empty session's history from a caller-supplied transcript,
// keeping only the newest messages that fit the window.
func (m *Manager) Seed(s *domain.Session, history []domain.Message) {
	if len(s.History) > 0 {
		return
	}
	for _, msg := range history {
		if msg.Content == "" || (msg.Role != domain.RoleUser && msg.Role != domain.RoleAssistant) {
			continue
		}
		m.AddMessage(s, msg.Role, msg.Content)
	}
}

// MergeContext shallow-merges ctx into the session context; later values win.
func (m *Manager) MergeContext(s *domain.Session, ctx map[string]any) {
	if s.Context == nil {
		s.Context = make(map[string]any, len(ctx))
	}
	for k, v := range ctx {
		s.Context[k] = v
	}
}

// IsExpired reports whether s is past the maximum age since its last activity.
func (m *Manager) IsExpired(s *domain.Session) bool {
	return m.opts.Now().Sub(s.LastActivity) > m.opts.MaxAge
}

// SweepExpired removes every expired session.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	n, err := m.store.Sweep(ctx, m.opts.Now().Add(-m.opts.MaxAge))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep sessions: %w", err)
	}
	if n > 0 {
		m.logger.Debug().Int("removed", n).Msg("swept expired sessions")
	}
	return n, nil
}

// Lock serializes turns of one session. The returned func releases it.
func (m *Manager) Lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}
