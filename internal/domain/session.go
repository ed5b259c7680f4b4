package domain

import "time"

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is the per-conversation state owned by the session manager.
type Session struct {
	SessionID    string         `json:"session_id"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
	History      []Message      `json:"conversation_history"`
	Context      map[string]any `json:"context"`
}

// Clone returns a deep-enough copy for handing out of a store: the history
// slice and the top-level context map are copied.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.History = append([]Message(nil), s.History...)
	cp.Context = make(map[string]any, len(s.Context))
	for k, v := range s.Context {
		cp.Context[k] = v
	}
	return &cp
}
