package domain

import "context"

// CompletionBackend is the external text-completion capability: it takes an
// ordered list of role-tagged blocks and returns one reply. Backends return
// errors built with Transient or Fatal so callers can decide on retries.
type CompletionBackend interface {
	Complete(ctx context.Context, model string, messages []ChatMessage) (string, error)
}

// SessionStore defines session's persistence.
// GetSession returns ErrSessionNotFound for unknown ids.
type SessionStore interface {
	CreateSession(ctx context.Context, state *SessionState) error
	SaveSession(ctx context.Context, state *SessionState) error
	GetSession(ctx context.Context, id SessionID) (*SessionState, error)
}
