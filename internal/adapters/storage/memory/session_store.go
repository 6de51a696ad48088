package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/PabloGalante/deltawind/internal/domain"
)

// SessionStore keeps sessions in process memory. It stores and hands out
// copies, so callers never share state through it.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.SessionState
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.SessionID]*domain.SessionState),
	}
}

func (s *SessionStore) CreateSession(_ context.Context, state *domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[state.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrSessionExists, state.ID)
	}

	s.sessions[state.ID] = state.Clone()
	return nil
}

func (s *SessionStore) SaveSession(_ context.Context, state *domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[state.ID]; !exists {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, state.ID)
	}

	s.sessions[state.ID] = state.Clone()
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, id domain.SessionID) (*domain.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	return state.Clone(), nil
}
