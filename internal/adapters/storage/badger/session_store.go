// Package badger persists sessions in an embedded BadgerDB, one JSON record
// per session under "session:{id}".
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/PabloGalante/deltawind/internal/domain"
)

const keyPrefix = "session:"

type SessionStore struct {
	db  *badger.DB
	log *slog.Logger
}

// Open opens (or creates) a database directory with quiet logging.
func Open(path string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return db, nil
}

func NewSessionStore(db *badger.DB, log *slog.Logger) *SessionStore {
	return &SessionStore{db: db, log: log}
}

type messageRecord struct {
	ID        string    `json:"id"`
	Persona   string    `json:"persona"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionRecord struct {
	ID            string                     `json:"id"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
	ActivePersona string                     `json:"active_persona,omitempty"`
	View          string                     `json:"view"`
	Phase         string                     `json:"phase"`
	Conversations map[string][]messageRecord `json:"conversations"`
	Briefings     map[string]string          `json:"briefings,omitempty"`
}

func key(id domain.SessionID) []byte {
	return []byte(keyPrefix + string(id))
}

func (s *SessionStore) CreateSession(_ context.Context, state *domain.SessionState) error {
	value, err := json.Marshal(fromState(state))
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key(state.ID))
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", domain.ErrSessionExists, state.ID)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key(state.ID), value)
	})
}

func (s *SessionStore) SaveSession(_ context.Context, state *domain.SessionState) error {
	value, err := json.Marshal(fromState(state))
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(state.ID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, state.ID)
			}
			return err
		}
		return txn.Set(key(state.ID), value)
	})
}

func (s *SessionStore) GetSession(_ context.Context, id domain.SessionID) (*domain.SessionState, error) {
	var rec sessionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	if err != nil {
		s.log.Error("failed to read session", "session_id", id, "error", err)
		return nil, err
	}
	return rec.toState(), nil
}

func fromState(state *domain.SessionState) sessionRecord {
	rec := sessionRecord{
		ID:            string(state.ID),
		CreatedAt:     state.CreatedAt,
		UpdatedAt:     state.UpdatedAt,
		ActivePersona: string(state.ActivePersona),
		View:          string(state.View),
		Phase:         string(state.Phase),
		Conversations: make(map[string][]messageRecord, len(state.Conversations)),
		Briefings:     make(map[string]string, len(state.Briefings)),
	}
	for id, conv := range state.Conversations {
		msgs := make([]messageRecord, 0, conv.Len())
		for _, m := range conv.Messages {
			msgs = append(msgs, messageRecord{
				ID:        string(m.ID),
				Persona:   string(m.Persona),
				Author:    string(m.Author),
				Text:      m.Text,
				CreatedAt: m.CreatedAt,
			})
		}
		rec.Conversations[string(id)] = msgs
	}
	for k, v := range state.Briefings {
		rec.Briefings[string(k)] = v
	}
	return rec
}

func (r sessionRecord) toState() *domain.SessionState {
	state := domain.NewSessionState(domain.SessionID(r.ID), r.CreatedAt)
	state.UpdatedAt = r.UpdatedAt
	state.ActivePersona = domain.PersonaID(r.ActivePersona)
	state.View = domain.View(r.View)
	state.Phase = domain.Phase(r.Phase)
	for id, msgs := range r.Conversations {
		conv, _ := state.OpenConversation(domain.PersonaID(id))
		for _, m := range msgs {
			conv.Append(&domain.Message{
				ID:        domain.MessageID(m.ID),
				Persona:   domain.PersonaID(m.Persona),
				Author:    domain.Role(m.Author),
				Text:      m.Text,
				CreatedAt: m.CreatedAt,
			})
		}
	}
	for k, v := range r.Briefings {
		state.Briefings[domain.BriefingKind(k)] = v
	}
	return state
}
