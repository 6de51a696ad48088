package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/deltawind/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store on the given GCP project.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) messagesCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("messages")
}

func (s *Store) messageDoc(sessionID domain.SessionID, msgID domain.MessageID) *firestore.DocumentRef {
	return s.messagesCol(sessionID).Doc(string(msgID))
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

// sessionDoc holds everything but the messages. Epoch is bumped on reset;
// messages of older epochs are ignored on read.
type sessionDoc struct {
	CreatedAt     time.Time         `firestore:"created_at"`
	UpdatedAt     time.Time         `firestore:"updated_at"`
	ActivePersona string            `firestore:"active_persona"`
	View          string            `firestore:"view"`
	Phase         string            `firestore:"phase"`
	Briefings     map[string]string `firestore:"briefings"`
	Counts        map[string]int    `firestore:"counts"`
	Epoch         int               `firestore:"epoch"`
}

type messageDoc struct {
	Persona   string    `firestore:"persona"`
	Author    string    `firestore:"author"`
	Text      string    `firestore:"text"`
	CreatedAt time.Time `firestore:"created_at"`
	Seq       int       `firestore:"seq"`
	Epoch     int       `firestore:"epoch"`
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, state *domain.SessionState) error {
	doc, pending := plan(nil, state)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(s.sessionDoc(state.ID), doc); err != nil {
			return err
		}
		return s.writeMessages(tx, state.ID, pending)
	})
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("%w: %s", domain.ErrSessionExists, state.ID)
	}
	if err != nil {
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	return nil
}

// SaveSession writes the session document and only the messages appended
// since the last save.
func (s *Store) SaveSession(ctx context.Context, state *domain.SessionState) error {
	ref := s.sessionDoc(state.ID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var stored sessionDoc
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("decode sessionDoc: %w", err)
		}

		doc, pending := plan(&stored, state)
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		return s.writeMessages(tx, state.ID, pending)
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, state.ID)
	}
	if err != nil {
		return fmt.Errorf("firestore SaveSession: %w", err)
	}
	return nil
}

func (s *Store) writeMessages(tx *firestore.Transaction, id domain.SessionID, pending []pendingMessage) error {
	for _, p := range pending {
		if err := tx.Set(s.messageDoc(id, p.id), p.doc); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.SessionState, error) {
	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}

	// Sorted in memory so the query needs no composite index.
	iter := s.messagesCol(id).Where("epoch", "==", doc.Epoch).Documents(ctx)
	defer iter.Stop()

	var msgs []storedMessage
	for {
		msnap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore GetSession messages: %w", err)
		}

		var m messageDoc
		if err := msnap.DataTo(&m); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}
		msgs = append(msgs, storedMessage{id: msnap.Ref.ID, doc: m})
	}

	return toState(id, doc, msgs), nil
}

// ─────────────────────────────────────────
// Mapping
// ─────────────────────────────────────────

type pendingMessage struct {
	id  domain.MessageID
	doc messageDoc
}

type storedMessage struct {
	id  string
	doc messageDoc
}

// plan builds the session document for state and the messages to write,
// given what is stored. A conversation shorter than its stored count means
// the session was reset: the epoch moves on and everything is rewritten.
func plan(stored *sessionDoc, state *domain.SessionState) (sessionDoc, []pendingMessage) {
	doc := sessionDoc{
		CreatedAt:     state.CreatedAt,
		UpdatedAt:     state.UpdatedAt,
		ActivePersona: string(state.ActivePersona),
		View:          string(state.View),
		Phase:         string(state.Phase),
		Briefings:     make(map[string]string, len(state.Briefings)),
		Counts:        make(map[string]int, len(state.Conversations)),
	}
	for k, v := range state.Briefings {
		doc.Briefings[string(k)] = v
	}

	from := map[string]int{}
	if stored != nil {
		doc.Epoch = stored.Epoch
		from = stored.Counts
		for persona, n := range stored.Counts {
			if state.Conversation(domain.PersonaID(persona)).Len() < n {
				doc.Epoch++
				from = map[string]int{}
				break
			}
		}
	}

	var pending []pendingMessage
	for persona, conv := range state.Conversations {
		doc.Counts[string(persona)] = conv.Len()
		for i := from[string(persona)]; i < conv.Len(); i++ {
			m := conv.Messages[i]
			pending = append(pending, pendingMessage{
				id: m.ID,
				doc: messageDoc{
					Persona:   string(persona),
					Author:    string(m.Author),
					Text:      m.Text,
					CreatedAt: m.CreatedAt,
					Seq:       i,
					Epoch:     doc.Epoch,
				},
			})
		}
	}
	return doc, pending
}

func toState(id domain.SessionID, doc sessionDoc, msgs []storedMessage) *domain.SessionState {
	state := domain.NewSessionState(id, doc.CreatedAt)
	state.UpdatedAt = doc.UpdatedAt
	state.ActivePersona = domain.PersonaID(doc.ActivePersona)
	state.View = domain.View(doc.View)
	state.Phase = domain.Phase(doc.Phase)
	for k, v := range doc.Briefings {
		state.Briefings[domain.BriefingKind(k)] = v
	}
	for persona := range doc.Counts {
		state.OpenConversation(domain.PersonaID(persona))
	}

	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].doc.Persona != msgs[j].doc.Persona {
			return msgs[i].doc.Persona < msgs[j].doc.Persona
		}
		return msgs[i].doc.Seq < msgs[j].doc.Seq
	})
	for _, m := range msgs {
		conv, _ := state.OpenConversation(domain.PersonaID(m.doc.Persona))
		conv.Append(&domain.Message{
			ID:        domain.MessageID(m.id),
			Persona:   domain.PersonaID(m.doc.Persona),
			Author:    domain.Role(m.doc.Author),
			Text:      m.doc.Text,
			CreatedAt: m.doc.CreatedAt,
		})
	}
	return state
}
