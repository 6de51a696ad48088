package conversation

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/deltawind/internal/app/completion"
	"github.com/PabloGalante/deltawind/internal/app/export"
	"github.com/PabloGalante/deltawind/internal/app/prompt"
	"github.com/PabloGalante/deltawind/internal/casestudy"
	"github.com/PabloGalante/deltawind/internal/domain"
	"github.com/PabloGalante/deltawind/internal/observability"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

type Service struct {
	client *completion.Client
	store  domain.SessionStore
	roster *casestudy.Roster
	model  string

	doc       domain.CaseDocument
	caseFacts casestudy.Case

	now   func() time.Time
	newID func() string
	locks *sessionLocks
}

type Option func(*Service)

func WithModel(model string) Option {
	return func(s *Service) {
		if model != "" {
			s.model = model
		}
	}
}

func WithRoster(r *casestudy.Roster) Option {
	return func(s *Service) { s.roster = r }
}

// WithCase sets the document used in prompts and the facts behind the reference panel.
func WithCase(doc domain.CaseDocument, c casestudy.Case) Option {
	return func(s *Service) {
		s.doc = doc
		s.caseFacts = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(client *completion.Client, store domain.SessionStore, opts ...Option) *Service {
	c := casestudy.Default()
	s := &Service{
		client:    client,
		store:     store,
		roster:    casestudy.DefaultRoster(),
		model:     DefaultModel,
		doc:       c.Document("builtin"),
		caseFacts: c,
		now:       time.Now,
		newID:     generateID,
		locks:     newSessionLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Personas lists the roster in display order.
func (s *Service) Personas() []domain.Persona {
	return s.roster.All()
}

// Persona returns one persona of the roster.
func (s *Service) Persona(id domain.PersonaID) (domain.Persona, error) {
	return s.roster.Get(id)
}

// Document is the case document put in every prompt.
func (s *Service) Document() domain.CaseDocument {
	return s.doc
}

// Reference returns the reference panel for phase.
func (s *Service) Reference(phase domain.Phase) casestudy.Reference {
	return casestudy.ReferenceFor(s.caseFacts, phase)
}

// ─────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────

func (s *Service) StartSession(ctx context.Context) (*domain.SessionState, error) {
	state := domain.NewSessionState(domain.SessionID(s.newID()), s.now())

	log := observability.LoggerFromContext(ctx).With("session_id", state.ID)
	if err := s.store.CreateSession(ctx, state); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}

	log.Info("session started")
	return state, nil
}

func (s *Service) GetSession(ctx context.Context, id domain.SessionID) (*domain.SessionState, error) {
	return s.store.GetSession(ctx, id)
}

// update loads a session under its lock, applies fn and saves the result
// unless fn fails.
func (s *Service) update(ctx context.Context, id domain.SessionID, fn func(*domain.SessionState) error) (*domain.SessionState, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	state, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(state); err != nil {
		return nil, err
	}
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Service) SetPhase(ctx context.Context, id domain.SessionID, phase domain.Phase) (*domain.SessionState, error) {
	if _, ok := domain.ParsePhase(string(phase)); !ok {
		return nil, fmt.Errorf("unknown phase %q", phase)
	}
	return s.update(ctx, id, func(state *domain.SessionState) error {
		state.Phase = phase
		return nil
	})
}

func (s *Service) SetView(ctx context.Context, id domain.SessionID, view domain.View) (*domain.SessionState, error) {
	if _, ok := domain.ParseView(string(view)); !ok {
		return nil, fmt.Errorf("unknown view %q", view)
	}
	return s.update(ctx, id, func(state *domain.SessionState) error {
		state.View = view
		return nil
	})
}

// Reset clears every conversation and cached briefing. The phase is kept.
func (s *Service) Reset(ctx context.Context, id domain.SessionID) (*domain.SessionState, error) {
	state, err := s.update(ctx, id, func(state *domain.SessionState) error {
		state.Reset(s.now())
		return nil
	})
	if err == nil {
		observability.LoggerFromContext(ctx).Info("session reset", "session_id", id)
	}
	return state, err
}

// Progress is how many stakeholders the student has interviewed.
type Progress struct {
	Interviewed int
	Total       int
}

func (s *Service) Progress(ctx context.Context, id domain.SessionID) (Progress, error) {
	state, err := s.store.GetSession(ctx, id)
	if err != nil {
		return Progress{}, err
	}
	return s.ProgressOf(state), nil
}

// ProgressOf computes the progress of an already loaded session.
func (s *Service) ProgressOf(state *domain.SessionState) Progress {
	done, total := s.roster.InterviewProgress(state)
	return Progress{Interviewed: done, Total: total}
}

// ─────────────────────────────────────────────
// Conversations
// ─────────────────────────────────────────────

type SelectPersonaInput struct {
	SessionID domain.SessionID
	Persona   domain.PersonaID
}

type SelectPersonaOutput struct {
	Session *domain.SessionState
	// Greeting is set when this selection opened the conversation.
	Greeting *domain.Message
}

// SelectPersona makes a persona active and opens its conversation, seeding
// the persona's greeting the first time.
func (s *Service) SelectPersona(ctx context.Context, in SelectPersonaInput) (*SelectPersonaOutput, error) {
	persona, err := s.roster.Get(in.Persona)
	if err != nil {
		return nil, err
	}

	var greeting *domain.Message
	state, err := s.update(ctx, in.SessionID, func(state *domain.SessionState) error {
		state.ActivePersona = persona.ID
		state.View = domain.ViewChat
		greeting = s.open(state, persona)
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info("persona selected",
		"session_id", in.SessionID,
		"persona", persona.ID,
		"greeted", greeting != nil)

	return &SelectPersonaOutput{Session: state, Greeting: greeting}, nil
}

// open returns the greeting appended if it created the conversation.
func (s *Service) open(state *domain.SessionState, p domain.Persona) *domain.Message {
	conv, created := state.OpenConversation(p.ID)
	if !created || p.Greeting == "" {
		return nil
	}
	greeting := s.message(p.ID, domain.RoleAgent, p.Greeting, s.now())
	conv.Append(greeting)
	return greeting
}

func (s *Service) message(persona domain.PersonaID, author domain.Role, text string, at time.Time) *domain.Message {
	return &domain.Message{
		ID:        domain.MessageID(s.newID()),
		Persona:   persona,
		Author:    author,
		Text:      text,
		CreatedAt: at,
	}
}

type SendMessageInput struct {
	SessionID domain.SessionID
	// Persona defaults to the session's active persona.
	Persona domain.PersonaID
	Text    string
}

// SendMessageOutput holds either both new messages or a Notice.
type SendMessageOutput struct {
	UserMessage  *domain.Message
	AgentMessage *domain.Message
	Notice       *domain.Notice
	Attempts     int
}

// SendMessage runs one exchange with a persona. On success the user message
// and the reply are appended together; on failure nothing is appended and the
// caller gets a Notice to show instead.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, domain.ErrEmptyMessage
	}

	unlock := s.locks.lock(in.SessionID)
	defer unlock()

	state, err := s.store.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	personaID := in.Persona
	if personaID == "" {
		personaID = state.ActivePersona
	}
	persona, err := s.roster.Get(personaID)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", state.ID,
		"persona", persona.ID,
	)
	log.Info("sending message", "chars", len(text))

	greeted := s.open(state, persona) != nil
	state.ActivePersona = persona.ID
	conv := state.Conversation(persona.ID)

	submitted := s.now()
	messages := prompt.Assemble(persona, s.doc, conv.History(), text)
	res := s.client.Complete(ctx, s.model, messages)

	out := &SendMessageOutput{Attempts: res.Attempts}
	if !res.OK() {
		notice := res.Failure.Notice()
		out.Notice = &notice
		log.Warn("exchange failed", "kind", res.Failure.Kind, "attempts", res.Attempts)
		if greeted {
			// The opening greeting is not part of the failed exchange.
			if err := s.save(ctx, state); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	out.UserMessage = s.message(persona.ID, domain.RoleUser, text, submitted)
	out.AgentMessage = s.message(persona.ID, domain.RoleAgent, res.Reply, s.now())
	conv.Append(out.UserMessage, out.AgentMessage)

	if err := s.save(ctx, state); err != nil {
		return nil, err
	}

	log.Info("send message completed", "attempts", res.Attempts, "history", conv.Len())
	return out, nil
}

func (s *Service) save(ctx context.Context, state *domain.SessionState) error {
	state.UpdatedAt = s.now()
	if err := s.store.SaveSession(ctx, state); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to save session", "session_id", state.ID, "error", err)
		return err
	}
	return nil
}

// ─────────────────────────────────────────────
// Briefings
// ─────────────────────────────────────────────

type GenerateBriefingInput struct {
	SessionID domain.SessionID
	Kind      domain.BriefingKind
	// Refresh regenerates a cached briefing.
	Refresh bool
}

type GenerateBriefingOutput struct {
	Kind   domain.BriefingKind
	Title  string
	Text   string
	Cached bool
	Notice *domain.Notice
}

// GenerateBriefing returns the cached briefing of a kind, generating it on
// first use. Showing a briefing switches the session to its panel.
func (s *Service) GenerateBriefing(ctx context.Context, in GenerateBriefingInput) (*GenerateBriefingOutput, error) {
	messages, err := prompt.Briefing(in.Kind, s.doc)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(in.SessionID)
	defer unlock()

	state, err := s.store.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With("session_id", state.ID, "briefing", in.Kind)
	out := &GenerateBriefingOutput{Kind: in.Kind, Title: prompt.BriefingTitle(in.Kind)}

	if cached, ok := state.Briefings[in.Kind]; ok && !in.Refresh {
		out.Text, out.Cached = cached, true
	} else {
		log.Info("generating briefing")
		res := s.client.Complete(ctx, s.model, messages)
		if !res.OK() {
			notice := res.Failure.Notice()
			out.Notice = &notice
			log.Warn("briefing failed", "kind", res.Failure.Kind, "attempts", res.Attempts)
			return out, nil
		}
		if state.Briefings == nil {
			state.Briefings = make(map[domain.BriefingKind]string)
		}
		state.Briefings[in.Kind] = res.Reply
		out.Text = res.Reply
	}

	state.View = in.Kind.View()
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	return out, nil
}

// ─────────────────────────────────────────────
// Export
// ─────────────────────────────────────────────

type ExportOutput struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Export renders every non-empty conversation of a session.
func (s *Service) Export(ctx context.Context, id domain.SessionID, format export.Format) (*ExportOutput, error) {
	state, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	sections := export.Sections(state, s.roster.All())
	if len(sections) == 0 {
		return nil, domain.ErrNothingToExport
	}

	now := s.now()
	out := &ExportOutput{
		FileName:    export.FileName(format, now),
		ContentType: format.ContentType(),
	}

	switch format {
	case export.FormatPDF:
		var buf bytes.Buffer
		if err := export.PDF(&buf, s.doc.Title+" - Interview Transcript", now, sections); err != nil {
			observability.LoggerFromContext(ctx).Error("failed to export transcript", "session_id", id, "error", err)
			return nil, err
		}
		out.Data = buf.Bytes()
	default:
		out.Data = []byte(export.Text(sections))
	}

	observability.LoggerFromContext(ctx).Info("transcript exported",
		"session_id", id,
		"format", format,
		"sections", len(sections))
	return out, nil
}

func generateID() string {
	return uuid.NewString()
}
