package domain

// Message represents a message in a persona's timeline (user or agent).
// Messages are immutable once appended.
type Message struct {
	ID        MessageID
	Persona   PersonaID
	Author    Role
	Text      string
	CreatedAt Timestamp
}

// ChatMessage is one role-tagged block submitted to the completion capability.
type ChatMessage struct {
	Role ChatRole
	Text string
}

// Conversation is the append-only history between the student and one persona.
type Conversation struct {
	Persona  PersonaID
	Messages []*Message
}

// Append adds messages at the end of the conversation, in the given order.
func (c *Conversation) Append(msgs ...*Message) {
	c.Messages = append(c.Messages, msgs...)
}

// Len is the number of messages in the conversation.
func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Messages)
}

// History returns a copy of the message list that later appends cannot alter.
func (c *Conversation) History() []*Message {
	if c == nil {
		return nil
	}
	out := make([]*Message, len(c.Messages))
	copy(out, c.Messages)
	return out
}

// UserTurns counts the messages written by the student.
func (c *Conversation) UserTurns() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, m := range c.Messages {
		if m.Author == RoleUser {
			n++
		}
	}
	return n
}

// SessionState is everything a client session owns: the active persona, the
// per-persona conversations, the panel being shown and cached briefings.
// It is owned by the caller and passed explicitly into the core.
type SessionState struct {
	ID        SessionID
	CreatedAt Timestamp
	UpdatedAt Timestamp

	ActivePersona PersonaID
	View          View
	Phase         Phase

	Conversations map[PersonaID]*Conversation
	Briefings     map[BriefingKind]string
}

// NewSessionState returns an empty session on the chat view of the first phase.
func NewSessionState(id SessionID, now Timestamp) *SessionState {
	return &SessionState{
		ID:            id,
		CreatedAt:     now,
		UpdatedAt:     now,
		View:          ViewChat,
		Phase:         PhaseInvestigation,
		Conversations: make(map[PersonaID]*Conversation),
		Briefings:     make(map[BriefingKind]string),
	}
}

// Conversation returns the conversation with persona id, or nil if the
// student has not opened it yet.
func (s *SessionState) Conversation(id PersonaID) *Conversation {
	return s.Conversations[id]
}

// OpenConversation returns the conversation with persona id, creating it
// if needed. The second result reports whether it was created.
func (s *SessionState) OpenConversation(id PersonaID) (*Conversation, bool) {
	if s.Conversations == nil {
		s.Conversations = make(map[PersonaID]*Conversation)
	}
	if c, ok := s.Conversations[id]; ok {
		return c, false
	}
	c := &Conversation{Persona: id}
	s.Conversations[id] = c
	return c, true
}

// Reset clears conversations, briefings and the view. The phase is kept.
func (s *SessionState) Reset(now Timestamp) {
	s.ActivePersona = ""
	s.View = ViewChat
	s.Conversations = make(map[PersonaID]*Conversation)
	s.Briefings = make(map[BriefingKind]string)
	s.UpdatedAt = now
}

// Clone returns a copy that shares only immutable messages with s.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	out.Conversations = make(map[PersonaID]*Conversation, len(s.Conversations))
	for id, c := range s.Conversations {
		out.Conversations[id] = &Conversation{Persona: c.Persona, Messages: c.History()}
	}
	out.Briefings = make(map[BriefingKind]string, len(s.Briefings))
	for k, v := range s.Briefings {
		out.Briefings[k] = v
	}
	return &out
}

// Notice is an ephemeral, user-visible message about a failed exchange.
// Notices are never stored in a Conversation.
type Notice struct {
	Kind      FailureKind
	Title     string
	Detail    string
	Retryable bool
}
