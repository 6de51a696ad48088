package conversation_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/deltawind/internal/adapters/storage/memory"
	"github.com/PabloGalante/deltawind/internal/app/completion"
	"github.com/PabloGalante/deltawind/internal/app/conversation"
	"github.com/PabloGalante/deltawind/internal/app/export"
	"github.com/PabloGalante/deltawind/internal/domain"
)

// fakeBackend replies "reply-N" unless fail is set.
type fakeBackend struct {
	mu    sync.Mutex
	calls [][]domain.ChatMessage
	fail  error
}

func (b *fakeBackend) Complete(_ context.Context, _ string, messages []domain.ChatMessage) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, messages)
	if b.fail != nil {
		return "", b.fail
	}
	return fmt.Sprintf("reply-%d", len(b.calls)), nil
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func noSleep(context.Context, time.Duration) error { return nil }

func newService(t *testing.T, backend *fakeBackend) *conversation.Service {
	t.Helper()
	client := completion.NewClient(backend, completion.DefaultPolicy(), completion.WithSleeper(noSleep))

	var (
		mu  sync.Mutex
		seq int
	)
	clock := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return conversation.NewService(client, memory.NewSessionStore(),
		conversation.WithModel("test-model"),
		conversation.WithClock(func() time.Time { return clock }),
		conversation.WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
}

func TestStartSessionAndSendMessage(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	backend := &fakeBackend{}
	svc := newService(t, backend)

	state, err := svc.StartSession(ctx)
	req.NoError(err)
	req.NotEmpty(state.ID)
	req.Equal(domain.PhaseInvestigation, state.Phase)

	sel, err := svc.SelectPersona(ctx, conversation.SelectPersonaInput{SessionID: state.ID, Persona: "sam"})
	req.NoError(err)
	req.NotNil(sel.Greeting)
	req.Equal(domain.RoleAgent, sel.Greeting.Author)
	req.Equal(domain.PersonaID("sam"), sel.Session.ActivePersona)

	out, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: state.ID, Text: "  What's the status of A3?  "})
	req.NoError(err)
	req.Nil(out.Notice)
	req.Equal(1, out.Attempts)
	req.Equal("What's the status of A3?", out.UserMessage.Text)
	req.Equal("reply-1", out.AgentMessage.Text)

	// Greeting went out as history, between the system block and the question.
	sent := backend.calls[0]
	req.Len(sent, 3)
	req.Equal(domain.ChatRoleSystem, sent[0].Role)
	req.Contains(sent[0].Text, "Sam Patel")
	req.Equal(domain.ChatMessage{Role: domain.ChatRoleAssistant, Text: sel.Greeting.Text}, sent[1])
	req.Equal(domain.ChatMessage{Role: domain.ChatRoleUser, Text: "What's the status of A3?"}, sent[2])

	got, err := svc.GetSession(ctx, state.ID)
	req.NoError(err)
	msgs := got.Conversation("sam").Messages
	req.Len(msgs, 3)
	req.Equal(domain.RoleUser, msgs[1].Author)
	req.Equal(domain.RoleAgent, msgs[2].Author)

	// The next turn carries the whole history.
	_, err = svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: state.ID, Text: "And A9?"})
	req.NoError(err)
	req.Len(backend.calls[1], 5)
}

func TestSelectPersonaGreetsOnce(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc := newService(t, &fakeBackend{})
	state, err := svc.StartSession(ctx)
	req.NoError(err)

	first, err := svc.SelectPersona(ctx, conversation.SelectPersonaInput{SessionID: state.ID, Persona: "rita"})
	req.NoError(err)
	req.NotNil(first.Greeting)

	again, err := svc.SelectPersona(ctx, conversation.SelectPersonaInput{SessionID: state.ID, Persona: "rita"})
	req.NoError(err)
	req.Nil(again.Greeting)
	req.Equal(1, again.Session.Conversation("rita").Len())

	advisor, err := svc.SelectPersona(ctx, conversation.SelectPersonaInput{SessionID: state.ID, Persona: "sarah"})
	req.NoError(err)
	req.Nil(advisor.Greeting)
	req.Equal(0, advisor.Session.Conversation("sarah").Len())

	_, err = svc.SelectPersona(ctx, conversation.SelectPersonaInput{SessionID: state.ID, Persona: "bob"})
	req.ErrorIs(err, domain.ErrUnknownPersona)
}

func TestSendMessageTransientFailureLeavesConversationUntouched(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	backend := &fakeBackend{fail: domain.Transient("send", errors.New("connection reset"))}
	svc := newService(t, backend)
	state, err := svc.StartSession(ctx)
	req.NoError(err)

	out, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: state.ID, Persona: "maya", Text: "Why is A6 late?"})
	req.NoError(err)
	req.NotNil(out.Notice)
	req.True(out.Notice.Retryable)
	req.Nil(out.UserMessage)
	req.Nil(out.AgentMessage)
	req.Equal(3, out.Attempts)
	req.Equal(3, backend.callCount())

	got, err := svc.GetSession(ctx, state.ID)
	req.NoError(err)
	msgs := got.Conversation("maya").Messages
	req.Len(msgs, 1, "only the greeting")
	req.Equal(domain.RoleAgent, msgs[0].Author)
	req.NotContains(msgs[0].Text, "connection reset")
}

func TestSendMessageFatalFailureIsNotRetried(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	backend := &fakeBackend{fail: domain.Fatal("send", errors.New("401 invalid key"))}
	svc := newService(t, backend)
	state, err := svc.StartSession(ctx)
	req.NoError(err)

	out, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: state.ID, Persona: "leo", Text: "Hi"})
	req.NoError(err)
	req.False(out.Notice.Retryable)
	req.Equal(domain.FailureFatal, out.Notice.Kind)
	req.Equal(1, backend.callCount())
}

func TestSendMessageValidation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc := newService(t, &fakeBackend{})
	state, err := svc.StartSession(ctx)
	req.NoError(err)

	_, err = svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: state.ID, Persona: "sam", Text: "   "})
	req.ErrorIs(err, domain.ErrEmptyMessage)

	_, err = svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: state.ID, Text: "no persona yet"})
	req.ErrorIs(err, domain.ErrUnknownPersona)

	_, err = svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: "nope", Persona: "sam", Text: "hi"})
	req.ErrorIs(err, domain.ErrSessionNotFound)
}

func TestProgressAndReset(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc := newService(t, &fakeBackend{})
	state, err := svc.StartSession(ctx)
	req.NoError(err)

	for _, p := range []domain.PersonaID{"sam", "rita", "sarah"} {
		_, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: state.ID, Persona: p, Text: "hello"})
		req.NoError(err)
	}
	_, err = svc.SelectPersona(ctx, conversation.SelectPersonaInput{SessionID: state.ID, Persona: "ava"})
	req.NoError(err)

	progress, err := svc.Progress(ctx, state.ID)
	req.NoError(err)
	req.Equal(conversation.Progress{Interviewed: 2, Total: 6}, progress)

	_, err = svc.SetPhase(ctx, state.ID, domain.PhaseAnalysis)
	req.NoError(err)
	_, err = svc.SetPhase(ctx, state.ID, "lunch")
	req.Error(err)

	reset, err := svc.Reset(ctx, state.ID)
	req.NoError(err)
	req.Empty(reset.Conversations)
	req.Empty(reset.ActivePersona)
	req.Equal(domain.PhaseAnalysis, reset.Phase)

	progress, err = svc.Progress(ctx, state.ID)
	req.NoError(err)
	req.Equal(0, progress.Interviewed)
}

func TestGenerateBriefingIsCached(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	backend := &fakeBackend{}
	svc := newService(t, backend)
	state, err := svc.StartSession(ctx)
	req.NoError(err)

	first, err := svc.GenerateBriefing(ctx, conversation.GenerateBriefingInput{SessionID: state.ID, Kind: domain.BriefingProblems})
	req.NoError(err)
	req.False(first.Cached)
	req.Equal("reply-1", first.Text)
	req.Equal("Problems & Risks", first.Title)

	second, err := svc.GenerateBriefing(ctx, conversation.GenerateBriefingInput{SessionID: state.ID, Kind: domain.BriefingProblems})
	req.NoError(err)
	req.True(second.Cached)
	req.Equal("reply-1", second.Text)
	req.Equal(1, backend.callCount())

	refreshed, err := svc.GenerateBriefing(ctx, conversation.GenerateBriefingInput{SessionID: state.ID, Kind: domain.BriefingProblems, Refresh: true})
	req.NoError(err)
	req.Equal("reply-2", refreshed.Text)

	got, err := svc.GetSession(ctx, state.ID)
	req.NoError(err)
	req.Equal(domain.ViewProblems, got.View)

	_, err = svc.GenerateBriefing(ctx, conversation.GenerateBriefingInput{SessionID: state.ID, Kind: "memo"})
	req.ErrorIs(err, domain.ErrUnknownBriefing)
}

func TestExport(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc := newService(t, &fakeBackend{})
	state, err := svc.StartSession(ctx)
	req.NoError(err)

	_, err = svc.Export(ctx, state.ID, export.FormatText)
	req.ErrorIs(err, domain.ErrNothingToExport)

	_, err = svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: state.ID, Persona: "carlos", Text: "Is the permit cleared?"})
	req.NoError(err)

	txt, err := svc.Export(ctx, state.ID, export.FormatText)
	req.NoError(err)
	req.Equal("delta_windfarm_chat_20260314_090000.txt", txt.FileName)
	req.Contains(string(txt.Data), "[09:00:00] You: Is the permit cleared?")
	req.True(strings.HasPrefix(string(txt.Data), "DELTA WIND FARM - Interview Transcript"))

	pdf, err := svc.Export(ctx, state.ID, export.FormatPDF)
	req.NoError(err)
	req.Equal("application/pdf", pdf.ContentType)
	req.True(strings.HasPrefix(string(pdf.Data), "%PDF-"))
}

func TestConcurrentSendsToOneSessionAreAllKept(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc := newService(t, &fakeBackend{})
	state, err := svc.StartSession(ctx)
	req.NoError(err)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: state.ID, Persona: "sam", Text: fmt.Sprintf("q%d", i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	got, err := svc.GetSession(ctx, state.ID)
	req.NoError(err)
	req.Equal(2*n+1, got.Conversation("sam").Len())
	req.Equal(n, got.Conversation("sam").UserTurns())
}
