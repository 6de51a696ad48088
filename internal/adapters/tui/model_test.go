package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/deltawind/internal/adapters/storage/memory"
	"github.com/PabloGalante/deltawind/internal/app/completion"
	"github.com/PabloGalante/deltawind/internal/app/conversation"
	"github.com/PabloGalante/deltawind/internal/domain"
)

type stubBackend struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (b *stubBackend) Complete(context.Context, string, []domain.ChatMessage) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reply, b.err
}

func newTestModel(t *testing.T, backend *stubBackend) Model {
	t.Helper()
	client := completion.NewClient(backend, completion.DefaultPolicy(),
		completion.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	svc := conversation.NewService(client, memory.NewSessionStore())

	m := New(context.Background(), svc)
	m = step(t, m, tea.WindowSizeMsg{Width: 160, Height: 40})
	return step(t, m, m.startSession())
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press sends a key and runs the command it returns, if any, feeding the
// result back into the model.
func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(key)
	m = next.(Model)
	for cmd != nil {
		msg := cmd()
		switch msg.(type) {
		case sessionMsg, selectedMsg, sentMsg, briefingMsg, exportedMsg, errMsg:
		default:
			return m
		}
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "f2":
		return tea.KeyMsg{Type: tea.KeyF2}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyCtrlP}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStartsSession(t *testing.T) {
	m := newTestModel(t, &stubBackend{reply: "ok"})

	require.NotNil(t, m.state)
	require.Equal(t, domain.PhaseInvestigation, m.state.Phase)
	require.Contains(t, m.View(), "Stakeholders")
}

func TestSelectPersonaAndSend(t *testing.T) {
	req := require.New(t)
	m := newTestModel(t, &stubBackend{reply: "A3 slipped three days."})

	m = press(t, m, key("tab"))
	req.Equal(focusPersonas, m.focus)

	m = press(t, m, key("enter"))
	req.Equal(domain.PersonaID("sam"), m.state.ActivePersona)
	req.Equal(focusInput, m.focus)
	req.Equal(1, m.state.Conversation("sam").Len())

	m.input.SetValue("Status of A3?")
	m = press(t, m, key("enter"))

	req.Nil(m.notice)
	req.Empty(m.input.Value())
	history := m.state.Conversation("sam").History()
	req.Len(history, 3)
	req.Equal("A3 slipped three days.", history[2].Text)
	req.Contains(m.View(), "Interviewed 1/6")
}

func TestFailedSendShowsNoticeAndKeepsDraft(t *testing.T) {
	req := require.New(t)
	backend := &stubBackend{err: domain.Transient("send", errors.New("connection reset"))}
	m := newTestModel(t, backend)

	m = press(t, m, key("tab"))
	m = press(t, m, key("enter"))
	m.input.SetValue("Status of A3?")
	m = press(t, m, key("enter"))

	req.NotNil(m.notice)
	req.True(m.notice.Retryable)
	req.Equal("Status of A3?", m.input.Value())
	req.Equal(1, m.state.Conversation("sam").Len())
}

func TestSendWithoutPersonaIsRejected(t *testing.T) {
	m := newTestModel(t, &stubBackend{reply: "ok"})

	m.input.SetValue("hello")
	m = press(t, m, key("enter"))

	require.Error(t, m.err)
	require.False(t, m.busy)
}

func TestCursorMovesAndWraps(t *testing.T) {
	m := newTestModel(t, &stubBackend{reply: "ok"})
	m = press(t, m, key("tab"))

	for range m.personas {
		m = press(t, m, key("down"))
	}
	require.Equal(t, 0, m.cursor)

	m = press(t, m, key("down"))
	m = press(t, m, key("enter"))
	require.Equal(t, domain.PersonaID("rita"), m.state.ActivePersona)
}

func TestBriefingOpensAndEscReturnsToChat(t *testing.T) {
	req := require.New(t)
	m := newTestModel(t, &stubBackend{reply: "- A6 gates A8"})

	m = press(t, m, key("f2"))
	req.NotNil(m.briefing)
	req.Equal(domain.BriefingInsights, m.briefing.Kind)
	req.Contains(m.viewport.View(), "A6")

	m = press(t, m, key("esc"))
	req.Nil(m.briefing)
}

func TestPhaseAdvancesAndResetClears(t *testing.T) {
	req := require.New(t)
	m := newTestModel(t, &stubBackend{reply: "ok"})

	m = press(t, m, key("ctrl+p"))
	req.Equal(domain.PhaseAnalysis, m.state.Phase)

	m = press(t, m, key("tab"))
	m = press(t, m, key("enter"))
	req.NotEmpty(m.state.Conversations)

	m = press(t, m, key("ctrl+r"))
	req.Empty(m.state.Conversations)
	req.Equal(domain.PhaseAnalysis, m.state.Phase)
}

func TestNextPhaseWraps(t *testing.T) {
	require.Equal(t, domain.PhaseAnalysis, nextPhase(domain.PhaseInvestigation))
	require.Equal(t, domain.PhaseInvestigation, nextPhase(domain.PhaseRecommendation))
	require.Equal(t, domain.PhaseInvestigation, nextPhase("unknown"))
}
