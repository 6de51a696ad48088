// Package tui is the terminal client: stakeholders on the left, the
// transcript in the middle and the phase objectives on the right.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/PabloGalante/deltawind/internal/app/conversation"
	"github.com/PabloGalante/deltawind/internal/app/export"
	"github.com/PabloGalante/deltawind/internal/domain"
)

type focus int

const (
	focusInput focus = iota
	focusPersonas
)

const (
	sideWidth  = 30
	refWidth   = 36
	inputLines = 3
)

// Messages for tea updates
type (
	sessionMsg  struct{ state *domain.SessionState }
	selectedMsg struct{ out *conversation.SelectPersonaOutput }
	sentMsg     struct{ out *conversation.SendMessageOutput }
	briefingMsg struct{ out *conversation.GenerateBriefingOutput }
	exportedMsg struct{ path string }
	errMsg      struct{ err error }
)

type Model struct {
	ctx context.Context
	svc *conversation.Service

	personas []domain.Persona
	cursor   int
	focus    focus

	state    *domain.SessionState
	notice   *domain.Notice
	briefing *conversation.GenerateBriefingOutput
	status   string
	err      error
	busy     bool

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int
}

// New builds the model. The session is created by Init.
func New(ctx context.Context, svc *conversation.Service) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask the selected stakeholder... (Enter to send)"
	ti.Prompt = "│ "
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(60),
	)

	return Model{
		ctx:      ctx,
		svc:      svc,
		personas: svc.Personas(),
		input:    ti,
		viewport: viewport.New(60, 20),
		spinner:  sp,
		renderer: renderer,
	}
}

// Run starts the program on the alternate screen and blocks until exit.
func Run(ctx context.Context, svc *conversation.Service) error {
	_, err := tea.NewProgram(New(ctx, svc), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.startSession)
}

// ─────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────

func (m Model) startSession() tea.Msg {
	state, err := m.svc.StartSession(m.ctx)
	if err != nil {
		return errMsg{err}
	}
	return sessionMsg{state}
}

func (m Model) selectPersona(id domain.PersonaID) tea.Cmd {
	return func() tea.Msg {
		out, err := m.svc.SelectPersona(m.ctx, conversation.SelectPersonaInput{SessionID: m.state.ID, Persona: id})
		if err != nil {
			return errMsg{err}
		}
		return selectedMsg{out}
	}
}

func (m Model) send(text string) tea.Cmd {
	id := m.state.ID
	return func() tea.Msg {
		out, err := m.svc.SendMessage(m.ctx, conversation.SendMessageInput{SessionID: id, Text: text})
		if err != nil {
			return errMsg{err}
		}
		return sentMsg{out}
	}
}

func (m Model) brief(kind domain.BriefingKind) tea.Cmd {
	id := m.state.ID
	return func() tea.Msg {
		out, err := m.svc.GenerateBriefing(m.ctx, conversation.GenerateBriefingInput{SessionID: id, Kind: kind})
		if err != nil {
			return errMsg{err}
		}
		return briefingMsg{out}
	}
}

func (m Model) reload(fn func(context.Context, domain.SessionID) (*domain.SessionState, error)) tea.Cmd {
	id := m.state.ID
	return func() tea.Msg {
		state, err := fn(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return sessionMsg{state}
	}
}

func (m Model) exportText() tea.Cmd {
	id := m.state.ID
	return func() tea.Msg {
		out, err := m.svc.Export(m.ctx, id, export.FormatText)
		if err != nil {
			return errMsg{err}
		}
		if err := os.WriteFile(out.FileName, out.Data, 0o644); err != nil {
			return errMsg{err}
		}
		return exportedMsg{out.FileName}
	}
}

// ─────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = max(20, m.width-sideWidth-refWidth-8)
		m.viewport.Height = max(5, m.height-inputLines-6)
		m.input.Width = m.viewport.Width - 4
		m.refresh()

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case sessionMsg:
		m.busy = false
		m.state = msg.state
		m.briefing = nil
		m.refresh()

	case selectedMsg:
		m.busy = false
		m.state = msg.out.Session
		m.notice, m.briefing = nil, nil
		m.refresh()

	case sentMsg:
		m.busy = false
		m.notice = msg.out.Notice
		if msg.out.Notice == nil {
			m.input.SetValue("")
		}
		// A failed exchange may still have stored the persona's greeting.
		return m, m.reload(m.svc.GetSession)

	case briefingMsg:
		m.busy = false
		m.notice = msg.out.Notice
		if msg.out.Notice == nil {
			m.briefing = msg.out
		}
		m.refresh()

	case exportedMsg:
		m.status = "Transcript saved to " + msg.path

	case errMsg:
		m.busy = false
		m.err = msg.err
	}

	var cmd tea.Cmd
	if m.focus == focusInput {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit, true
	}
	if m.state == nil || m.busy {
		return nil, true
	}
	m.err, m.status = nil, ""

	switch msg.String() {
	case "tab":
		if m.focus == focusInput {
			m.focus = focusPersonas
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return nil, true
	case "f2", "f3", "f4":
		kind := map[string]domain.BriefingKind{
			"f2": domain.BriefingInsights,
			"f3": domain.BriefingProblems,
			"f4": domain.BriefingRole,
		}[msg.String()]
		m.busy = true
		return m.brief(kind), true
	case "esc":
		m.briefing = nil
		m.refresh()
		return nil, true
	case "ctrl+p":
		next := nextPhase(m.state.Phase)
		m.busy = true
		return m.reload(func(ctx context.Context, id domain.SessionID) (*domain.SessionState, error) {
			return m.svc.SetPhase(ctx, id, next)
		}), true
	case "ctrl+r":
		m.busy = true
		return m.reload(m.svc.Reset), true
	case "ctrl+e":
		return m.exportText(), true
	}

	if m.focus == focusPersonas {
		switch msg.String() {
		case "up", "k":
			m.cursor = (m.cursor - 1 + len(m.personas)) % len(m.personas)
		case "down", "j":
			m.cursor = (m.cursor + 1) % len(m.personas)
		case "enter":
			m.busy = true
			m.focus = focusInput
			m.input.Focus()
			return m.selectPersona(m.personas[m.cursor].ID), true
		}
		return nil, true
	}

	if msg.String() == "enter" {
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return nil, true
		}
		if m.state.ActivePersona == "" {
			m.err = fmt.Errorf("pick a stakeholder first (Tab, then Enter)")
			return nil, true
		}
		m.busy = true
		return m.send(text), true
	}
	return nil, false
}

func nextPhase(p domain.Phase) domain.Phase {
	phases := domain.Phases()
	for i, ph := range phases {
		if ph == p {
			return phases[(i+1)%len(phases)]
		}
	}
	return phases[0]
}

// refresh re-renders the transcript or the open briefing into the viewport.
func (m *Model) refresh() {
	if m.briefing != nil {
		m.viewport.SetContent(m.markdown("# " + m.briefing.Title + "\n\n" + m.briefing.Text))
		m.viewport.GotoTop()
		return
	}
	if m.state == nil || m.state.ActivePersona == "" {
		m.viewport.SetContent(mutedStyle.Render("Select a stakeholder to start the interview."))
		return
	}

	persona, err := m.svc.Persona(m.state.ActivePersona)
	if err != nil {
		m.viewport.SetContent(err.Error())
		return
	}

	var b strings.Builder
	for _, msg := range m.state.Conversation(persona.ID).History() {
		if msg.Author == domain.RoleUser {
			b.WriteString(userStyle.Render("You") + mutedStyle.Render(" "+msg.CreatedAt.Format("15:04:05")) + "\n")
			b.WriteString(lipgloss.NewStyle().Width(m.viewport.Width).Render(msg.Text) + "\n\n")
			continue
		}
		b.WriteString(agentStyle.Render(persona.Label()) + mutedStyle.Render(" "+msg.CreatedAt.Format("15:04:05")) + "\n")
		b.WriteString(m.markdown(msg.Text) + "\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *Model) markdown(s string) string {
	if m.renderer == nil {
		return s
	}
	out, err := m.renderer.Render(s)
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}
