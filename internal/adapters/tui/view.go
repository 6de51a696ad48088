package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.state == nil {
		if m.err != nil {
			return noticeStyle.Render("Could not start a session: " + m.err.Error())
		}
		return m.spinner.View() + " Starting session..."
	}

	height := max(10, m.height-3)
	left := m.pane(m.focus == focusPersonas, sideWidth, height, m.personaList())
	center := m.pane(m.focus == focusInput, m.viewport.Width+2, height, m.chat())
	right := m.pane(false, refWidth, height, m.reference())

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, left, center, right),
		m.footer(),
	)
}

func (m Model) pane(focused bool, width, height int, body string) string {
	style := paneStyle
	if focused {
		style = focusedPaneStyle
	}
	return style.Width(width).Height(height).Render(body)
}

func (m Model) personaList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Stakeholders") + "\n\n")
	for i, p := range m.personas {
		var line string
		switch {
		case m.focus == focusPersonas && i == m.cursor:
			line = selectedStyle.Render(p.Label()) + "\n  " + mutedStyle.Render(p.Title)
		case p.ID == m.state.ActivePersona:
			line = agentStyle.Render(p.Label()) + "\n  " + mutedStyle.Render(p.Title)
		default:
			line = p.Label() + "\n  " + mutedStyle.Render(p.Title)
		}
		b.WriteString(line + "\n")
	}
	progress := m.svc.ProgressOf(m.state)
	b.WriteString("\n" + mutedStyle.Render(fmt.Sprintf("Interviewed %d/%d", progress.Interviewed, progress.Total)))
	return b.String()
}

func (m Model) chat() string {
	title := "Select a stakeholder"
	if m.briefing != nil {
		title = m.briefing.Title
	} else if p, err := m.svc.Persona(m.state.ActivePersona); err == nil {
		title = p.Label() + " · " + p.Title
	}

	parts := []string{titleStyle.Render(title), m.viewport.View()}
	if m.notice != nil {
		parts = append(parts, noticeStyle.Width(m.viewport.Width).Render(m.notice.Title+"\n"+m.notice.Detail))
	}
	if m.busy {
		parts = append(parts, m.spinner.View()+" Thinking...")
	} else {
		parts = append(parts, m.input.View())
	}
	return strings.Join(parts, "\n")
}

func (m Model) reference() string {
	ref := m.svc.Reference(m.state.Phase)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Phase: "+string(ref.Phase)) + "\n\n")
	for _, o := range ref.Objectives {
		b.WriteString(o + "\n")
	}
	b.WriteString("\n" + titleStyle.Render("Constraints") + "\n")
	for _, c := range ref.Constraints {
		b.WriteString(fmt.Sprintf("%s: %s\n", c.Label, mutedStyle.Render(c.Value)))
	}
	b.WriteString("\n" + titleStyle.Render("PERT") + "\n" + ref.PERTFormula + "\n")
	b.WriteString("\n" + titleStyle.Render("Dependencies") + "\n")
	for _, d := range ref.Dependencies {
		b.WriteString(d + "\n")
	}
	return b.String()
}

func (m Model) footer() string {
	switch {
	case m.err != nil:
		return noticeStyle.Render(m.err.Error())
	case m.status != "":
		return mutedStyle.Render(m.status)
	}
	return helpStyle.Render("tab focus · enter select/send · f2 insights · f3 problems · f4 role · esc chat · ctrl+p phase · ctrl+r reset · ctrl+e export · ctrl+c quit")
}
