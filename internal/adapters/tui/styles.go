package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#59C3C3")
	muted  = lipgloss.Color("241")
	danger = lipgloss.Color("#E06C75")

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)

	focusedPaneStyle = paneStyle.BorderForeground(accent)

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(accent)
	mutedStyle    = lipgloss.NewStyle().Foreground(muted)
	userStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#61AFEF"))
	agentStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#98C379"))
	noticeStyle   = lipgloss.NewStyle().Foreground(danger).Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(danger).PaddingLeft(1)
	helpStyle     = mutedStyle.Italic(true)
)
