package viz

import "github.com/charmbracelet/lipgloss"

type styles struct {
	canvas  lipgloss.Style
	stats   lipgloss.Style
	header  lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	running lipgloss.Style
	paused  lipgloss.Style
	graph   lipgloss.Style
	help    lipgloss.Style
	err     lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		canvas: lipgloss.NewStyle().Padding(0, 1).Foreground(t.Stars),
		stats: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(0, 2).
			Width(42),
		header:  lipgloss.NewStyle().Foreground(t.Accent).Bold(true).MarginBottom(1),
		label:   lipgloss.NewStyle().Foreground(t.Muted).Width(14),
		value:   lipgloss.NewStyle().Foreground(t.Text),
		running: lipgloss.NewStyle().Foreground(t.Running).Bold(true),
		paused:  lipgloss.NewStyle().Foreground(t.Paused).Bold(true),
		graph:   lipgloss.NewStyle().Foreground(t.Accent).Padding(1, 0),
		help:    lipgloss.NewStyle().Foreground(t.Muted).MarginTop(1),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Bold(true),
	}
}
