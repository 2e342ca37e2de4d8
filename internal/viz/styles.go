package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	canvas     lipgloss.Style
	graph      lipgloss.Style
	descriptor lipgloss.Style
	relation   lipgloss.Style
	selected   lipgloss.Style
	staged     lipgloss.Style
	panel      lipgloss.Style
	header     lipgloss.Style
	label      lipgloss.Style
	value      lipgloss.Style
	chart      lipgloss.Style
	help       lipgloss.Style
	ok         lipgloss.Style
	warn       lipgloss.Style
	err        lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		canvas:     lipgloss.NewStyle().Padding(0, 1),
		graph:      lipgloss.NewStyle().Foreground(t.Graph),
		descriptor: lipgloss.NewStyle().Foreground(t.Descriptor),
		relation:   lipgloss.NewStyle().Foreground(t.Relation),
		selected:   lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		staged:     lipgloss.NewStyle().Foreground(t.Staged).Bold(true),
		panel:      lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(t.Muted).Padding(0, 2).Width(sidebarWidth - 3),
		header:     lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		label:      lipgloss.NewStyle().Foreground(t.Muted).Width(11),
		value:      lipgloss.NewStyle().Foreground(t.Text),
		chart:      lipgloss.NewStyle().Foreground(t.Graph),
		help:       lipgloss.NewStyle().Foreground(t.Muted).MarginTop(1),
		ok:         lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		warn:       lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		err:        lipgloss.NewStyle().Foreground(t.Error),
	}
}

// fractionBar renders the moved fraction of the last tick.
func (s styles) fractionBar(f float64, width int) string {
	filled := int(f * float64(width))
	filled = max(0, min(filled, width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case f > 0.5:
		return s.warn.Render(bar)
	case f > 0:
		return s.value.Render(bar)
	}
	return s.ok.Render(bar)
}
