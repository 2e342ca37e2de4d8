package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors of the view. Descriptor colors node labels and
// Relation the markers of relation particles.
type Theme struct {
	Name       string
	Primary    lipgloss.Color
	Graph      lipgloss.Color
	Descriptor lipgloss.Color
	Relation   lipgloss.Color
	Accent     lipgloss.Color
	Staged     lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

var (
	ThemeDusk = Theme{
		Name:       "dusk",
		Primary:    lipgloss.Color("#c792ea"),
		Graph:      lipgloss.Color("#4b5a7a"),
		Descriptor: lipgloss.Color("#e6e1cf"),
		Relation:   lipgloss.Color("#7fdbca"),
		Accent:     lipgloss.Color("#ffcb6b"),
		Staged:     lipgloss.Color("#f78c6c"),
		Text:       lipgloss.Color("#d6deeb"),
		Muted:      lipgloss.Color("#637777"),
		Success:    lipgloss.Color("#addb67"),
		Warning:    lipgloss.Color("#f78c6c"),
		Error:      lipgloss.Color("#ef5350"),
	}

	ThemePaper = Theme{
		Name:       "paper",
		Primary:    lipgloss.Color("#1f2328"),
		Graph:      lipgloss.Color("#8c959f"),
		Descriptor: lipgloss.Color("#24292f"),
		Relation:   lipgloss.Color("#8250df"),
		Accent:     lipgloss.Color("#0969da"),
		Staged:     lipgloss.Color("#bc4c00"),
		Text:       lipgloss.Color("#1f2328"),
		Muted:      lipgloss.Color("#6e7781"),
		Success:    lipgloss.Color("#1a7f37"),
		Warning:    lipgloss.Color("#9a6700"),
		Error:      lipgloss.Color("#cf222e"),
	}

	ThemePhosphor = Theme{
		Name:       "phosphor",
		Primary:    lipgloss.Color("#ffb000"),
		Graph:      lipgloss.Color("#7a5200"),
		Descriptor: lipgloss.Color("#ffcc4d"),
		Relation:   lipgloss.Color("#ff8c1a"),
		Accent:     lipgloss.Color("#fff2cc"),
		Staged:     lipgloss.Color("#ff5e00"),
		Text:       lipgloss.Color("#ffb000"),
		Muted:      lipgloss.Color("#5c3d00"),
		Success:    lipgloss.Color("#ffd966"),
		Warning:    lipgloss.Color("#ff8c1a"),
		Error:      lipgloss.Color("#ff3b1f"),
	}

	ThemeHarbor = Theme{
		Name:       "harbor",
		Primary:    lipgloss.Color("#5fb3b3"),
		Graph:      lipgloss.Color("#343d46"),
		Descriptor: lipgloss.Color("#c0c5ce"),
		Relation:   lipgloss.Color("#6699cc"),
		Accent:     lipgloss.Color("#fac863"),
		Staged:     lipgloss.Color("#f99157"),
		Text:       lipgloss.Color("#d8dee9"),
		Muted:      lipgloss.Color("#65737e"),
		Success:    lipgloss.Color("#99c794"),
		Warning:    lipgloss.Color("#fac863"),
		Error:      lipgloss.Color("#ec5f67"),
	}

	Themes = []Theme{
		ThemeDusk,
		ThemePaper,
		ThemePhosphor,
		ThemeHarbor,
	}
)

// GetTheme returns a theme by name, falling back to the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeDusk
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

func nextTheme(t Theme) Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}
