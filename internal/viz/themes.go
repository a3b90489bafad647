package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines color scheme for the viewer
type Theme struct {
	Name    string
	Stars   lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Running lipgloss.Color
	Paused  lipgloss.Color
}

var (
	ThemeNight = Theme{
		Name:    "night",
		Stars:   lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#00ccff"),
		Text:    lipgloss.Color("252"),
		Muted:   lipgloss.Color("245"),
		Running: lipgloss.Color("#00ff88"),
		Paused:  lipgloss.Color("#ffaa00"),
	}

	ThemeNebula = Theme{
		Name:    "nebula",
		Stars:   lipgloss.Color("#ff9ff3"),
		Accent:  lipgloss.Color("#feca57"),
		Text:    lipgloss.Color("#fff5f5"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Running: lipgloss.Color("#5fd068"),
		Paused:  lipgloss.Color("#ffc048"),
	}

	ThemeRetroGreen = Theme{
		Name:    "retro",
		Stars:   lipgloss.Color("#00ff00"),
		Accent:  lipgloss.Color("#88ff88"),
		Text:    lipgloss.Color("#00cc00"),
		Muted:   lipgloss.Color("#005500"),
		Running: lipgloss.Color("#88ff88"),
		Paused:  lipgloss.Color("#ffff00"),
	}

	Themes = []Theme{ThemeNight, ThemeNebula, ThemeRetroGreen}
)

// GetTheme returns a theme by name, falling back to the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// NextTheme returns the theme after t in Themes.
func NextTheme(t Theme) Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
