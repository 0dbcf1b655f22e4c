// Package styles centralizes lipgloss styling for the TUI. A theme is
// a named palette; every visual element derives its style from the
// active palette so themes switch consistently.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of colors a theme provides.
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Success   lipgloss.Color
	Muted     lipgloss.Color
	Text      lipgloss.Color
	Border    lipgloss.Color
}

var palettes = map[string]Palette{
	"default": {
		Primary:   lipgloss.Color("#7D56F4"),
		Secondary: lipgloss.Color("#43BF6D"),
		Warning:   lipgloss.Color("#F6C177"),
		Error:     lipgloss.Color("#EB6F92"),
		Success:   lipgloss.Color("#43BF6D"),
		Muted:     lipgloss.Color("#6C6C6C"),
		Text:      lipgloss.Color("#FAFAFA"),
		Border:    lipgloss.Color("#444444"),
	},
	"monokai": {
		Primary:   lipgloss.Color("#AE81FF"),
		Secondary: lipgloss.Color("#A6E22E"),
		Warning:   lipgloss.Color("#E6DB74"),
		Error:     lipgloss.Color("#F92672"),
		Success:   lipgloss.Color("#A6E22E"),
		Muted:     lipgloss.Color("#75715E"),
		Text:      lipgloss.Color("#F8F8F2"),
		Border:    lipgloss.Color("#49483E"),
	},
	"dracula": {
		Primary:   lipgloss.Color("#BD93F9"),
		Secondary: lipgloss.Color("#50FA7B"),
		Warning:   lipgloss.Color("#F1FA8C"),
		Error:     lipgloss.Color("#FF5555"),
		Success:   lipgloss.Color("#50FA7B"),
		Muted:     lipgloss.Color("#6272A4"),
		Text:      lipgloss.Color("#F8F8F2"),
		Border:    lipgloss.Color("#44475A"),
	},
	"nord": {
		Primary:   lipgloss.Color("#88C0D0"),
		Secondary: lipgloss.Color("#A3BE8C"),
		Warning:   lipgloss.Color("#EBCB8B"),
		Error:     lipgloss.Color("#BF616A"),
		Success:   lipgloss.Color("#A3BE8C"),
		Muted:     lipgloss.Color("#4C566A"),
		Text:      lipgloss.Color("#ECEFF4"),
		Border:    lipgloss.Color("#434C5E"),
	},
}

// Styles holds the rendered lipgloss styles for one theme.
type Styles struct {
	Palette Palette

	Banner   lipgloss.Style
	Title    lipgloss.Style
	Subtitle lipgloss.Style

	StepPending  lipgloss.Style
	StepRunning  lipgloss.Style
	StepComplete lipgloss.Style
	StepError    lipgloss.Style
	StepBlocked  lipgloss.Style

	Selected lipgloss.Style
	Muted    lipgloss.Style
	Info     lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style

	Panel   lipgloss.Style
	HelpBar lipgloss.Style
	KeyHint lipgloss.Style
}

// New builds the style set for the named theme, falling back to the
// default palette for unknown names.
func New(theme string) Styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes["default"]
	}

	return Styles{
		Palette: p,

		Banner:   lipgloss.NewStyle().Foreground(p.Primary).Bold(true),
		Title:    lipgloss.NewStyle().Foreground(p.Primary).Bold(true),
		Subtitle: lipgloss.NewStyle().Foreground(p.Muted),

		StepPending:  lipgloss.NewStyle().Foreground(p.Muted),
		StepRunning:  lipgloss.NewStyle().Foreground(p.Warning).Bold(true),
		StepComplete: lipgloss.NewStyle().Foreground(p.Success),
		StepError:    lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		StepBlocked:  lipgloss.NewStyle().Foreground(p.Warning),

		Selected: lipgloss.NewStyle().Foreground(p.Text).Background(p.Primary).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(p.Muted),
		Info:     lipgloss.NewStyle().Foreground(p.Secondary),
		Warning:  lipgloss.NewStyle().Foreground(p.Warning),
		Error:    lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		Success:  lipgloss.NewStyle().Foreground(p.Success).Bold(true),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		HelpBar: lipgloss.NewStyle().Foreground(p.Muted),
		KeyHint: lipgloss.NewStyle().Foreground(p.Secondary).Bold(true),
	}
}

// ThemeNames returns the available theme names.
func ThemeNames() []string {
	return []string{"default", "monokai", "dracula", "nord"}
}
