package theme

import "github.com/charmbracelet/lipgloss"

// Theme is the palette used by the terminal frontend.
type Theme struct {
	Primary    lipgloss.Color
	Text       lipgloss.Color
	TextMuted  lipgloss.Color
	Background lipgloss.Color
	User       lipgloss.Color
	Assistant  lipgloss.Color
	Error      lipgloss.Color

	// CodeStyle names the chroma style for fenced code blocks
	CodeStyle string
}

var Dark = Theme{
	Primary:    lipgloss.Color("#00ff00"),
	Text:       lipgloss.Color("#ffffff"),
	TextMuted:  lipgloss.Color("#808080"),
	Background: lipgloss.Color("#000000"),
	User:       lipgloss.Color("#5fafff"),
	Assistant:  lipgloss.Color("#00ff00"),
	Error:      lipgloss.Color("#ff5f5f"),
	CodeStyle:  "monokai",
}

var Light = Theme{
	Primary:    lipgloss.Color("#005f00"),
	Text:       lipgloss.Color("#000000"),
	TextMuted:  lipgloss.Color("#606060"),
	Background: lipgloss.Color("#ffffff"),
	User:       lipgloss.Color("#005faf"),
	Assistant:  lipgloss.Color("#005f00"),
	Error:      lipgloss.Color("#af0000"),
	CodeStyle:  "github",
}

// CurrentTheme is the theme new renderers start from.
var CurrentTheme = Dark

// SetTheme sets the current theme
func SetTheme(t Theme) {
	CurrentTheme = t
}

// ByName returns the named theme and whether it exists.
func ByName(name string) (Theme, bool) {
	switch name {
	case "dark", "":
		return Dark, true
	case "light":
		return Light, true
	}
	return Theme{}, false
}
