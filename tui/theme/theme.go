package theme

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/exports/config"
	"github.com/grovetools/exports/pkg/models"
)

const defaultThemeName = "kanagawa"

// Palette assigns a color to each role the styles draw from.
type Palette struct {
	Text   lipgloss.TerminalColor
	Muted  lipgloss.TerminalColor
	Border lipgloss.TerminalColor
	Stripe lipgloss.TerminalColor // Background of every other table row

	OK     lipgloss.TerminalColor
	Warn   lipgloss.TerminalColor
	Bad    lipgloss.TerminalColor
	Info   lipgloss.TerminalColor
	Accent lipgloss.TerminalColor
	Focus  lipgloss.TerminalColor // Cursor, titles and open dialogs
}

// Theme holds the styles used by the export list, the CLI and log output.
type Theme struct {
	Palette Palette

	Header lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Bold      lipgloss.Style
	Italic    lipgloss.Style
	Muted     lipgloss.Style
	Highlight lipgloss.Style // Cursor row
	Accent    lipgloss.Style

	TableHeader lipgloss.Style
	TableRow    lipgloss.Style
	StripedRows bool

	GroupHeader lipgloss.Style // "Mine" / "Others"
	Modal       lipgloss.Style
	Disabled    lipgloss.Style // Toggle while its request is out
}

// adaptive pairs a light and a dark hex color.
func adaptive(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var palettes = map[string]Palette{
	// Kanagawa Wave (light) / Dragon (dark)
	"kanagawa": {
		Text:   adaptive("#2B2F42", "#DCD7BA"),
		Muted:  adaptive("#6C7086", "#727169"),
		Border: adaptive("#B5BDC5", "#363646"),
		Stripe: adaptive("#EFF1F8", "#181820"),
		OK:     adaptive("#4E7C5A", "#98BB6C"),
		Warn:   adaptive("#A68A64", "#FF9E3B"),
		Bad:    adaptive("#C34043", "#FF5D62"),
		Info:   adaptive("#5B8BBE", "#7E9CD8"),
		Accent: adaptive("#674D7A", "#957FB8"),
		Focus:  adaptive("#CC6B4E", "#FFA066"),
	},
	// The terminal's own 16 colors.
	"terminal": {
		Text:   lipgloss.Color("7"),
		Muted:  lipgloss.Color("8"),
		Border: lipgloss.Color("8"),
		Stripe: lipgloss.Color("0"),
		OK:     lipgloss.Color("2"),
		Warn:   lipgloss.Color("3"),
		Bad:    lipgloss.Color("1"),
		Info:   lipgloss.Color("6"),
		Accent: lipgloss.Color("5"),
		Focus:  lipgloss.Color("208"),
	},
}

var aliases = map[string]string{
	"kanagawa-dark":   "kanagawa",
	"kanagawa-dragon": "kanagawa",
	"kanagawa-wave":   "kanagawa",
	"ansi":            "terminal",
}

// DefaultTheme is the theme selected by EXPORTS_THEME or tui.theme.
var DefaultTheme = NewThemeWithName(configuredThemeName())

// NewTheme constructs the default theme.
func NewTheme() *Theme {
	return NewThemeWithName(defaultThemeName)
}

// NewThemeWithName constructs a named theme. Unknown names give the default.
func NewThemeWithName(name string) *Theme {
	key := resolveName(name)
	p := palettes[key]
	bold := lipgloss.NewStyle().Bold(true)

	return &Theme{
		Palette: p,

		Header: bold.Foreground(p.Focus).MarginBottom(1),

		Success: bold.Foreground(p.OK),
		Error:   bold.Foreground(p.Bad),
		Warning: bold.Foreground(p.Warn),
		Info:    bold.Foreground(p.Info),

		Bold:      bold,
		Italic:    lipgloss.NewStyle().Italic(true),
		Muted:     lipgloss.NewStyle().Faint(true),
		Highlight: bold.Foreground(p.Focus),
		Accent:    bold.Foreground(p.Accent),

		TableHeader: bold.Foreground(p.Text).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(p.Border),
		TableRow: lipgloss.NewStyle(),
		// ANSI backgrounds vary too much between terminals.
		StripedRows: key != "terminal",

		GroupHeader: bold.Foreground(p.Info).MarginTop(1),
		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Focus).
			Padding(1, 2),
		Disabled: lipgloss.NewStyle().Foreground(p.Muted).Strikethrough(true),
	}
}

// Phase returns the icon and style a task in phase p is drawn with.
func (t *Theme) Phase(p models.TaskPhase) (string, lipgloss.Style) {
	switch p {
	case models.PhasePolling:
		return IconRunning, t.Info
	case models.PhaseSucceeded:
		return IconSuccess, t.Success
	case models.PhaseFailed:
		return IconError, t.Error
	default:
		return IconPending, t.Muted
	}
}

// resolveName maps a user-supplied theme name to a palette key.
func resolveName(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "-", "_", "-").Replace(key)
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	if _, ok := palettes[key]; !ok {
		return defaultThemeName
	}
	return key
}

func configuredThemeName() string {
	if name := strings.TrimSpace(os.Getenv("EXPORTS_THEME")); name != "" {
		return name
	}
	cfg, err := config.LoadDefault()
	if err != nil || cfg == nil {
		return defaultThemeName
	}
	var tuiCfg struct {
		Theme string `yaml:"theme"`
	}
	if err := cfg.UnmarshalExtension("tui", &tuiCfg); err == nil && tuiCfg.Theme != "" {
		return tuiCfg.Theme
	}
	return defaultThemeName
}
