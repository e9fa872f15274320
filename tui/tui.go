// Package tui holds the terminal front-ends of exports.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// InitializeTUI prepares the terminal environment for TUI applications.
// When `CLICOLOR_FORCE=1` or `COLORTERM=truecolor` is set, the lipgloss color
// profile is forced to true color so output stays styled without a TTY.
// Call it at the start of a TUI command.
func InitializeTUI() {
	if os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor" {
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}
