package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grovetools/exports/tui/theme"
)

// PrettyLogger prints human-facing status lines, as opposed to log entries.
type PrettyLogger struct {
	writer io.Writer
	theme  *theme.Theme
}

// NewPrettyLogger writes to stderr with the default theme.
func NewPrettyLogger() *PrettyLogger {
	return &PrettyLogger{
		writer: os.Stderr,
		theme:  theme.DefaultTheme,
	}
}

// WithWriter sets a custom writer for pretty output
func (p *PrettyLogger) WithWriter(w io.Writer) *PrettyLogger {
	p.writer = w
	return p
}

// Success prints message after a success icon.
func (p *PrettyLogger) Success(message string) {
	fmt.Fprintf(p.writer, "%s %s\n", p.theme.Success.Render(theme.IconSuccess), p.theme.Success.Render(message))
}

// Warn prints message after a warning icon.
func (p *PrettyLogger) Warn(message string) {
	fmt.Fprintf(p.writer, "%s %s\n", p.theme.Warning.Render(theme.IconWarning), p.theme.Warning.Render(message))
}

// Field prints an indented key-value pair.
func (p *PrettyLogger) Field(key string, value interface{}) {
	fmt.Fprintf(p.writer, "  %s %s\n", p.theme.Muted.Render(key+":"), p.theme.Bold.Render(fmt.Sprint(value)))
}

// Path prints an indented labelled file path.
func (p *PrettyLogger) Path(label, path string) {
	fmt.Fprintf(p.writer, "  %s %s\n", p.theme.Muted.Render(label+":"), p.theme.Italic.Render(path))
}

// Divider prints a horizontal rule.
func (p *PrettyLogger) Divider() {
	fmt.Fprintln(p.writer, p.theme.Muted.Render(strings.Repeat("─", 40)))
}
