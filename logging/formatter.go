package logging

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/exports/tui/theme"
	"github.com/sirupsen/logrus"
)

// Fields the text format lifts out of the key=value tail.
const (
	fieldComponent = "component"
	fieldExportID  = "export_id"
)

// TextFormatter renders one line per entry:
//
//	15:04:05 WARN  poller  #1002  Progress request failed  error="reset"
//
// The record id follows the component so lines about one export line up.
// Remaining fields are appended sorted by key.
type TextFormatter struct {
	Config FormatConfig
}

// Format renders a single log entry.
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	t := theme.DefaultTheme
	var b strings.Builder

	if !f.Config.DisableTimestamp {
		b.WriteString(t.Muted.Render(entry.Time.Format("15:04:05")))
		b.WriteByte(' ')
	}
	b.WriteString(levelStyle(t, entry.Level).Render(fmt.Sprintf("%-5s", levelName(entry.Level))))

	if c, ok := entry.Data[fieldComponent]; ok && !f.Config.DisableComponent {
		b.WriteString("  " + t.Accent.Render(fmt.Sprint(c)))
	}
	if id, ok := entry.Data[fieldExportID]; ok {
		b.WriteString("  " + t.Bold.Render("#"+fmt.Sprint(id)))
	}
	if entry.HasCaller() {
		fmt.Fprintf(&b, "  %s", t.Muted.Render(fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)))
	}

	b.WriteString("  ")
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != fieldComponent && k != fieldExportID {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s=%s", k, fieldValue(entry.Data[k]))
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func levelName(l logrus.Level) string {
	if l == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(l.String())
}

func levelStyle(t *theme.Theme, l logrus.Level) lipgloss.Style {
	switch {
	case l <= logrus.ErrorLevel:
		return t.Error
	case l == logrus.WarnLevel:
		return t.Warning
	case l == logrus.InfoLevel:
		return t.Info
	default:
		return t.Muted
	}
}

// fieldValue quotes values with spaces so the tail stays splittable.
func fieldValue(v interface{}) string {
	var s string
	if err, ok := v.(error); ok {
		s = err.Error()
	} else {
		s = fmt.Sprint(v)
	}
	if strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
