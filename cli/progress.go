package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/exports/tui/theme"
)

// ProgressReporter prints one line per status change of a named item.
type ProgressReporter struct {
	mu       sync.Mutex
	out      io.Writer
	statuses map[string]string
	start    time.Time
}

// NewProgressReporter creates a reporter writing to out.
func NewProgressReporter(out io.Writer) *ProgressReporter {
	return &ProgressReporter{
		out:      out,
		statuses: make(map[string]string),
		start:    time.Now(),
	}
}

// Update records the status of an item and prints it when it changed.
func (p *ProgressReporter) Update(item, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.statuses[item] == status {
		return
	}
	p.statuses[item] = status
	p.render(item, status)
}

func (p *ProgressReporter) render(item, status string) {
	t := theme.DefaultTheme
	symbol := t.Muted.Render(theme.IconPending)
	switch {
	case status == "succeeded":
		symbol = t.Success.Render(theme.IconSuccess)
	case strings.HasPrefix(status, "failed"):
		symbol = t.Error.Render(theme.IconError)
	case strings.HasPrefix(status, "polling"), status == "requesting":
		symbol = t.Info.Render(theme.IconRunning)
	}

	elapsed := time.Since(p.start).Round(time.Millisecond)
	fmt.Fprintf(p.out, "%s %s: %s %s\n", symbol, item, status, t.Muted.Render("+"+elapsed.String()))
}

// Done prints the elapsed time.
func (p *ProgressReporter) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.start).Round(time.Millisecond)
	fmt.Fprintf(p.out, "\nDone in %s\n", elapsed)
}
