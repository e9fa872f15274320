package exportlist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/exports/internal/exportlist/store"
	"github.com/grovetools/exports/pkg/models"
	"github.com/grovetools/exports/tui/theme"
)

// View renders the grouped list, the open dialog and the footer.
func (m *Model) View() string {
	t := theme.DefaultTheme

	if m.help.ShowAll {
		return m.help.View(m.keys)
	}

	var b strings.Builder
	b.WriteString(t.Header.Render("Exports"))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString(t.Muted.Render("No exports loaded."))
		b.WriteString("\n")
	}

	if m.mineCount > 0 {
		b.WriteString(t.GroupHeader.Render("Mine"))
		b.WriteString("\n")
		for i := 0; i < m.mineCount; i++ {
			b.WriteString(m.renderRow(i))
			b.WriteString("\n")
		}
	}
	if len(m.rows) > m.mineCount {
		b.WriteString(t.GroupHeader.Render("Others"))
		b.WriteString("\n")
		for i := m.mineCount; i < len(m.rows); i++ {
			b.WriteString(m.renderRow(i))
			b.WriteString("\n")
		}
	}

	if m.modalOpen() {
		b.WriteString("\n")
		b.WriteString(m.renderModal())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) renderRow(i int) string {
	t := theme.DefaultTheme
	e := m.rows[i]

	cursor := "  "
	if i == m.cursor {
		cursor = t.Highlight.Render(theme.IconArrow) + " "
	}

	check := theme.IconUnselected
	if e.AddedToBulk {
		check = t.Accent.Render(theme.IconSelected)
	}

	name := e.Name
	if i == m.cursor {
		name = t.Bold.Render(name)
	}

	auto := t.Muted.Render(theme.IconAutoRebuild + " off")
	if e.IsAutoRebuildEnabled {
		auto = t.Success.Render(theme.IconAutoRebuild + " on")
	}
	if e.ToggleBusy {
		auto = t.Disabled.Render(auto)
	}

	parts := []string{cursor + check, name, string(e.ExportType), auto, m.renderTask(e)}
	line := strings.Join(parts, "  ")
	if e.LastError != "" {
		line += "  " + t.Error.Render(theme.IconError+" "+e.LastError)
	}
	return line
}

// renderTask shows the progress of the record's emailed export.
func (m *Model) renderTask(e store.Entry) string {
	t := theme.DefaultTheme
	if !e.HasTask() {
		return ""
	}
	if e.EmailedExport.UpdatingData {
		return t.Info.Render(theme.IconPending + " requesting")
	}

	status := e.Status()
	phase := status.Phase()
	icon, style := t.Phase(phase)
	switch phase {
	case models.PhasePolling:
		pct := float64(status.PercentComplete) / 100
		return fmt.Sprintf("%s %s %3d%%", style.Render(icon), m.bar.ViewAs(pct), status.PercentComplete)
	case models.PhaseSucceeded:
		label := "ready"
		if status.JustFinished {
			label = "just finished"
		}
		return style.Render(icon + " " + label)
	case models.PhaseFailed:
		return style.Render(icon + " failed")
	default:
		if e.EmailedExport.LastUpdated != "" {
			return t.Muted.Render("updated " + e.EmailedExport.LastUpdated)
		}
		return ""
	}
}

func (m *Model) renderModal() string {
	t := theme.DefaultTheme
	e, err := m.engine.Store().Entry(m.modalID)
	if err != nil {
		return ""
	}

	var title, body string
	switch m.modalKind {
	case store.ModalAutoRefresh:
		title = "Auto-rebuild"
		next := "enable"
		if e.IsAutoRebuildEnabled {
			next = "disable"
		}
		body = fmt.Sprintf("%s automatic rebuilds of %q?", strings.ToUpper(next[:1])+next[1:], e.Name)
	case store.ModalRefreshConfirm:
		title = "Regenerate"
		body = fmt.Sprintf("Rebuild the emailed export of %q now?", e.Name)
	}

	lines := []string{t.Bold.Render(title), body}
	if e.LastError != "" {
		lines = append(lines, t.Error.Render(e.LastError))
	}
	if e.ToggleBusy {
		lines = append(lines, t.Muted.Render("Waiting for the server..."))
	} else {
		lines = append(lines, t.Muted.Render("y confirm · esc cancel"))
	}
	return t.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderFooter() string {
	t := theme.DefaultTheme
	var parts []string

	if view := m.bulkView(); view.Visible {
		parts = append(parts, t.Accent.Render(fmt.Sprintf("%s %d selected", theme.IconDownload, view.Count)))
	}
	if m.message != "" {
		parts = append(parts, m.message)
	}
	parts = append(parts, m.help.View(m.keys))
	return strings.Join(parts, "\n")
}
