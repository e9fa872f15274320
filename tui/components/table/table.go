// Package table renders static lipgloss tables in the exports style.
package table

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/grovetools/exports/tui/theme"
)

// Options provides additional configuration for the table
type Options struct {
	Bordered      bool
	AlternateRows bool
	// Width fixes the rendered width. 0 sizes the table to its content.
	Width int
	Theme *theme.Theme
}

// DefaultOptions returns the default table options
func DefaultOptions() Options {
	return Options{
		Bordered:      true,
		AlternateRows: theme.DefaultTheme.StripedRows,
		Theme:         theme.DefaultTheme,
	}
}

// NewStyledTable creates a lipgloss table with the default styling.
func NewStyledTable() *ltable.Table {
	return NewStyledTableWithOptions(DefaultOptions())
}

// NewStyledTableWithOptions creates a table with custom options
func NewStyledTableWithOptions(opts Options) *ltable.Table {
	if opts.Theme == nil {
		opts.Theme = theme.DefaultTheme
	}
	t := opts.Theme

	table := ltable.New()
	if opts.Bordered {
		table = table.
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(t.Palette.Border))
	} else {
		table = table.Border(lipgloss.HiddenBorder())
	}
	if opts.Width > 0 {
		table = table.Width(opts.Width)
	}

	// With Headers set, row indices in StyleFunc start at 0 for data rows and
	// the header row is ltable.HeaderRow.
	return table.StyleFunc(func(row, col int) lipgloss.Style {
		if row == ltable.HeaderRow {
			return t.TableHeader.Padding(0, 1)
		}
		style := t.TableRow.Padding(0, 1)
		if opts.AlternateRows && row%2 == 1 {
			style = style.Background(t.Palette.Stripe)
		}
		return style
	})
}

// Render builds a table with headers and rows and returns its string form.
func Render(opts Options, headers []string, rows [][]string) string {
	table := NewStyledTableWithOptions(opts).Headers(headers...)
	for _, r := range rows {
		table = table.Row(r...)
	}
	return table.String()
}
