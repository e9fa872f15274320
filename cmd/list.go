package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/grovetools/exports/cli"
	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/internal/exportlist/store"
	"github.com/grovetools/exports/tui/components/table"
	"github.com/grovetools/exports/tui/theme"
	"github.com/moby/patternmatcher"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewListCmd prints a snapshot of the export list.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the export list as a table",
		Long: `Loads the export list once and prints it grouped into your exports and
others. --match keeps records whose name matches one of the patterns
(wildcards as in .dockerignore; a leading ! excludes).

Examples:
  exports list
  exports list --match 'Weekly*' --match '!*draft*'
  exports list --json`,
		Args: cobra.NoArgs,
		RunE: runList,
	}
	addSourceFlags(cmd)
	cmd.Flags().StringSlice("match", nil, "Only show exports whose name matches a pattern")
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd, "list")
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := rt.load(ctx); err != nil {
		return err
	}
	// A snapshot does not follow running tasks.
	rt.engine.Poller().StopAll()
	rt.engine.Idle()

	patterns, _ := cmd.Flags().GetStringSlice("match")
	entries, err := filterEntries(rt.engine.Store().Entries(), patterns)
	if err != nil {
		return err
	}

	if cli.GetOptions(cmd).JSONOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	out := cmd.OutOrStdout()
	var mine, others []store.Entry
	for _, e := range entries {
		if e.MyExport {
			mine = append(mine, e)
		} else {
			others = append(others, e)
		}
	}
	opts := table.DefaultOptions()
	opts.Width = tableWidth()

	if len(entries) == 0 {
		fmt.Fprintln(out, theme.DefaultTheme.Muted.Render("No exports."))
		return nil
	}
	for _, group := range []struct {
		title   string
		entries []store.Entry
	}{{"Mine", mine}, {"Others", others}} {
		if len(group.entries) == 0 {
			continue
		}
		fmt.Fprintln(out, theme.DefaultTheme.GroupHeader.Render(group.title))
		fmt.Fprintln(out, table.Render(opts, listHeaders, listRows(group.entries)))
	}
	return nil
}

var listHeaders = []string{"ID", "NAME", "TYPE", "AUTO-REBUILD", "TASK"}

func listRows(entries []store.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		auto := "off"
		if e.IsAutoRebuildEnabled {
			auto = "on"
		}
		rows = append(rows, []string{e.ID, e.Name, string(e.ExportType), auto, statusText(e)})
	}
	return rows
}

// filterEntries keeps entries whose name matches the patterns. No patterns
// keeps everything.
func filterEntries(entries []store.Entry, patterns []string) ([]store.Entry, error) {
	if len(patterns) == 0 {
		return entries, nil
	}
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid --match pattern")
	}

	var kept []store.Entry
	for _, e := range entries {
		ok, err := pm.MatchesOrParentMatches(e.Name)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid --match pattern")
		}
		if ok {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

// tableWidth returns the terminal width, or 0 when stdout is not a terminal.
func tableWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}
