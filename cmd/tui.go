package cmd

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/exports/logging"
	"github.com/grovetools/exports/tui"
	"github.com/grovetools/exports/tui/exportlist"
	"github.com/spf13/cobra"
)

// NewTUICmd opens the interactive export list.
func NewTUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse exports interactively",
		Long: `Shows the export list grouped into your exports and others. Select records
for bulk download, toggle auto-rebuild and regenerate emailed exports.

Examples:
  exports tui
  exports tui --demo`,
		Args: cobra.NoArgs,
		RunE: runTUI,
	}
	addSourceFlags(cmd)
	return cmd
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, stopSignals := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	tui.InitializeTUI()

	// Log lines would corrupt the alternate screen.
	defer logging.Redirect(io.Discard)()

	rt, err := newRuntime(cmd, "tui")
	if err != nil {
		return err
	}
	runCtx, stop := rt.start(ctx)
	defer stop()

	if err := rt.load(runCtx); err != nil {
		return err
	}

	model := exportlist.New(runCtx, rt.engine, exportlist.LoadKeyMap(rt.cfg))
	defer model.Close()

	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(runCtx)).Run()
	if err != nil && runCtx.Err() != nil {
		// Interrupted.
		return nil
	}
	return err
}
