package cmd

import (
	"github.com/grovetools/exports/cli"
	"github.com/grovetools/exports/pkg/profiling"
	"github.com/grovetools/exports/version"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the exports command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"exports",
		"Track export generation, auto-rebuild and bulk selection",
	)
	root.Long = `Loads a list of saved exports, polls the progress of their emailed
exports, toggles auto-rebuild and builds bulk-download selections.

Records come from the export server (server.base_url) or from a descriptor
file (bootstrap.file). --demo uses a built-in scripted server.

Examples:
  # Follow every running export until it finishes
  exports watch
  # Browse the list interactively
  exports tui --demo
  # Serve the list to a browser
  exports serve --addr 127.0.0.1:8765`

	root.PersistentFlags().Bool("demo", false, "Use the built-in demo server instead of server.base_url")
	root.PersistentFlags().String("base-url", "", "Export server base URL (overrides server.base_url)")
	cli.MarkFlagGroup(root.PersistentFlags(), "demo", cli.SourceFlagGroup)
	cli.MarkFlagGroup(root.PersistentFlags(), "base-url", cli.SourceFlagGroup)

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(root)
	root.PersistentPreRunE = profiler.PreRun
	root.PersistentPostRun = profiler.PostRun

	root.AddCommand(NewWatchCmd())
	root.AddCommand(NewTUICmd())
	root.AddCommand(NewServeCmd())
	root.AddCommand(NewListCmd())
	root.AddCommand(NewToggleCmd())
	root.AddCommand(NewRegenerateCmd())
	root.AddCommand(NewBulkCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(cli.NewVersionCommand("exports"))
	cli.SetVersionTemplate(root, version.GetInfo())

	return root
}

// addSourceFlags adds the flags selecting where records are loaded from.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "Descriptor file to load instead of fetching from the server ('-' reads stdin)")
	cli.MarkFlagGroup(cmd.Flags(), "from", cli.SourceFlagGroup)
}
