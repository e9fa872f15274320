package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/exports/cli"
	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/pkg/models"
	"github.com/spf13/cobra"
)

// NewToggleCmd flips auto-rebuild for one export.
func NewToggleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle <export-id>",
		Short: "Toggle auto-rebuild of an export",
		Long: `Sends the current auto-rebuild flag to the server and stores the value it
answers with.

Examples:
  exports toggle 1001`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, "toggle")
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := rt.load(ctx); err != nil {
				return err
			}
			rt.engine.Poller().StopAll()

			enabled, err := rt.engine.Toggles().Toggle(ctx, args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, map[string]interface{}{"id": args[0], "isAutoRebuildEnabled": enabled},
				fmt.Sprintf("Auto-rebuild for %s is now %s", args[0], onOff(enabled)))
		},
	}
	addSourceFlags(cmd)
	return cmd
}

// NewRegenerateCmd rebuilds one emailed export and follows its progress.
func NewRegenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regenerate <export-id>",
		Short: "Regenerate the emailed export of an export",
		Long: `Asks the server to rebuild the emailed export, then polls its progress until
it finishes (unless --wait=false).

Examples:
  exports regenerate 1002
  exports regenerate 1002 --wait=false`,
		Args: cobra.ExactArgs(1),
		RunE: runRegenerate,
	}
	addSourceFlags(cmd)
	cmd.Flags().Bool("wait", true, "Poll progress until the task finishes")
	cmd.Flags().Duration("interval", 0, "Pause between progress polls (overrides poll.interval)")
	return cmd
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	ctx, stopSignals := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	rt, err := newRuntime(cmd, "regenerate")
	if err != nil {
		return err
	}
	if err := rt.load(ctx); err != nil {
		return err
	}
	id := args[0]
	wait, _ := cmd.Flags().GetBool("wait")

	// Only the requested record is followed.
	rt.engine.Poller().StopAll()
	rt.engine.Idle()

	reporter := cli.NewProgressReporter(cmd.ErrOrStderr())
	updates := rt.engine.Store().Subscribe()
	defer rt.engine.Store().Unsubscribe(updates)

	if err := rt.engine.Toggles().RequestRegeneration(ctx, id); err != nil {
		return err
	}
	if !wait {
		rt.engine.Poller().StopAll()
		return printResult(cmd, map[string]interface{}{"id": id, "requested": true},
			fmt.Sprintf("Regeneration of %s requested", id))
	}

	idle := make(chan struct{})
	go func() {
		rt.engine.Idle()
		close(idle)
	}()

	for {
		select {
		case u := <-updates:
			if u.RecordID == id && u.Entry != nil {
				reporter.Update(u.Entry.Name, statusText(*u.Entry))
			}
		case <-idle:
			e, err := rt.engine.Store().Entry(id)
			if err != nil {
				return err
			}
			status := e.Status()
			if status.Phase() == models.PhaseFailed {
				return errors.PollExhausted(id, rt.cfg.Poll.Retries()+1, errors.New(errors.ErrCodeTransport, status.Error))
			}
			return printResult(cmd, map[string]interface{}{"id": id, "task": status},
				fmt.Sprintf("Emailed export of %s regenerated", e.Name))
		case <-ctx.Done():
			rt.engine.Poller().StopAll()
			rt.engine.Idle()
			return nil
		}
	}
}

// NewBulkCmd downloads a bulk selection.
func NewBulkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk [export-id...]",
		Short: "Download several exports at once",
		Long: `Selects the given exports (or all with --all) and submits the bulk-download
form. The form carries the selected records as a JSON array, in list order.

Examples:
  exports bulk 1001 1004
  exports bulk --all --json`,
		RunE: runBulk,
	}
	addSourceFlags(cmd)
	cmd.Flags().Bool("all", false, "Select every export")
	cmd.Flags().Bool("payload", false, "Print the form payload instead of submitting it")
	return cmd
}

func runBulk(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if !all && len(args) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "name the exports to download or pass --all")
	}

	rt, err := newRuntime(cmd, "bulk")
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := rt.load(ctx); err != nil {
		return err
	}
	rt.engine.Poller().StopAll()

	agg := rt.engine.Bulk()
	if all {
		agg.SelectAll()
	}
	for _, id := range args {
		if err := agg.Set(id, true); err != nil {
			return err
		}
	}

	if payload, _ := cmd.Flags().GetBool("payload"); payload {
		fmt.Fprintln(cmd.OutOrStdout(), agg.Payload())
		return nil
	}

	res, err := agg.Download(ctx, rt.engine.Client())
	if err != nil {
		return err
	}
	return printResult(cmd, res, fmt.Sprintf("Downloaded %d exports to %s (%d bytes)", res.Exports, res.Filename, res.Bytes))
}

// printResult writes v as JSON with --json, otherwise the message.
func printResult(cmd *cobra.Command, v interface{}, message string) error {
	if cli.GetOptions(cmd).JSONOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Fprintln(cmd.OutOrStdout(), message)
	return nil
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
