package cmd

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/exports/cli"
	"github.com/grovetools/exports/internal/exportlist/store"
	"github.com/spf13/cobra"
)

// NewWatchCmd follows task progress until every cycle ends.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print task progress until every running export finishes",
		Long: `Loads the export list, resumes polling for tasks that are still running and
prints each status change. Without --follow the command exits once no task is
being polled; with --follow it keeps running (and reloads a --from file when it
changes) until interrupted.

Examples:
  exports watch
  exports watch --from exports.json --follow
  cat exports.yml | exports watch --from - --json`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
	addSourceFlags(cmd)
	cmd.Flags().Bool("follow", false, "Keep running after all tasks finish and reload a --from file on change")
	cmd.Flags().Duration("interval", 0, "Pause between progress polls (overrides poll.interval)")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stopSignals := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	rt, err := newRuntime(cmd, "watch")
	if err != nil {
		return err
	}
	opts := cli.GetOptions(cmd)
	out := cmd.OutOrStdout()
	reporter := cli.NewProgressReporter(out)
	enc := json.NewEncoder(out)

	report := func(e store.Entry) {
		if opts.JSONOutput {
			_ = enc.Encode(map[string]interface{}{"id": e.ID, "name": e.Name, "status": statusText(e), "task": e.Status()})
			return
		}
		reporter.Update(e.Name, statusText(e))
	}

	updates := rt.engine.Store().Subscribe()
	defer rt.engine.Store().Unsubscribe(updates)

	follow, _ := cmd.Flags().GetBool("follow")
	if follow && rt.cfg.Bootstrap.File != "" && rt.cfg.Bootstrap.File != "-" {
		rt.cfg.Bootstrap.Watch = true
	}
	follow = follow || rt.cfg.Bootstrap.Watch

	runCtx, stop := rt.start(ctx)
	defer stop()

	if err := rt.load(runCtx); err != nil {
		return err
	}
	for _, e := range rt.engine.Store().Entries() {
		if e.HasTask() {
			report(e)
		}
	}

	idle := make(chan struct{})
	if !follow {
		go func() {
			rt.engine.Idle()
			close(idle)
		}()
	}

	for {
		select {
		case u := <-updates:
			if u.Entry != nil && u.Entry.HasTask() {
				report(*u.Entry)
			}
		case <-idle:
			drain(updates, report)
			if !opts.JSONOutput {
				reporter.Done()
			}
			return nil
		case <-runCtx.Done():
			return nil
		}
	}
}

// drain reports updates that are already queued.
func drain(updates chan store.Update, report func(store.Entry)) {
	for {
		select {
		case u := <-updates:
			if u.Entry != nil && u.Entry.HasTask() {
				report(*u.Entry)
			}
		default:
			return
		}
	}
}
