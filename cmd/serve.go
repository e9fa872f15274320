package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/internal/pidfile"
	"github.com/grovetools/exports/internal/server"
	"github.com/grovetools/exports/logging"
	"github.com/spf13/cobra"
)

// NewServeCmd serves the export list over HTTP.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the export list state over HTTP",
		Long: `Starts an HTTP server exposing the export list as JSON, with actions for
toggling, regeneration and bulk selection, plus live updates over server-sent
events (/api/stream) and WebSocket (/api/ws).

Examples:
  exports serve
  exports serve --addr 127.0.0.1:9000 --demo`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	addSourceFlags(cmd)
	cmd.Flags().String("addr", "", "Listen address (overrides serve.addr)")
	cmd.Flags().String("pidfile", "", "Refuse to start if another server holds this PID file")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stopSignals := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	rt, err := newRuntime(cmd, "serve")
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("pidfile"); path != "" {
		if err := pidfile.Acquire(path); err != nil {
			return err
		}
		defer func() { _ = pidfile.Release(path) }()
	}
	runCtx, stop := rt.start(ctx)
	defer stop()

	if err := rt.load(runCtx); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", rt.cfg.Serve.Addr)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to listen on "+rt.cfg.Serve.Addr)
	}

	srv := server.New(rt.engine, rt.logger)
	go func() {
		<-runCtx.Done()
		rt.logger.Info("Received stop signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.logger.WithError(err).Error("Server shutdown error")
		}
	}()

	rt.logger.WithField("addr", listener.Addr().String()).Info("Serving export list")
	banner := logging.NewPrettyLogger().WithWriter(cmd.ErrOrStderr())
	banner.Success("Serving export list")
	banner.Field("url", "http://"+listener.Addr().String()+"/api/exports")
	banner.Field("exports", rt.engine.Store().Len())
	if path, _ := cmd.Flags().GetString("pidfile"); path != "" {
		banner.Path("pidfile", path)
	}
	return srv.Serve(listener)
}
