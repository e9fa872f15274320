package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grovetools/exports/cli"
	"github.com/grovetools/exports/config"
	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/internal/exportlist/bootstrap"
	"github.com/grovetools/exports/internal/exportlist/engine"
	"github.com/grovetools/exports/internal/exportlist/poller"
	"github.com/grovetools/exports/internal/exportlist/store"
	"github.com/grovetools/exports/pkg/exportapi"
	"github.com/grovetools/exports/pkg/models"
	"github.com/grovetools/exports/pkg/profiling"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"base-url": "server.base_url",
	"from":     "bootstrap.file",
	"interval": "poll.interval",
	"addr":     "serve.addr",
}

// runtime is the configuration and engine a command works with.
type runtime struct {
	cfg    *config.Config
	engine *engine.Engine
	logger *logrus.Entry
}

// loadConfig reads the config file (explicit or discovered), then applies
// EXPORTS_* variables and any changed flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	defer profiling.Start("config").Stop()
	opts := cli.GetOptions(cmd)

	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.Load(opts.ConfigFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	if path, _ := cli.InitConfig(opts.ConfigFile); path != "" {
		cli.GetLogger(cmd, "config").WithField("path", path).Debug("Using project configuration")
	}

	overlay := config.NewOverlay()
	for flag, key := range flagKeys {
		if err := overlay.BindFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to bind flag "+flag)
		}
	}
	if err := overlay.Apply(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// pollOptions converts the poll section into supervisor options.
func pollOptions(cfg *config.Config) poller.Options {
	return poller.Options{
		Interval:       cfg.Poll.Interval.Std(),
		BackoffInitial: cfg.Poll.BackoffInitial.Std(),
		BackoffMax:     cfg.Poll.BackoffMax.Std(),
		MaxRetries:     cfg.Poll.Retries(),
		MaxPolls:       cfg.Poll.MaxPolls,
	}
}

// newClient builds the server client: the scripted demo server with --demo,
// otherwise the HTTP client for server.base_url.
func newClient(cmd *cobra.Command, cfg *config.Config) (exportapi.Client, error) {
	if demo, _ := cmd.Flags().GetBool("demo"); demo {
		return newDemoClient(), nil
	}
	if cfg.Server.BaseURL == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no export server configured").
			WithDetail("hint", fmt.Sprintf("set server.base_url, %s or --base-url, or use --demo", config.EnvVar("server.base_url")))
	}
	return exportapi.NewRemoteClient(exportapi.RemoteOptions{
		BaseURL:   cfg.Server.BaseURL,
		CSRFToken: cfg.Server.CSRFToken,
		Timeout:   cfg.Server.Timeout.Std(),
		RateLimit: cfg.Server.RateLimit,
		Burst:     cfg.Server.Burst,
	})
}

// newRuntime loads the configuration and builds an engine around it.
func newRuntime(cmd *cobra.Command, component string) (*runtime, error) {
	logger := cli.GetLogger(cmd, component)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	client, err := newClient(cmd, cfg)
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:    cfg,
		engine: engine.New(client, pollOptions(cfg), logger),
		logger: logger,
	}, nil
}

// load fills the store from bootstrap.file ("-" reads stdin) or, when no
// file is configured, from the server. With bootstrap.watch the file is
// reloaded on change until ctx ends.
func (rt *runtime) load(ctx context.Context) error {
	defer profiling.Start("load").Stop()

	file := rt.cfg.Bootstrap.File
	switch file {
	case "":
		if err := rt.engine.Fetch(ctx); err != nil {
			return err
		}
	case "-":
		descriptors, err := bootstrap.Read(os.Stdin)
		if err != nil {
			return err
		}
		if err := rt.engine.Load(ctx, descriptors); err != nil {
			return err
		}
	default:
		if err := rt.engine.LoadFile(ctx, file); err != nil {
			return err
		}
		if rt.cfg.Bootstrap.Watch {
			if err := rt.engine.Watch(ctx, file, rt.cfg.Bootstrap.Debounce.Std()); err != nil {
				return err
			}
		}
	}
	rt.logger.WithField("records", rt.engine.Store().Len()).Debug("Export list loaded")
	return nil
}

// start runs the engine until the returned stop function is called. stop
// blocks until every polling cycle has ended.
func (rt *runtime) start(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		rt.engine.Run(ctx)
		close(done)
	}()
	return ctx, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			rt.logger.Warn("Engine did not stop in time")
		}
	}
}

// statusText describes a record's task for progress output.
func statusText(e store.Entry) string {
	if !e.HasTask() {
		return "no task"
	}
	if e.EmailedExport.UpdatingData {
		return "requesting"
	}
	status := e.Status()
	switch status.Phase() {
	case models.PhasePolling:
		return fmt.Sprintf("polling %d%%", status.PercentComplete)
	case models.PhaseSucceeded:
		return "succeeded"
	case models.PhaseFailed:
		return "failed: " + status.Error
	default:
		return "idle"
	}
}
