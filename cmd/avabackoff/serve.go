package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/avabackoff/internal/api"
	"github.com/vyrodovalexey/avabackoff/internal/config"
	"github.com/vyrodovalexey/avabackoff/internal/observability"
	"github.com/vyrodovalexey/avabackoff/internal/retry"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve runs the HTTP API until SIGINT or SIGTERM.

With --watch the configuration file is reloaded on change and the new default
policy is pushed to stream subscribers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, watch)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the configuration file when it changes")

	return cmd
}

// application holds all serve components.
type application struct {
	server  *api.Server
	watcher *config.Watcher
	logger  observability.Logger
}

func runServe(ctx context.Context, opts *rootOptions, watch bool) error {
	app, err := initApplication(ctx, opts, watch)
	if err != nil {
		return err
	}
	defer func() { _ = app.logger.Sync() }()

	<-ctx.Done()
	app.logger.Info("received shutdown signal")

	return app.shutdown()
}

// initApplication loads the configuration, starts the server and, when
// asked, the configuration watcher.
func initApplication(ctx context.Context, opts *rootOptions, watch bool) (*application, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg, false)
	if err != nil {
		return nil, err
	}
	logger.Info("starting avabackoff",
		observability.String("version", version),
		observability.String("config", opts.configPath),
	)

	metrics := observability.NewMetrics(config.DefaultServiceName)
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	tracer, err := observability.NewTracer(cfg.TracerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	server, err := api.NewServer(cfg,
		api.WithLogger(logger),
		api.WithMetrics(metrics),
		api.WithTracer(tracer),
		api.WithVersion(version),
	)
	if err != nil {
		return nil, err
	}
	if err := server.Start(ctx); err != nil {
		return nil, err
	}

	app := &application{server: server, logger: logger}

	if watch {
		app.watcher = startConfigWatcher(ctx, opts, server, metrics, logger)
	}

	return app, nil
}

// startConfigWatcher watches the configuration file and applies every
// valid revision to the server.
func startConfigWatcher(
	ctx context.Context,
	opts *rootOptions,
	server *api.Server,
	metrics *observability.Metrics,
	logger observability.Logger,
) *config.Watcher {
	if opts.configPath == "" {
		logger.Warn("--watch needs --config, not watching")
		return nil
	}

	watcher, err := config.NewWatcher(opts.configPath, func(newCfg *config.Config) {
		opts.applyFlags(newCfg)
		server.UpdateConfig(newCfg)
	},
		config.WithLogger(logger),
		config.WithRetryMetrics(retry.NewMetrics(config.DefaultServiceName, metrics.Registry())),
		config.WithErrorCallback(func(error) {
			metrics.RecordConfigReload(false)
		}),
	)
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		_ = watcher.Stop()
		return nil
	}

	return watcher
}

// shutdown stops the watcher and drains the server.
func (a *application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.server.ShutdownTimeout())
	defer cancel()

	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("failed to stop config watcher", observability.Error(err))
		}
	}

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to stop server gracefully", observability.Error(err))
		return err
	}

	a.logger.Info("avabackoff stopped")
	return nil
}
