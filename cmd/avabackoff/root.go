package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/avabackoff/internal/config"
	"github.com/vyrodovalexey/avabackoff/internal/observability"
	"github.com/vyrodovalexey/avabackoff/internal/render"
)

// errInvalidPolicy is returned after validation errors have been printed.
var errInvalidPolicy = errors.New("invalid policy")

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	locale     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "avabackoff",
		Short: "Compute and explain retry backoff schedules",
		Long: `avabackoff computes the delay schedule of a retry backoff policy.

Policies combine a strategy (exponential, linear or fixed), an optional
maximum delay and a jitter mode (none, equal or full). Schedules can be
printed, explained formula by formula, shared as URL queries and served
over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c",
		getEnvOrDefault(envConfigPath, ""), "Path to configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "",
		"Log format (json, console)")
	root.PersistentFlags().StringVar(&opts.locale, "locale", "",
		"Locale used to format numbers, e.g. en or de")

	root.AddCommand(
		newScheduleCmd(opts),
		newExplainCmd(opts),
		newValidateCmd(opts),
		newShareCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)

	return root
}

// loadConfig reads the configuration file, if any, and applies flag
// overrides on top of file and environment values.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	o.applyFlags(cfg)
	return cfg, nil
}

func (o *rootOptions) applyFlags(cfg *config.Config) {
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	if o.locale != "" {
		cfg.Locale = o.locale
	}
}

// newLogger builds the logger. Commands other than serve log to stderr so
// their output stays machine-readable.
func newLogger(cfg *config.Config, toStderr bool) (observability.Logger, error) {
	lc := cfg.LogConfig()
	if toStderr {
		lc.Output = "stderr"
	}
	logger, err := observability.NewLogger(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// cliEnv is what every one-shot command needs.
type cliEnv struct {
	cfg    *config.Config
	logger observability.Logger
	format *render.Formatter
}

func (o *rootOptions) setup() (*cliEnv, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, true)
	if err != nil {
		return nil, err
	}
	return &cliEnv{
		cfg:    cfg,
		logger: logger,
		format: render.NewFormatter(cfg.Locale),
	}, nil
}
