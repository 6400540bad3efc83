package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ArionMiles/budgify/internal/buildinfo"
	"github.com/ArionMiles/budgify/internal/metrics"
	"github.com/ArionMiles/budgify/internal/pipeline"
	"github.com/ArionMiles/budgify/internal/plugins"
	"github.com/ArionMiles/budgify/pkg/config"
	"github.com/ArionMiles/budgify/pkg/logging"
)

const (
	defaultConfigFile = "config.yaml"
	defaultEnvFile    = ".env"
)

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	envFile    string
	logLevel   string
	logJSON    bool

	cfg      *config.Config
	logger   *slog.Logger
	registry *plugins.Registry
}

func newRootCommand() *cobra.Command {
	a := &app{registry: plugins.Builtin()}

	rootCmd := &cobra.Command{
		Use:     "budgify",
		Short:   "Import bank statements into a deduplicated budget ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["skip_config"] == "true" {
				return nil
			}
			return a.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", defaultConfigFile, "path to the YAML config file")
	flags.StringVar(&a.envFile, "env-file", defaultEnvFile, "dotenv file loaded before BUDGIFY_ variables are read")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	flags.BoolVar(&a.logJSON, "log-json", false, "log as JSON")

	rootCmd.AddCommand(
		newImportCommand(a),
		newSummaryCommand(a),
		newServeCommand(a),
		newWatchCommand(a),
		newStatusCommand(a),
		newPluginsCommand(a),
		newVersionCommand(),
	)
	return rootCmd
}

// load reads the dotenv file and the config, then sets up logging. The
// default config and env files may be absent; explicitly named ones may not.
func (a *app) load(cmd *cobra.Command) error {
	if err := godotenv.Load(a.envFile); err != nil {
		if cmd.Flags().Changed("env-file") || !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading env file %s: %w", a.envFile, err)
		}
	}

	path := a.configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.logger = logging.Setup(logging.Config{
		Level:  logging.ParseLevel(level),
		JSON:   a.logJSON || cfg.Log.JSON,
		Output: os.Stderr,
	})
	a.logger.Debug("configuration loaded", "path", path, "sinks", cfg.SinkNames())
	return nil
}

// runner opens the configured sinks and builds an import runner over them.
// The caller closes the returned sinks.
func (a *app) runner(ctx context.Context, only []string, m *metrics.Metrics) (*pipeline.Runner, *pipeline.Sinks, error) {
	sinks, err := pipeline.OpenSinks(ctx, a.registry, a.cfg, pipeline.OpenOptions{
		Only:        only,
		Interactive: true,
	}, a.logger)
	if err != nil {
		return nil, nil, err
	}

	r, err := pipeline.New(pipeline.Config{
		Registry: a.registry,
		Rules:    a.cfg.Rules,
		Sinks:    sinks.List,
		Source:   sinks.Source,
		Loaders:  a.cfg.Loaders,
		Metrics:  m,
	}, a.logger.With("component", "pipeline"))
	if err != nil {
		sinks.Close()
		return nil, nil, err
	}
	return r, sinks, nil
}

// options returns the run options the config implies.
func (a *app) options() pipeline.Options {
	return pipeline.Options{
		Dir:             a.cfg.SourceDir,
		IncludePayments: a.cfg.IncludePayments,
		ManualFile:      a.cfg.ManualPath(),
		Recurring:       a.cfg.Recurring,
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skip_config": "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "budgify", buildinfo.String())
		},
	}
}
