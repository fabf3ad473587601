package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/triage/pkg/triage/config"
	"github.com/randalmurphal/triage/pkg/triage/observability"
)

// app carries what every subcommand needs after flag parsing.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    config.AppConfig
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "triage",
		Short: "Classifier-routed workflow graphs over HTTP",
		Long: `triage routes user text through LLM classifier graphs
(customer feedback, device operations, place recommendations)
and records every run in a journal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a YAML or JSON config file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")

	root.AddCommand(
		newServeCmd(a),
		newRunCmd(a),
		newGraphCmd(),
		newVersionCmd(),
	)
	return root
}

// load reads configuration and builds the logger. Flags beat the config file.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}

	logger, err := observability.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}
