package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360/campaignpulse/config"
)

// globalFlags are shared by every subcommand. Set flags override the
// config file and environment.
type globalFlags struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	MetricsPort int
	Output      string
}

type cli struct {
	flags  globalFlags
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   appName,
		Short: "Campaign KPI client",
		Long: `campaignpulse reads campaign metadata and KPI summaries from the
campaign API and follows live insight updates over server-sent events.

Configuration is read from an optional JSON file (--config or
CAMPAIGNPULSE_CONFIG), then CAMPAIGNPULSE_* environment variables, then
the flags below.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.flags.ConfigPath, "config", "c", os.Getenv("CAMPAIGNPULSE_CONFIG"),
		"Path to configuration file (env: CAMPAIGNPULSE_CONFIG)")
	pf.StringVar(&c.flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&c.flags.LogFormat, "log-format", "", "Log format: json, text")
	pf.IntVar(&c.flags.MetricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port while watching")
	pf.StringVarP(&c.flags.Output, "output", "o", "table", "Output format: table, json")

	root.AddCommand(
		newListCmd(c),
		newGetCmd(c),
		newInsightsCmd(c),
		newWatchCmd(c),
	)
	return root
}

// init loads configuration and builds the logger.
func (c *cli) init(cmd *cobra.Command) error {
	loader := config.NewLoader()
	if c.flags.ConfigPath != "" {
		loader.AddLayer(c.flags.ConfigPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = c.flags.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = c.flags.LogFormat
	}
	if flags.Changed("metrics-port") {
		cfg.Metrics.Enabled = c.flags.MetricsPort > 0
		cfg.Metrics.Port = c.flags.MetricsPort
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := validateOutput(c.flags.Output); err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = setupLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(c.logger)

	c.logger.Debug("Configuration loaded",
		"config_path", c.flags.ConfigPath,
		"base_url", cfg.API.BaseURL)
	return nil
}

// withApp builds the client stack for one command run and tears it down
// afterwards.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn("Shutdown incomplete", "error", err)
		}
	}()

	return fn(ctx, a)
}
