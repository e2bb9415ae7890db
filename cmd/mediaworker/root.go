package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/eleven-am/mediaworker"
	"github.com/eleven-am/mediaworker/internal/config"
)

// commandContext carries global flags and lazily loaded configuration.
type commandContext struct {
	configFlag string
	logLevel   string
	logFormat  string
	hwaccel    string
	metrics    bool

	worker *mediaworker.Worker
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "mediaworker",
		Short:         "Local harness for the media worker plugin",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !ctx.metrics || ctx.worker == nil {
				return nil
			}
			return dumpMetrics(cmd.ErrOrStderr(), ctx.worker.Gatherer())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&ctx.logFormat, "log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&ctx.hwaccel, "hwaccel", "", "Accelerator (none, auto, cuda, vaapi, qsv, videotoolbox)")
	rootCmd.PersistentFlags().BoolVar(&ctx.metrics, "metrics", false, "Print worker metrics to stderr when the command finishes")

	rootCmd.AddCommand(newStreamsCommand(ctx))
	rootCmd.AddCommand(newSubtitlesCommand(ctx))
	rootCmd.AddCommand(newAccelCommand(ctx))

	return rootCmd
}

// loadConfig applies flags on top of the file and environment.
func (c *commandContext) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configFlag)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Logging.Format = c.logFormat
	}
	if c.hwaccel != "" {
		cfg.HWAccel = c.hwaccel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func (c *commandContext) newWorker(cmd *cobra.Command) (*mediaworker.Worker, *config.Config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	opts, err := mediaworker.OptionsFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	w, err := mediaworker.NewWorker(opts)
	if err != nil {
		return nil, nil, err
	}
	c.worker = w
	return w, cfg, nil
}

// dumpMetrics writes every gathered family in the Prometheus text format.
func dumpMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
