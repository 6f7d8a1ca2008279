package main

import (
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"autism-screening/internal/config"
	"autism-screening/internal/pipeline"
)

var version = "dev"

type rootOptions struct {
	configPath string
	format     string
	debug      bool
}

// screener loads the policy file named by --config, or the embedded
// default when none is given.
func (o *rootOptions) screener() (*pipeline.Screener, error) {
	cfg, err := config.LoadScreening(o.configPath)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg), nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "screenctl",
		Short: "screenctl - operator tool for the screening aggregator",
		Long: `screenctl scores questionnaires, aggregates classifier signals and
validates screening policy files without a running API.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.debug {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
			if opts.format != formatJSON && opts.format != formatYAML {
				return errors.Errorf("unsupported format %q: must be json or yaml", opts.format)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Screening policy file (default: embedded policy)")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", formatJSON, "Output format: json or yaml")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newScoreCommand(opts))
	cmd.AddCommand(newAggregateCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}
