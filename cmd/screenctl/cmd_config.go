package main

import (
	"github.com/spf13/cobra"

	"autism-screening/internal/screening"
)

type configSummary struct {
	Status    string                      `json:"status" yaml:"status"`
	Source    string                      `json:"source" yaml:"source"`
	Policy    screening.AggregationPolicy `json:"policy" yaml:"policy"`
	Polarity  string                      `json:"polarity" yaml:"polarity"`
	Threshold float64                     `json:"threshold" yaml:"threshold"`
	Questions int                         `json:"questions" yaml:"questions"`
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect screening policy files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the policy file given by --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.screener()
			if err != nil {
				return err
			}
			cfg := s.Config()
			source := opts.configPath
			if source == "" {
				source = "embedded"
			}
			return render(cmd.OutOrStdout(), opts.format, configSummary{
				Status:    "ok",
				Source:    source,
				Policy:    cfg.Policy,
				Polarity:  string(cfg.Polarity),
				Threshold: cfg.Questions.Threshold,
				Questions: len(cfg.Questions.Questions),
			})
		},
	})
	return cmd
}
