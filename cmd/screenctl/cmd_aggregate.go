package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"autism-screening/internal/schemas"
	"autism-screening/internal/screening"
)

func newAggregateCommand(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "aggregate [--file signals.json]",
		Short: "Aggregate classifier signals into a screening report",
		Long: `Aggregate reads {"signals": [...], "answers": [...]} as JSON or YAML
from --file or stdin and prints the resulting report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return errors.Wrapf(err, "open %s", file)
				}
				defer f.Close()
				in = f
			}
			req, err := readRequest(in)
			if err != nil {
				return err
			}
			s, err := opts.screener()
			if err != nil {
				return err
			}
			slog.Debug("aggregating", "signals", len(req.Signals), "answers", len(req.Answers))
			report, err := s.Screen(req)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.format, report.Document())
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Signals file (default: stdin)")
	return cmd
}

// readRequest decodes a screening request. YAML is a superset of JSON, so
// one decoder handles both.
func readRequest(r io.Reader) (schemas.ScreeningRequest, error) {
	var req schemas.ScreeningRequest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errors.Wrap(screening.ErrInvalidInput, "no signals given")
		}
		return req, errors.Wrapf(screening.ErrInvalidInput, "signals: %v", err)
	}
	return req, nil
}
