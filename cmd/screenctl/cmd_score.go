package main

import (
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"autism-screening/internal/screening"
)

func newScoreCommand(opts *rootOptions) *cobra.Command {
	var answers string
	cmd := &cobra.Command{
		Use:   "score --answers yes,no,...",
		Short: "Score questionnaire answers",
		Long: `Score one answer per configured question, in order. Answers are
yes/no/unknown tokens separated by commas.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(answers) == "" {
				return errors.Wrap(screening.ErrInvalidInput, "--answers is required")
			}
			s, err := opts.screener()
			if err != nil {
				return err
			}
			tokens := strings.Split(answers, ",")
			slog.Debug("scoring answers", "count", len(tokens))
			res, err := s.ScoreQuestionnaire(tokens)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.format, res)
		},
	}
	cmd.Flags().StringVarP(&answers, "answers", "a", "", "Comma separated answers")
	return cmd
}
