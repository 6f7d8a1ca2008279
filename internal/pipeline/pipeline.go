// Package pipeline turns caller input into screening reports. The HTTP
// handlers and the media worker share it.
package pipeline

import (
	"github.com/pkg/errors"

	"autism-screening/internal/config"
	"autism-screening/internal/schemas"
	"autism-screening/internal/screening"
)

type Screener struct {
	cfg *config.Screening
}

func New(cfg *config.Screening) *Screener {
	return &Screener{cfg: cfg}
}

func (s *Screener) Config() *config.Screening { return s.cfg }

// ScoreQuestionnaire parses answer tokens and scores them against the
// configured question set.
func (s *Screener) ScoreQuestionnaire(tokens []string) (screening.QuestionnaireResult, error) {
	answers, err := screening.ParseAnswers(tokens)
	if err != nil {
		return screening.QuestionnaireResult{}, err
	}
	return screening.Score(answers, s.cfg.Questions)
}

// Normalize converts submitted signals into predictions, in order.
func Normalize(signals []schemas.Signal) ([]screening.ModalityPrediction, error) {
	out := make([]screening.ModalityPrediction, 0, len(signals))
	for i, sig := range signals {
		if screening.ParseModality(sig.Modality) == "" {
			return nil, errors.Wrapf(screening.ErrInvalidInput, "signal %d: modality is required", i+1)
		}
		out = append(out, screening.Normalize(sig.Modality, sig.Label, sig.Confidence))
	}
	return out, nil
}

// Screen normalizes the request signals and runs Assess.
func (s *Screener) Screen(req schemas.ScreeningRequest) (screening.ScreeningReport, error) {
	preds, err := Normalize(req.Signals)
	if err != nil {
		return screening.ScreeningReport{}, err
	}
	return s.Assess(preds, req.Answers)
}

// Assess adds the questionnaire signal when answers are given, aggregates
// everything under the configured policy and builds the report.
func (s *Screener) Assess(preds []screening.ModalityPrediction, answers []string) (screening.ScreeningReport, error) {
	signals := append([]screening.ModalityPrediction(nil), preds...)

	var (
		result   screening.QuestionnaireResult
		answered = len(answers) > 0
	)
	if answered {
		for _, p := range preds {
			if p.Modality == screening.ModalityQuestionnaire {
				return screening.ScreeningReport{}, errors.Wrap(screening.ErrInvalidInput, "questionnaire signal and answers are mutually exclusive")
			}
		}
		var err error
		if result, err = s.ScoreQuestionnaire(answers); err != nil {
			return screening.ScreeningReport{}, err
		}
		signals = append(signals, result.Prediction())
	}

	verdict, err := screening.Aggregate(signals, s.cfg.Policy)
	if err != nil {
		return screening.ScreeningReport{}, err
	}
	report := screening.BuildReport(verdict).WithPolicy(s.cfg.Policy)
	if answered {
		report = report.WithQuestionnaire(result)
	}
	return report, nil
}
