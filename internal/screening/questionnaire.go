package screening

import (
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"gonum.org/v1/gonum/floats"
)

// Answer is a single tri-state questionnaire response.
type Answer int

const (
	AnswerUnknown Answer = iota
	AnswerYes
	AnswerNo
)

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	default:
		return "unknown"
	}
}

// ParseAnswer maps a caller token onto an Answer, case-insensitively.
func ParseAnswer(token string) (Answer, error) {
	switch cases.Fold().String(strings.TrimSpace(token)) {
	case "yes", "y", "true", "1":
		return AnswerYes, nil
	case "no", "n", "false", "0":
		return AnswerNo, nil
	case "unknown", "unsure", "not sure", "skip", "?":
		return AnswerUnknown, nil
	}
	return AnswerUnknown, errors.Wrapf(ErrInvalidInput, "unrecognized answer %q", token)
}

// ParseAnswers parses every token, reporting the first bad index.
func ParseAnswers(tokens []string) ([]Answer, error) {
	out := make([]Answer, len(tokens))
	for i, t := range tokens {
		a, err := ParseAnswer(t)
		if err != nil {
			return nil, errors.Wrapf(err, "answer %d", i+1)
		}
		out[i] = a
	}
	return out, nil
}

// RiskDirection says which answer to a question counts toward risk.
type RiskDirection string

const (
	RiskOnYes RiskDirection = "yes"
	RiskOnNo  RiskDirection = "no"
)

// ParseRiskDirection validates a configured direction.
func ParseRiskDirection(s string) (RiskDirection, error) {
	switch RiskDirection(cases.Fold().String(strings.TrimSpace(s))) {
	case RiskOnYes:
		return RiskOnYes, nil
	case RiskOnNo:
		return RiskOnNo, nil
	}
	return "", errors.Wrapf(ErrInvalidInput, "unknown risk direction %q", s)
}

func (d RiskDirection) matches(a Answer) bool {
	switch d {
	case RiskOnYes:
		return a == AnswerYes
	case RiskOnNo:
		return a == AnswerNo
	}
	return false
}

// Question is one weighted screening question.
type Question struct {
	Text          string        `json:"text" yaml:"text"`
	Weight        float64       `json:"weight" yaml:"weight"`
	RiskDirection RiskDirection `json:"risk_direction" yaml:"risk_direction"`
}

// QuestionSet is the ordered questionnaire plus its decision threshold.
type QuestionSet struct {
	Questions []Question `json:"questions" yaml:"questions"`
	Threshold float64    `json:"threshold" yaml:"threshold"`
}

// Validate checks the set is usable for scoring.
func (s QuestionSet) Validate() error {
	if len(s.Questions) == 0 {
		return errors.Wrap(ErrInvalidInput, "question set is empty")
	}
	if math.IsNaN(s.Threshold) || math.IsInf(s.Threshold, 0) {
		return errors.Wrapf(ErrInvalidInput, "threshold %v is not a finite number", s.Threshold)
	}
	for i, q := range s.Questions {
		if math.IsNaN(q.Weight) || math.IsInf(q.Weight, 0) || q.Weight < 0 {
			return errors.Wrapf(ErrInvalidInput, "question %d: weight %v must be a non-negative number", i+1, q.Weight)
		}
		if q.RiskDirection != RiskOnYes && q.RiskDirection != RiskOnNo {
			return errors.Wrapf(ErrInvalidInput, "question %d: unknown risk direction %q", i+1, q.RiskDirection)
		}
	}
	return nil
}

// MaxScore is the score of a fully risk-matching answer sheet.
func (s QuestionSet) MaxScore() float64 {
	w := make([]float64, len(s.Questions))
	for i, q := range s.Questions {
		w[i] = q.Weight
	}
	return canonicalSum(w)
}

// QuestionnaireLabel is the binarized questionnaire verdict.
type QuestionnaireLabel string

const (
	AtRisk             QuestionnaireLabel = "AtRisk"
	TypicalDevelopment QuestionnaireLabel = "TypicalDevelopment"
)

// QuestionnaireResult is the outcome of scoring one answer sheet.
type QuestionnaireResult struct {
	Score     float64            `json:"score" yaml:"score"`
	MaxScore  float64            `json:"max_score" yaml:"max_score"`
	Threshold float64            `json:"threshold" yaml:"threshold"`
	Label     QuestionnaireLabel `json:"label" yaml:"label"`
}

// Score sums the weights of every question whose answer matches its risk
// direction. The label is AtRisk when the score reaches the threshold.
func Score(answers []Answer, set QuestionSet) (QuestionnaireResult, error) {
	if err := set.Validate(); err != nil {
		return QuestionnaireResult{}, err
	}
	if len(answers) != len(set.Questions) {
		return QuestionnaireResult{}, errors.Wrapf(ErrInvalidInput,
			"got %d answers for %d questions", len(answers), len(set.Questions))
	}

	matched := make([]float64, 0, len(answers))
	for i, a := range answers {
		q := set.Questions[i]
		if q.RiskDirection.matches(a) {
			matched = append(matched, q.Weight)
		}
	}

	res := QuestionnaireResult{
		Score:     canonicalSum(matched),
		MaxScore:  set.MaxScore(),
		Threshold: set.Threshold,
		Label:     TypicalDevelopment,
	}
	if res.Score >= set.Threshold {
		res.Label = AtRisk
	}
	return res, nil
}

// Prediction expresses the questionnaire outcome as a signal for the
// aggregator. The label follows the threshold, but confidence is the share
// of total weight on the side of the verdict, not a distance from the
// threshold. A sheet that just reaches the default 6 of 15 is an Autistic
// vote with confidence 0.4, and one point below it is a NonAutistic vote
// with confidence 10/15, so borderline sheets weigh little against a
// confident classifier.
func (r QuestionnaireResult) Prediction() ModalityPrediction {
	if r.MaxScore <= 0 {
		return NotAvailable(ModalityQuestionnaire)
	}
	share := clamp01(r.Score / r.MaxScore)
	if r.Label == AtRisk {
		return ModalityPrediction{Modality: ModalityQuestionnaire, Label: LabelAutistic, Confidence: share}
	}
	return ModalityPrediction{Modality: ModalityQuestionnaire, Label: LabelNonAutistic, Confidence: 1 - share}
}

// canonicalSum adds values in ascending order so the result does not
// depend on the order the caller supplied them in.
func canonicalSum(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	return floats.Sum(s)
}
