package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autism-screening/internal/screening"
)

func TestDefaultScreening(t *testing.T) {
	s := DefaultScreening()

	assert.Equal(t, PolarityPerQuestion, s.Polarity)
	assert.Equal(t, 1, s.Policy.MinAvailableSignals)
	assert.Equal(t, screening.TieBreakConfidenceThenCaution, s.Policy.TieBreak)
	assert.Equal(t, screening.ConfidenceWinnerMean, s.Policy.Confidence)
	assert.Equal(t, 1.0, s.Policy.WeightFor(screening.ModalityQuestionnaire))

	require.Len(t, s.Questions.Questions, 15)
	assert.Equal(t, 6.0, s.Questions.Threshold)
	assert.Equal(t, 15.0, s.Questions.MaxScore())
	assert.Equal(t, screening.RiskOnNo, s.Questions.Questions[0].RiskDirection)
	assert.Equal(t, screening.RiskOnYes, s.Questions.Questions[2].RiskDirection)
	assert.NotEmpty(t, s.Questions.Questions[0].Text)
}

func TestParseScreening_UniformNoPolarity(t *testing.T) {
	s, err := ParseScreening([]byte(`
aggregation: {}
questionnaire:
  threshold: 2
  polarity: uniform_no
  questions:
    - risk_direction: "yes"
    - risk_direction: "no"
    - risk_direction: "yes"
`))
	require.NoError(t, err)
	for _, q := range s.Questions.Questions {
		assert.Equal(t, screening.RiskOnNo, q.RiskDirection)
	}

	res, err := screening.Score([]screening.Answer{screening.AnswerNo, screening.AnswerNo, screening.AnswerYes}, s.Questions)
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.Score)
	assert.Equal(t, screening.AtRisk, res.Label)
}

func TestParseScreening_CustomPolicy(t *testing.T) {
	s, err := ParseScreening([]byte(`
aggregation:
  modality_weights:
    Face: 2.5
    voice: 0
  min_available_signals: 2
  tie_break: inconclusive
  confidence: share
questionnaire:
  threshold: 1.5
  questions:
    - text: a
      weight: 0.5
      risk_direction: "yes"
    - text: b
      risk_direction: "no"
`))
	require.NoError(t, err)

	assert.Equal(t, 2.5, s.Policy.WeightFor(screening.ModalityFace))
	assert.Equal(t, 0.0, s.Policy.WeightFor(screening.ModalityVoice))
	assert.Equal(t, 1.0, s.Policy.WeightFor(screening.ModalityEye))
	assert.Equal(t, 2, s.Policy.MinAvailableSignals)
	assert.Equal(t, screening.TieBreakInconclusive, s.Policy.TieBreak)
	assert.Equal(t, screening.ConfidenceShare, s.Policy.Confidence)
	assert.Equal(t, screening.DefaultEpsilon, s.Policy.Epsilon)

	assert.Equal(t, 0.5, s.Questions.Questions[0].Weight)
	assert.Equal(t, 1.0, s.Questions.Questions[1].Weight)
	assert.Equal(t, 1.5, s.Questions.Threshold)
}

func TestParseScreening_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "not yaml",
			yaml: "aggregation: [",
			want: "yaml",
		},
		{
			name: "negative weight",
			yaml: "aggregation: {modality_weights: {face: -1}}\nquestionnaire: {threshold: 1, questions: [{risk_direction: \"yes\"}]}",
			want: "/aggregation/modality_weights/face",
		},
		{
			name: "unknown tie break",
			yaml: "aggregation: {tie_break: coin}\nquestionnaire: {threshold: 1, questions: [{risk_direction: \"yes\"}]}",
			want: "/aggregation/tie_break",
		},
		{
			name: "bad risk direction",
			yaml: "aggregation: {}\nquestionnaire: {threshold: 1, questions: [{risk_direction: maybe}]}",
			want: "/questionnaire/questions/0/risk_direction",
		},
		{
			name: "no questions",
			yaml: "aggregation: {}\nquestionnaire: {threshold: 1, questions: []}",
			want: "/questionnaire/questions",
		},
		{
			name: "unknown key",
			yaml: "aggregation: {weights: {}}\nquestionnaire: {threshold: 1, questions: [{risk_direction: \"no\"}]}",
			want: "/aggregation",
		},
		{
			name: "missing questionnaire",
			yaml: "aggregation: {}",
			want: "schema",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScreening([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, screening.ErrInvalidPolicy))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScreening(t *testing.T) {
	s, err := LoadScreening("")
	require.NoError(t, err)
	assert.Len(t, s.Questions.Questions, 15)

	dir := t.TempDir()
	p := filepath.Join(dir, "screening.yaml")
	require.NoError(t, os.WriteFile(p, []byte("aggregation: {min_available_signals: 3}\nquestionnaire: {threshold: 1, questions: [{risk_direction: \"no\"}]}\n"), 0o600))

	s, err = LoadScreening(p)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Policy.MinAvailableSignals)

	_, err = LoadScreening(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, screening.ErrInvalidPolicy))
}
