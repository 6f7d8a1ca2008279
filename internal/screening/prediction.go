package screening

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
)

// Modality identifies one independently analyzed input channel.
type Modality string

const (
	ModalityFace          Modality = "face"
	ModalityEye           Modality = "eye"
	ModalityVoice         Modality = "voice"
	ModalityQuestionnaire Modality = "questionnaire"
)

// Label is the closed outcome set a single classifier can report.
type Label string

const (
	LabelAutistic     Label = "Autistic"
	LabelNonAutistic  Label = "NonAutistic"
	LabelNotAvailable Label = "NotAvailable"
)

var labelAliases = map[string]Label{
	"autistic":           LabelAutistic,
	"asd":                LabelAutistic,
	"autism":             LabelAutistic,
	"atrisk":             LabelAutistic,
	"nonautistic":        LabelNonAutistic,
	"notautistic":        LabelNonAutistic,
	"noautism":           LabelNonAutistic,
	"typical":            LabelNonAutistic,
	"typicaldevelopment": LabelNonAutistic,
	"td":                 LabelNonAutistic,
}

// ModalityPrediction is one classifier's verdict for one modality.
// Confidence is meaningful only when Label is not LabelNotAvailable.
type ModalityPrediction struct {
	Modality   Modality `json:"modality" yaml:"modality"`
	Label      Label    `json:"label" yaml:"label"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
}

// Available reports whether the prediction carries a usable signal.
func (p ModalityPrediction) Available() bool {
	return p.Label != LabelNotAvailable && p.Label != ""
}

// NotAvailable returns the explicit "no usable signal" prediction for m.
func NotAvailable(m Modality) ModalityPrediction {
	return ModalityPrediction{Modality: m, Label: LabelNotAvailable}
}

// ParseModality folds an identifier into its canonical form. Unknown
// modality names are kept as-is so new classifiers need no code change.
func ParseModality(s string) Modality {
	return Modality(cases.Fold().String(strings.TrimSpace(s)))
}

// ParseLabel maps an upstream label string onto the closed outcome set.
// Matching ignores case, whitespace, hyphens and underscores; anything
// unrecognized becomes LabelNotAvailable.
func ParseLabel(s string) Label {
	if l, ok := labelAliases[labelKey(s)]; ok {
		return l
	}
	return LabelNotAvailable
}

// Normalize turns a raw upstream label and optional confidence into a
// ModalityPrediction. A concrete label without a confidence degrades to
// NotAvailable; confidences are clamped into [0,1].
func Normalize(modality, rawLabel string, rawConfidence *float64) ModalityPrediction {
	m := ParseModality(modality)
	label := ParseLabel(rawLabel)
	if label == LabelNotAvailable || rawConfidence == nil || math.IsNaN(*rawConfidence) {
		return NotAvailable(m)
	}
	return ModalityPrediction{Modality: m, Label: label, Confidence: clamp01(*rawConfidence)}
}

func labelKey(s string) string {
	s = cases.Fold().String(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '_':
			return -1
		}
		return r
	}, s)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
