package screening

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// TieBreak selects how two labels with equal weighted support are resolved.
type TieBreak string

const (
	// TieBreakConfidenceThenCaution prefers the label with the higher
	// weighted mean confidence, then the more cautious label.
	TieBreakConfidenceThenCaution TieBreak = "confidence_then_caution"
	// TieBreakCaution prefers the more cautious label outright.
	TieBreakCaution TieBreak = "caution"
	// TieBreakInconclusive refuses to pick and returns Inconclusive.
	TieBreakInconclusive TieBreak = "inconclusive"
)

// ConfidenceMode selects how the final confidence is computed.
type ConfidenceMode string

const (
	// ConfidenceWinnerMean is the weighted mean confidence of the signals
	// that voted for the winning label. An even Autistic 0.6 / NonAutistic
	// 0.6 split resolved by caution reports 0.6, and a lone signal reports
	// its own confidence.
	ConfidenceWinnerMean ConfidenceMode = "winner_mean"
	// ConfidenceShare is the winning support divided by the total weight of
	// every included signal.
	ConfidenceShare ConfidenceMode = "share"
)

const (
	DefaultWeight              = 1.0
	DefaultMinAvailableSignals = 1
	DefaultEpsilon             = 1e-9
)

// AggregationPolicy is the configured rule set for combining signals.
// Zero values fall back to the defaults: weight 1 for unlisted modalities,
// confidence_then_caution, winner_mean and an epsilon of 1e-9.
type AggregationPolicy struct {
	ModalityWeights     map[Modality]float64 `json:"modality_weights,omitempty" yaml:"modality_weights,omitempty"`
	MinAvailableSignals int                  `json:"min_available_signals" yaml:"min_available_signals"`
	TieBreak            TieBreak             `json:"tie_break,omitempty" yaml:"tie_break,omitempty"`
	Confidence          ConfidenceMode       `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Epsilon             float64              `json:"epsilon,omitempty" yaml:"epsilon,omitempty"`
}

// DefaultPolicy weighs every modality equally and needs one usable signal.
func DefaultPolicy() AggregationPolicy {
	return AggregationPolicy{
		MinAvailableSignals: DefaultMinAvailableSignals,
		TieBreak:            TieBreakConfidenceThenCaution,
		Confidence:          ConfidenceWinnerMean,
		Epsilon:             DefaultEpsilon,
	}
}

// Validate rejects policies the aggregator cannot apply.
func (p AggregationPolicy) Validate() error {
	for _, m := range p.Modalities() {
		w := p.ModalityWeights[m]
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return errors.Wrapf(ErrInvalidPolicy, "modality %q: weight %v must be a non-negative number", m, w)
		}
	}
	if p.MinAvailableSignals < 0 {
		return errors.Wrapf(ErrInvalidPolicy, "min_available_signals %d is negative", p.MinAvailableSignals)
	}
	switch p.TieBreak {
	case "", TieBreakConfidenceThenCaution, TieBreakCaution, TieBreakInconclusive:
	default:
		return errors.Wrapf(ErrInvalidPolicy, "unknown tie_break %q", p.TieBreak)
	}
	switch p.Confidence {
	case "", ConfidenceWinnerMean, ConfidenceShare:
	default:
		return errors.Wrapf(ErrInvalidPolicy, "unknown confidence mode %q", p.Confidence)
	}
	if math.IsNaN(p.Epsilon) || p.Epsilon < 0 {
		return errors.Wrapf(ErrInvalidPolicy, "epsilon %v must be a non-negative number", p.Epsilon)
	}
	return nil
}

// WeightFor returns the configured weight for m, or DefaultWeight.
func (p AggregationPolicy) WeightFor(m Modality) float64 {
	if w, ok := p.ModalityWeights[m]; ok {
		return w
	}
	return DefaultWeight
}

// Modalities lists the explicitly weighted modalities in sorted order.
func (p AggregationPolicy) Modalities() []Modality {
	out := make([]Modality, 0, len(p.ModalityWeights))
	for m := range p.ModalityWeights {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EffectiveTieBreak resolves the zero value to the default rule.
func (p AggregationPolicy) EffectiveTieBreak() TieBreak {
	if p.TieBreak == "" {
		return TieBreakConfidenceThenCaution
	}
	return p.TieBreak
}

// EffectiveConfidence resolves the zero value to the default mode.
func (p AggregationPolicy) EffectiveConfidence() ConfidenceMode {
	if p.Confidence == "" {
		return ConfidenceWinnerMean
	}
	return p.Confidence
}

func (p AggregationPolicy) epsilon() float64 {
	if p.Epsilon == 0 {
		return DefaultEpsilon
	}
	return p.Epsilon
}
