package screening

import (
	"math"
	"sort"
)

// VerdictLabel is the aggregator's closed output set.
type VerdictLabel string

const (
	VerdictAutistic     VerdictLabel = "Autistic"
	VerdictNonAutistic  VerdictLabel = "NonAutistic"
	VerdictInconclusive VerdictLabel = "Inconclusive"
)

// ExclusionReason records why a signal did not take part in the vote.
type ExclusionReason string

const (
	ReasonNotAvailable ExclusionReason = "not_available"
	ReasonZeroWeight   ExclusionReason = "zero_weight"
)

// cautionRank orders labels by how conservative they are for screening:
// a missed at-risk child costs more than a false alarm.
var cautionRank = map[Label]int{
	LabelAutistic:    2,
	LabelNonAutistic: 1,
}

// Contribution is one input signal as the aggregator saw it.
type Contribution struct {
	Prediction ModalityPrediction `json:"prediction"`
	Weight     float64            `json:"weight"`
	Included   bool               `json:"included"`
	Reason     ExclusionReason    `json:"reason,omitempty"`
}

// FinalVerdict is the combined outcome. Contributing lists included
// signals first, then excluded ones, each group in input order.
type FinalVerdict struct {
	Label        VerdictLabel   `json:"label"`
	Confidence   float64        `json:"confidence"`
	Contributing []Contribution `json:"contributing"`
}

type tally struct {
	label       Label
	support     float64
	weight      float64
	products    []float64
	weights     []float64
	confidences []float64
}

// Aggregate combines signals under policy into one verdict. It returns
// ErrInvalidPolicy for an unusable policy; every other input, including an
// empty slice, yields a verdict.
func Aggregate(signals []ModalityPrediction, policy AggregationPolicy) (FinalVerdict, error) {
	if err := policy.Validate(); err != nil {
		return FinalVerdict{}, err
	}

	included := make([]Contribution, 0, len(signals))
	var excluded []Contribution
	available := 0
	for _, s := range signals {
		c := Contribution{Prediction: s, Weight: policy.WeightFor(s.Modality)}
		switch {
		case !s.Available():
			c.Prediction = NotAvailable(s.Modality)
			c.Reason = ReasonNotAvailable
			excluded = append(excluded, c)
		case c.Weight == 0:
			// counts as available, carries no support
			available++
			c.Reason = ReasonZeroWeight
			excluded = append(excluded, c)
		default:
			available++
			c.Included = true
			included = append(included, c)
		}
	}
	contributing := make([]Contribution, 0, len(signals))
	contributing = append(contributing, included...)
	contributing = append(contributing, excluded...)

	if available == 0 || available < policy.MinAvailableSignals {
		return inconclusive(contributing), nil
	}
	// every available signal weighs 0
	if len(included) == 0 {
		return inconclusive(contributing), nil
	}

	tallies := tallyByLabel(included)
	eps := policy.epsilon()

	winner, ok := pickWinner(tallies, policy.EffectiveTieBreak(), eps)
	if !ok {
		return inconclusive(contributing), nil
	}

	var conf float64
	switch policy.EffectiveConfidence() {
	case ConfidenceShare:
		all := make([]float64, len(included))
		for i, c := range included {
			all[i] = c.Weight
		}
		conf = weightedMean(winner.confidences, winner.weights, canonicalSum(all))
	default:
		conf = weightedMean(winner.confidences, winner.weights, winner.weight)
	}

	return FinalVerdict{
		Label:        VerdictLabel(winner.label),
		Confidence:   clamp01(conf),
		Contributing: contributing,
	}, nil
}

func inconclusive(contributing []Contribution) FinalVerdict {
	return FinalVerdict{Label: VerdictInconclusive, Confidence: 0, Contributing: contributing}
}

// tallyByLabel computes support per label. Sums run over sorted values so
// permuting the input cannot change a single bit of the result.
func tallyByLabel(included []Contribution) []*tally {
	byLabel := make(map[Label]*tally)
	for _, c := range included {
		t, ok := byLabel[c.Prediction.Label]
		if !ok {
			t = &tally{label: c.Prediction.Label}
			byLabel[c.Prediction.Label] = t
		}
		t.products = append(t.products, c.Prediction.Confidence*c.Weight)
		t.weights = append(t.weights, c.Weight)
		t.confidences = append(t.confidences, c.Prediction.Confidence)
	}

	out := make([]*tally, 0, len(byLabel))
	for _, t := range byLabel {
		t.support = canonicalSum(t.products)
		t.weight = canonicalSum(t.weights)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return moreCautious(out[i].label, out[j].label) })
	return out
}

func pickWinner(tallies []*tally, rule TieBreak, eps float64) (*tally, bool) {
	best := tallies[0].support
	for _, t := range tallies[1:] {
		best = math.Max(best, t.support)
	}
	var leaders []*tally
	for _, t := range tallies {
		if best-t.support <= eps {
			leaders = append(leaders, t)
		}
	}
	if len(leaders) == 1 {
		return leaders[0], true
	}

	switch rule {
	case TieBreakInconclusive:
		return nil, false
	case TieBreakCaution:
		return leaders[0], true
	}

	means := make([]float64, len(leaders))
	top := math.Inf(-1)
	for i, t := range leaders {
		means[i] = weightedMean(t.confidences, t.weights, t.weight)
		top = math.Max(top, means[i])
	}
	// leaders keep the caution ordering, so the first close-enough mean wins.
	for i, t := range leaders {
		if top-means[i] <= eps {
			return t, true
		}
	}
	return leaders[0], true
}

// weightedMean returns sum(c_i * w_i/total). Normalizing each weight first
// keeps a lone signal's confidence exact.
func weightedMean(confidences, weights []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	parts := make([]float64, len(confidences))
	for i := range confidences {
		parts[i] = confidences[i] * (weights[i] / total)
	}
	return canonicalSum(parts)
}

func moreCautious(a, b Label) bool {
	ra, rb := cautionRank[a], cautionRank[b]
	if ra != rb {
		return ra > rb
	}
	return a < b
}
