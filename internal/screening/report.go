package screening

import "encoding/json"

// BreakdownEntry is one modality's line in a report.
type BreakdownEntry struct {
	Modality   Modality        `json:"modality" yaml:"modality"`
	Label      Label           `json:"label" yaml:"label"`
	Confidence *float64        `json:"confidence" yaml:"confidence"`
	Weight     float64         `json:"weight" yaml:"weight"`
	Included   bool            `json:"included" yaml:"included"`
	Reason     ExclusionReason `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// PolicySummary records the rules a report was produced under.
type PolicySummary struct {
	MinAvailableSignals int            `json:"min_available_signals" yaml:"min_available_signals"`
	TieBreak            TieBreak       `json:"tie_break" yaml:"tie_break"`
	Confidence          ConfidenceMode `json:"confidence" yaml:"confidence"`
}

// ReportDocument is the serializable form of a ScreeningReport.
type ReportDocument struct {
	Label         VerdictLabel         `json:"label" yaml:"label"`
	Confidence    float64              `json:"confidence" yaml:"confidence"`
	Questionnaire *QuestionnaireResult `json:"questionnaire,omitempty" yaml:"questionnaire,omitempty"`
	Breakdown     []BreakdownEntry     `json:"breakdown" yaml:"breakdown"`
	Policy        *PolicySummary       `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// ScreeningReport is the immutable result handed to a caller. The With*
// methods return modified copies.
type ScreeningReport struct {
	verdict       FinalVerdict
	questionnaire *QuestionnaireResult
	policy        *PolicySummary
}

// BuildReport wraps verdict into a report.
func BuildReport(verdict FinalVerdict) ScreeningReport {
	v := verdict
	v.Contributing = append([]Contribution(nil), verdict.Contributing...)
	return ScreeningReport{verdict: v}
}

// WithQuestionnaire attaches the questionnaire score behind the verdict.
func (r ScreeningReport) WithQuestionnaire(q QuestionnaireResult) ScreeningReport {
	r.questionnaire = &q
	return r
}

// WithPolicy records the policy the verdict was produced under.
func (r ScreeningReport) WithPolicy(p AggregationPolicy) ScreeningReport {
	r.policy = &PolicySummary{
		MinAvailableSignals: p.MinAvailableSignals,
		TieBreak:            p.EffectiveTieBreak(),
		Confidence:          p.EffectiveConfidence(),
	}
	return r
}

func (r ScreeningReport) Label() VerdictLabel { return r.verdict.Label }
func (r ScreeningReport) Confidence() float64 { return r.verdict.Confidence }

// Verdict returns a copy of the underlying verdict.
func (r ScreeningReport) Verdict() FinalVerdict {
	v := r.verdict
	v.Contributing = append([]Contribution(nil), r.verdict.Contributing...)
	return v
}

// Questionnaire returns the attached questionnaire result, if any.
func (r ScreeningReport) Questionnaire() (QuestionnaireResult, bool) {
	if r.questionnaire == nil {
		return QuestionnaireResult{}, false
	}
	return *r.questionnaire, true
}

// Breakdown lists every contributing signal with its inclusion status.
func (r ScreeningReport) Breakdown() []BreakdownEntry {
	out := make([]BreakdownEntry, len(r.verdict.Contributing))
	for i, c := range r.verdict.Contributing {
		e := BreakdownEntry{
			Modality: c.Prediction.Modality,
			Label:    c.Prediction.Label,
			Weight:   c.Weight,
			Included: c.Included,
			Reason:   c.Reason,
		}
		if c.Prediction.Available() {
			conf := c.Prediction.Confidence
			e.Confidence = &conf
		}
		out[i] = e
	}
	return out
}

// Document returns the serializable form.
func (r ScreeningReport) Document() ReportDocument {
	d := ReportDocument{
		Label:      r.verdict.Label,
		Confidence: r.verdict.Confidence,
		Breakdown:  r.Breakdown(),
	}
	if r.questionnaire != nil {
		q := *r.questionnaire
		d.Questionnaire = &q
	}
	if r.policy != nil {
		p := *r.policy
		d.Policy = &p
	}
	return d
}

func (r ScreeningReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Document())
}
