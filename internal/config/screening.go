package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"autism-screening/internal/screening"
)

//go:embed screening.yaml
var defaultScreeningYAML []byte

//go:embed screening.schema.json
var screeningSchemaJSON string

var (
	screeningSchema = mustCompileSchema(screeningSchemaJSON, "screening.schema.json")
	schemaPrinter   = message.NewPrinter(language.English)
)

// Polarity selects how questionnaire answers map onto risk.
type Polarity string

const (
	// PolarityPerQuestion honors each question's configured risk direction.
	PolarityPerQuestion Polarity = "per_question"
	// PolarityUniformNo counts every "no" answer as risk, whatever the
	// question asks.
	PolarityUniformNo Polarity = "uniform_no"
)

// Screening is the validated screening configuration.
type Screening struct {
	Policy    screening.AggregationPolicy
	Questions screening.QuestionSet
	Polarity  Polarity
}

type document struct {
	Aggregation struct {
		ModalityWeights     map[string]float64 `mapstructure:"modality_weights"`
		MinAvailableSignals *int               `mapstructure:"min_available_signals"`
		TieBreak            string             `mapstructure:"tie_break"`
		Confidence          string             `mapstructure:"confidence"`
		Epsilon             float64            `mapstructure:"epsilon"`
	} `mapstructure:"aggregation"`
	Questionnaire struct {
		Threshold float64 `mapstructure:"threshold"`
		Polarity  string  `mapstructure:"polarity"`
		Questions []struct {
			Text          string   `mapstructure:"text"`
			Weight        *float64 `mapstructure:"weight"`
			RiskDirection string   `mapstructure:"risk_direction"`
		} `mapstructure:"questions"`
	} `mapstructure:"questionnaire"`
}

// LoadScreening reads the screening configuration at path, or the built-in
// default when path is empty.
func LoadScreening(path string) (*Screening, error) {
	if path == "" {
		return ParseScreening(defaultScreeningYAML)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read screening config: %s", path)
	}
	s, err := ParseScreening(b)
	if err != nil {
		return nil, errors.Wrapf(err, "screening config %s", path)
	}
	return s, nil
}

// DefaultScreening returns the built-in configuration.
func DefaultScreening() *Screening {
	s, err := ParseScreening(defaultScreeningYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded screening config: %v", err))
	}
	return s
}

// ParseScreening validates raw YAML against the schema and builds the
// policy and question set. Every failure wraps screening.ErrInvalidPolicy.
func ParseScreening(data []byte) (*Screening, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(screening.ErrInvalidPolicy, "yaml: %v", err)
	}
	if errs := validateAgainstSchema(screeningSchema, raw); len(errs) > 0 {
		return nil, errors.Wrapf(screening.ErrInvalidPolicy, "schema: %s", strings.Join(errs, "; "))
	}

	var doc document
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &doc,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, errors.Wrapf(screening.ErrInvalidPolicy, "decode: %v", err)
	}
	return doc.build()
}

func (d document) build() (*Screening, error) {
	agg := d.Aggregation
	policy := screening.DefaultPolicy()
	if len(agg.ModalityWeights) > 0 {
		policy.ModalityWeights = make(map[screening.Modality]float64, len(agg.ModalityWeights))
		for k, w := range agg.ModalityWeights {
			policy.ModalityWeights[screening.ParseModality(k)] = w
		}
	}
	if agg.MinAvailableSignals != nil {
		policy.MinAvailableSignals = *agg.MinAvailableSignals
	}
	if agg.TieBreak != "" {
		policy.TieBreak = screening.TieBreak(agg.TieBreak)
	}
	if agg.Confidence != "" {
		policy.Confidence = screening.ConfidenceMode(agg.Confidence)
	}
	if agg.Epsilon != 0 {
		policy.Epsilon = agg.Epsilon
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	polarity := Polarity(d.Questionnaire.Polarity)
	if polarity == "" {
		polarity = PolarityPerQuestion
	}
	set := screening.QuestionSet{Threshold: d.Questionnaire.Threshold}
	for i, q := range d.Questionnaire.Questions {
		dir, err := screening.ParseRiskDirection(q.RiskDirection)
		if err != nil {
			return nil, errors.Wrapf(screening.ErrInvalidPolicy, "question %d: %v", i+1, err)
		}
		if polarity == PolarityUniformNo {
			dir = screening.RiskOnNo
		}
		w := screening.DefaultWeight
		if q.Weight != nil {
			w = *q.Weight
		}
		set.Questions = append(set.Questions, screening.Question{Text: q.Text, Weight: w, RiskDirection: dir})
	}
	if err := set.Validate(); err != nil {
		return nil, errors.Wrapf(screening.ErrInvalidPolicy, "questionnaire: %v", err)
	}

	return &Screening{Policy: policy, Questions: set, Polarity: polarity}, nil
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(schemaPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
