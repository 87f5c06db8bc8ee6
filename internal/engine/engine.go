// Package engine turns reported symptoms into a disease prediction and a
// recommendation bundle. It owns no mutable state: the vocabulary, label
// table and reference tables are shared read-only, so an Engine may be used
// from many goroutines at once.
package engine

import (
	"errors"
	"log"

	"github.com/Skufu/symptomrx/internal/vocab"
)

// Diagnosis is the decoded classifier output.
type Diagnosis struct {
	ClassIndex int    `json:"classIndex"`
	Disease    string `json:"disease"`
}

// Recommendation pairs a diagnosis with its bundle.
type Recommendation struct {
	Diagnosis
	Bundle Bundle `json:"recommendations"`
}

// Engine wires the encoder, classifier, decoder and aggregator together.
type Engine struct {
	symptoms   *vocab.Vocabulary
	labels     *vocab.LabelTable
	classifier Classifier
	tables     *Tables
	logger     *log.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithVocabulary overrides the symptom vocabulary.
func WithVocabulary(v *vocab.Vocabulary) Option {
	return func(e *Engine) { e.symptoms = v }
}

// WithLabels overrides the disease label table.
func WithLabels(t *vocab.LabelTable) Option {
	return func(e *Engine) { e.labels = t }
}

// WithLogger sets a logger for pipeline failures.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New builds an Engine over the process-wide vocabulary and label table.
func New(c Classifier, tables *Tables, opts ...Option) (*Engine, error) {
	if c == nil {
		return nil, errors.New("classifier is required")
	}
	if tables == nil {
		return nil, errors.New("reference tables are required")
	}
	e := &Engine{
		symptoms:   vocab.Symptoms(),
		labels:     vocab.Diseases(),
		classifier: c,
		tables:     tables,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Symptoms returns the vocabulary the engine encodes against.
func (e *Engine) Symptoms() *vocab.Vocabulary { return e.symptoms }

// Labels returns the label table the engine decodes with.
func (e *Engine) Labels() *vocab.LabelTable { return e.labels }

// Encode builds the feature vector for symptoms.
func (e *Engine) Encode(symptoms []string) (FeatureVector, error) {
	return Encode(e.symptoms, symptoms)
}

// Diagnose runs the classifier on vec and decodes its output.
func (e *Engine) Diagnose(vec FeatureVector) (Diagnosis, error) {
	idx, err := Classify(e.classifier, e.symptoms, vec)
	if err != nil {
		return Diagnosis{}, err
	}
	name, err := Decode(e.labels, idx)
	if err != nil {
		e.logf("classifier returned class %d outside the label table", idx)
		return Diagnosis{}, err
	}
	return Diagnosis{ClassIndex: idx, Disease: name}, nil
}

// Aggregate builds the recommendation bundle for a disease name.
func (e *Engine) Aggregate(disease string) (Bundle, error) {
	b, err := Aggregate(disease, e.tables)
	if err != nil {
		for _, m := range MissingFields(err) {
			e.logf("reference data incomplete: no %s row for %q", m.Field, m.Disease)
		}
	}
	return b, err
}

// Recommend runs the full pipeline: encode, predict, decode, aggregate.
func (e *Engine) Recommend(symptoms []string) (Recommendation, error) {
	vec, err := e.Encode(symptoms)
	if err != nil {
		return Recommendation{}, err
	}
	d, err := e.Diagnose(vec)
	if err != nil {
		return Recommendation{}, err
	}
	b, err := e.Aggregate(d.Disease)
	if err != nil {
		return Recommendation{}, err
	}
	return Recommendation{Diagnosis: d, Bundle: b}, nil
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}
