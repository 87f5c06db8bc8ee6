package engine

import (
	"fmt"

	"github.com/Skufu/symptomrx/internal/vocab"
)

// Classifier is the trained model: it maps a feature vector to a raw class
// index. Implementations must be deterministic and safe for concurrent use.
type Classifier interface {
	Predict(vec FeatureVector) (int, error)
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(vec FeatureVector) (int, error)

// Predict calls f.
func (f ClassifierFunc) Predict(vec FeatureVector) (int, error) { return f(vec) }

// Classify checks vec against the vocabulary's shape and delegates to c.
// Model failures are wrapped; the shape check happens before c is invoked.
func Classify(c Classifier, v *vocab.Vocabulary, vec FeatureVector) (int, error) {
	if len(vec) != v.Size() {
		return 0, &InvalidVectorShapeError{Got: len(vec), Want: v.Size()}
	}
	idx, err := c.Predict(vec)
	if err != nil {
		return 0, fmt.Errorf("classifier predict: %w", err)
	}
	return idx, nil
}

// Decode maps a class index to its disease name. An index outside the table
// signals a model/table mismatch and is never mapped to a default.
func Decode(t *vocab.LabelTable, classIndex int) (string, error) {
	name, ok := t.Name(classIndex)
	if !ok {
		return "", &UnknownClassIndexError{ClassIndex: classIndex}
	}
	return name, nil
}
