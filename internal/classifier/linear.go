package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Skufu/symptomrx/internal/engine"
)

// LinearModel is the JSON export of a multi-class linear model (one row of
// coefficients per class), e.g. scikit-learn's classes_, coef_ and
// intercept_.
type LinearModel struct {
	Classes   []int       `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

// Linear scores every class as coef·x + intercept and predicts the best one.
// Ties go to the lower row, so predictions are deterministic.
type Linear struct {
	model LinearModel
}

// NewLinear validates m against the expected feature count.
func NewLinear(m LinearModel, features int) (*Linear, error) {
	if len(m.Classes) < 2 {
		return nil, errors.New("linear: need at least two classes")
	}
	if len(m.Coef) != len(m.Classes) || len(m.Intercept) != len(m.Classes) {
		return nil, fmt.Errorf("linear: %d classes but %d coefficient rows and %d intercepts",
			len(m.Classes), len(m.Coef), len(m.Intercept))
	}
	for i, row := range m.Coef {
		if len(row) != features {
			return nil, fmt.Errorf("linear: coefficient row %d has %d features, want %d", i, len(row), features)
		}
	}
	return &Linear{model: m}, nil
}

// LoadLinear reads a LinearModel from a JSON file.
func LoadLinear(path string, features int) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return NewLinear(m, features)
}

// Predict returns the class with the highest score.
func (l *Linear) Predict(vec engine.FeatureVector) (int, error) {
	features := len(l.model.Coef[0])
	if len(vec) != features {
		return 0, &engine.InvalidVectorShapeError{Got: len(vec), Want: features}
	}
	best := 0
	bestScore := 0.0
	for c, row := range l.model.Coef {
		score := l.model.Intercept[c]
		for i, bit := range vec {
			if bit == 1 {
				score += row[i]
			}
		}
		if c == 0 || score > bestScore {
			best, bestScore = c, score
		}
	}
	return l.model.Classes[best], nil
}

// Close is a no-op; Linear holds no external resources.
func (l *Linear) Close() error { return nil }
