package classifier

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Skufu/symptomrx/internal/engine"
)

func threeClassModel() LinearModel {
	return LinearModel{
		Classes: []int{15, 4, 16},
		Coef: [][]float64{
			{2, 0, 0, -1},
			{0, 2, 0, 0},
			{0, 0, 2, 0},
		},
		Intercept: []float64{0, 0, 0.5},
	}
}

func TestLinearPredict(t *testing.T) {
	l, err := NewLinear(threeClassModel(), 4)
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}
	cases := []struct {
		name string
		vec  engine.FeatureVector
		want int
	}{
		{"first feature", engine.FeatureVector{1, 0, 0, 0}, 15},
		{"second feature", engine.FeatureVector{0, 1, 0, 0}, 4},
		{"intercept wins on empty", engine.FeatureVector{0, 0, 0, 0}, 16},
		{"negative weight", engine.FeatureVector{1, 0, 1, 1}, 16},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := l.Predict(tc.vec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected class %d, got %d", tc.want, got)
			}
		})
	}
}

func TestLinearTieGoesToFirstRow(t *testing.T) {
	m := LinearModel{
		Classes:   []int{7, 3},
		Coef:      [][]float64{{1}, {1}},
		Intercept: []float64{0, 0},
	}
	l, err := NewLinear(m, 1)
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}
	for i := 0; i < 10; i++ {
		if got, _ := l.Predict(engine.FeatureVector{1}); got != 7 {
			t.Fatalf("expected deterministic class 7, got %d", got)
		}
	}
}

func TestLinearRejectsBadShape(t *testing.T) {
	l, _ := NewLinear(threeClassModel(), 4)
	_, err := l.Predict(engine.FeatureVector{1, 0})
	if !errors.Is(err, engine.ErrInvalidVectorShape) {
		t.Fatalf("expected ErrInvalidVectorShape, got %v", err)
	}
}

func TestNewLinearValidation(t *testing.T) {
	m := threeClassModel()
	if _, err := NewLinear(m, 5); err == nil {
		t.Fatal("expected feature count mismatch")
	}
	m.Intercept = m.Intercept[:2]
	if _, err := NewLinear(m, 4); err == nil {
		t.Fatal("expected intercept count mismatch")
	}
	if _, err := NewLinear(LinearModel{Classes: []int{1}}, 4); err == nil {
		t.Fatal("expected error for a single class")
	}
}

func TestOpenLinearFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	body := `{"classes":[15,4,16],"coef":[[2,0,0,-1],[0,2,0,0],[0,0,2,0]],"intercept":[0,0,0.5]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	m, err := Open(Options{Kind: "linear", ModelPath: path, Features: 4})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()
	if got, _ := m.Predict(engine.FeatureVector{0, 1, 0, 0}); got != 4 {
		t.Fatalf("expected class 4, got %d", got)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(Options{Kind: "svm"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := Open(Options{Kind: "linear", ModelPath: filepath.Join(t.TempDir(), "missing.json"), Features: 4}); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Open(Options{Kind: "onnx", Features: 4}); err == nil {
		t.Fatal("expected error without model path")
	}
}

func TestLabelFromOutput(t *testing.T) {
	if got, err := labelFromOutput([]int64{15}); err != nil || got != 15 {
		t.Fatalf("labelFromOutput = %d, %v", got, err)
	}
	if _, err := labelFromOutput(nil); err == nil {
		t.Fatal("expected error for empty output")
	}
}
