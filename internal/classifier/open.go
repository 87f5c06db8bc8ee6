package classifier

import (
	"fmt"
	"strings"

	"github.com/Skufu/symptomrx/internal/engine"
)

// Kinds accepted by Open.
const (
	KindONNX   = "onnx"
	KindLinear = "linear"
)

// Model is a classifier that holds resources until closed.
type Model interface {
	engine.Classifier
	Close() error
}

// Options selects and configures a model for Open.
type Options struct {
	Kind        string
	ModelPath   string
	LibraryPath string
	InputName   string
	OutputName  string
	Features    int
}

// Open loads the model described by opts.
func Open(opts Options) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case KindONNX, "":
		m, err := NewONNX(ONNXConfig{
			LibraryPath: opts.LibraryPath,
			ModelPath:   opts.ModelPath,
			InputName:   opts.InputName,
			OutputName:  opts.OutputName,
			Features:    opts.Features,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case KindLinear:
		m, err := LoadLinear(opts.ModelPath, opts.Features)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", opts.Kind)
	}
}
