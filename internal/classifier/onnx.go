// Package classifier provides engine.Classifier implementations backed by a
// trained model: an ONNX Runtime session, or a linear one-vs-rest scorer
// read from exported coefficients.
package classifier

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Skufu/symptomrx/internal/engine"
)

// ONNXConfig describes where the runtime and model live and how the graph's
// tensors are named. skl2onnx exports name them float_input and label.
type ONNXConfig struct {
	LibraryPath string
	ModelPath   string
	InputName   string
	OutputName  string
	Features    int
}

func (c *ONNXConfig) applyDefaults() {
	if c.InputName == "" {
		c.InputName = "float_input"
	}
	if c.OutputName == "" {
		c.OutputName = "label"
	}
}

// ortInit counts open sessions. owned records whether this package
// initialized the runtime; an environment set up elsewhere is never torn
// down here.
var ortInit struct {
	sync.Mutex
	refs  int
	owned bool
}

// Runtime hooks, replaced in tests.
var (
	ortIsInitialized = ort.IsInitialized
	ortInitialize    = func(libraryPath string) error {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		return ort.InitializeEnvironment()
	}
	ortDestroy = ort.DestroyEnvironment
)

// ONNX runs a classifier exported to ONNX. The session is shared and each
// Predict allocates its own tensors, so concurrent calls are safe.
type ONNX struct {
	session  *ort.DynamicAdvancedSession
	features int
	mu       sync.RWMutex
}

// NewONNX initializes the ONNX Runtime environment (once per process) and
// opens the model.
func NewONNX(cfg ONNXConfig) (*ONNX, error) {
	cfg.applyDefaults()
	if cfg.ModelPath == "" {
		return nil, errors.New("onnx: model path is required")
	}
	if cfg.Features <= 0 {
		return nil, errors.New("onnx: feature count is required")
	}
	if err := acquireEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName}, nil)
	if err != nil {
		releaseEnvironment()
		return nil, fmt.Errorf("onnx: open %s: %w", cfg.ModelPath, err)
	}
	return &ONNX{session: session, features: cfg.Features}, nil
}

// Predict runs one inference and returns the predicted class label.
func (o *ONNX) Predict(vec engine.FeatureVector) (int, error) {
	if len(vec) != o.features {
		return 0, &engine.InvalidVectorShapeError{Got: len(vec), Want: o.features}
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.session == nil {
		return 0, errors.New("onnx: session is closed")
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(o.features)), vec.Float32s())
	if err != nil {
		return 0, fmt.Errorf("onnx: input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return 0, fmt.Errorf("onnx: output tensor: %w", err)
	}
	defer output.Destroy()

	if err := o.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return 0, fmt.Errorf("onnx: run: %w", err)
	}
	return labelFromOutput(output.GetData())
}

// Close releases the session and, for the last open model, the environment.
func (o *ONNX) Close() error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	err := o.session.Destroy()
	o.session = nil
	releaseEnvironment()
	return err
}

func labelFromOutput(data []int64) (int, error) {
	if len(data) != 1 {
		return 0, fmt.Errorf("onnx: expected one label, got %d", len(data))
	}
	return int(data[0]), nil
}

func acquireEnvironment(libraryPath string) error {
	ortInit.Lock()
	defer ortInit.Unlock()
	if ortInit.refs == 0 && !ortIsInitialized() {
		if err := ortInitialize(libraryPath); err != nil {
			return fmt.Errorf("onnx: initialize runtime: %w", err)
		}
		ortInit.owned = true
	}
	ortInit.refs++
	return nil
}

func releaseEnvironment() {
	ortInit.Lock()
	defer ortInit.Unlock()
	if ortInit.refs == 0 {
		return
	}
	ortInit.refs--
	if ortInit.refs == 0 && ortInit.owned {
		ortInit.owned = false
		_ = ortDestroy()
	}
}
