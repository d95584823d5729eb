package model

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// Default tensor names of an XGBoost classifier exported with onnxmltools.
const (
	DefaultInputName         = "input"
	DefaultLabelOutput       = "label"
	DefaultProbabilityOutput = "probabilities"
)

var ortInit struct {
	sync.Mutex
	refs int
}

// acquireRuntime initializes the shared ONNX Runtime environment on first use.
func acquireRuntime(libraryPath string) error {
	ortInit.Lock()
	defer ortInit.Unlock()

	if ortInit.refs == 0 {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize onnxruntime: %w", err)
		}
	}
	ortInit.refs++
	return nil
}

func releaseRuntime() error {
	ortInit.Lock()
	defer ortInit.Unlock()

	if ortInit.refs == 0 {
		return nil
	}
	ortInit.refs--
	if ortInit.refs == 0 {
		return ort.DestroyEnvironment()
	}
	return nil
}

// inferenceOutput is one forward pass of the graph.
type inferenceOutput struct {
	label         int64
	probabilities []float32 // [P(class 0), P(class 1)]
}

// runner executes one forward pass over a single feature row.
type runner interface {
	run(features []float32) (inferenceOutput, error)
	destroy() error
}

// ONNXModel serves an exported XGBoost classifier through ONNX Runtime.
type ONNXModel struct {
	logger *logrus.Logger
	runner runner
}

// NewONNXModel loads the artifact at cfg.Path. The file must exist and the session
// must initialize; both failures are reported to the caller.
func NewONNXModel(cfg domain.ModelConfig, logger *logrus.Logger) (*ONNXModel, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("model artifact: %w", err)
	}
	if err := acquireRuntime(cfg.ORTLibrary); err != nil {
		return nil, err
	}

	r, err := newSessionRunner(cfg)
	if err != nil {
		_ = releaseRuntime()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"path":    cfg.Path,
		"version": cfg.Version,
	}).Info("ONNX model session created")

	return &ONNXModel{logger: logger, runner: r}, nil
}

// Predict returns the predicted class label.
func (m *ONNXModel) Predict(ctx context.Context, features domain.FeatureVector) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out, err := m.runner.run(features.Float32())
	if err != nil {
		return 0, err
	}
	return int(out.label), nil
}

// PredictProbability returns the probability of the positive class.
func (m *ONNXModel) PredictProbability(ctx context.Context, features domain.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out, err := m.runner.run(features.Float32())
	if err != nil {
		return 0, err
	}
	if len(out.probabilities) != 2 {
		return 0, fmt.Errorf("expected 2 class probabilities, got %d", len(out.probabilities))
	}
	return float64(out.probabilities[1]), nil
}

// Close destroys the session and releases the runtime.
func (m *ONNXModel) Close() error {
	if err := m.runner.destroy(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return releaseRuntime()
}

// sessionRunner owns a dynamic session, which accepts fresh tensors on every Run
// and is safe for concurrent use.
type sessionRunner struct {
	session *ort.DynamicAdvancedSession
}

func newSessionRunner(cfg domain.ModelConfig) (*sessionRunner, error) {
	names := cfg.ONNX
	if names.InputName == "" {
		names.InputName = DefaultInputName
	}
	if names.LabelOutput == "" {
		names.LabelOutput = DefaultLabelOutput
	}
	if names.ProbabilityName == "" {
		names.ProbabilityName = DefaultProbabilityOutput
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.Path,
		[]string{names.InputName},
		[]string{names.LabelOutput, names.ProbabilityName},
		nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create onnx session: %w", err)
	}
	return &sessionRunner{session: session}, nil
}

func (r *sessionRunner) run(features []float32) (inferenceOutput, error) {
	input, err := ort.NewTensor(ort.NewShape(1, int64(len(features))), features)
	if err != nil {
		return inferenceOutput{}, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	label, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return inferenceOutput{}, fmt.Errorf("failed to create label tensor: %w", err)
	}
	defer label.Destroy()

	probabilities, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		return inferenceOutput{}, fmt.Errorf("failed to create probability tensor: %w", err)
	}
	defer probabilities.Destroy()

	if err := r.session.Run([]ort.Value{input}, []ort.Value{label, probabilities}); err != nil {
		return inferenceOutput{}, fmt.Errorf("onnx session run failed: %w", err)
	}

	probs := make([]float32, 2)
	copy(probs, probabilities.GetData())
	return inferenceOutput{label: label.GetData()[0], probabilities: probs}, nil
}

func (r *sessionRunner) destroy() error {
	return r.session.Destroy()
}
