package model

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

type fakeRunner struct {
	out       inferenceOutput
	err       error
	inputs    [][]float32
	destroyed bool
}

func (f *fakeRunner) run(features []float32) (inferenceOutput, error) {
	f.inputs = append(f.inputs, features)
	return f.out, f.err
}

func (f *fakeRunner) destroy() error {
	f.destroyed = true
	return nil
}

func TestONNXModel_Outputs(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{out: inferenceOutput{label: 1, probabilities: []float32{0.25, 0.75}}}
	m := &ONNXModel{logger: newTestLogger(), runner: runner}

	label, err := m.Predict(ctx, testFeatures)
	require.NoError(t, err)
	assert.Equal(t, 1, label)

	probability, err := m.PredictProbability(ctx, testFeatures)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, probability, 1e-6)

	require.Len(t, runner.inputs, 2)
	assert.Equal(t, []float32{2, 117, 72, 29, 125, 33.6, 0.627, 50}, runner.inputs[0])
}

func TestONNXModel_Errors(t *testing.T) {
	t.Run("Runner failure", func(t *testing.T) {
		m := &ONNXModel{logger: newTestLogger(), runner: &fakeRunner{err: errors.New("run failed")}}
		_, err := m.Predict(context.Background(), testFeatures)
		assert.Error(t, err)
	})

	t.Run("Wrong probability shape", func(t *testing.T) {
		m := &ONNXModel{logger: newTestLogger(), runner: &fakeRunner{out: inferenceOutput{probabilities: []float32{1}}}}
		_, err := m.PredictProbability(context.Background(), testFeatures)
		assert.Error(t, err)
	})

	t.Run("Canceled context", func(t *testing.T) {
		runner := &fakeRunner{}
		m := &ONNXModel{logger: newTestLogger(), runner: runner}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := m.Predict(ctx, testFeatures)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, runner.inputs)
	})

	t.Run("Missing artifact", func(t *testing.T) {
		_, err := NewONNXModel(domain.ModelConfig{Path: "/nonexistent/model.onnx"}, newTestLogger())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

// TestONNXModel_Artifact runs a real exported model when one is available.
func TestONNXModel_Artifact(t *testing.T) {
	path := os.Getenv("TEST_ONNX_MODEL")
	if path == "" {
		t.Skip("TEST_ONNX_MODEL not set, skipping ONNX Runtime test")
	}

	m, err := NewONNXModel(domain.ModelConfig{
		Path:       path,
		ORTLibrary: os.Getenv("TEST_ORT_LIBRARY"),
	}, newTestLogger())
	require.NoError(t, err)
	defer m.Close()

	label, err := m.Predict(context.Background(), testFeatures)
	require.NoError(t, err)
	assert.Contains(t, []int{0, 1}, label)

	probability, err := m.PredictProbability(context.Background(), testFeatures)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, probability, 0.0)
	assert.LessOrEqual(t, probability, 1.0)
}
