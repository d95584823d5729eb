package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// MockBinaryClassifier is a mock implementation of the BinaryClassifier interface
type MockBinaryClassifier struct {
	mock.Mock
}

func (m *MockBinaryClassifier) Predict(ctx context.Context, features domain.FeatureVector) (int, error) {
	args := m.Called(ctx, features)
	return args.Int(0), args.Error(1)
}

func (m *MockBinaryClassifier) PredictProbability(ctx context.Context, features domain.FeatureVector) (float64, error) {
	args := m.Called(ctx, features)
	return args.Get(0).(float64), args.Error(1)
}

// MockModelProvider is a mock implementation of the ModelProvider interface
type MockModelProvider struct {
	mock.Mock
}

func (m *MockModelProvider) Model() (domain.BinaryClassifier, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.BinaryClassifier), args.Error(1)
}

func (m *MockModelProvider) Version() string {
	return "test-model-1"
}

func readyProvider(model domain.BinaryClassifier) *MockModelProvider {
	provider := new(MockModelProvider)
	provider.On("Model").Return(model, nil)
	return provider
}
