package domain

import (
	"context"
)

// BinaryClassifier is the external pre-trained model. Both operations take the
// feature vector in training order. Implementations must be safe for concurrent
// read-only use once constructed.
type BinaryClassifier interface {
	Predict(ctx context.Context, features FeatureVector) (int, error)
	PredictProbability(ctx context.Context, features FeatureVector) (float64, error)
}

// ModelProvider hands out the process-wide model handle, loading it on first use.
type ModelProvider interface {
	Model() (BinaryClassifier, error)
	Version() string
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetModelConfig() *ModelConfig
	GetAuditConfig() *AuditConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
