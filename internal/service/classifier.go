package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// ClassifierAdapter turns a sanitized record into the external model's input and
// normalizes its two outputs.
type ClassifierAdapter struct {
	logger   *logrus.Logger
	provider domain.ModelProvider
}

// NewClassifierAdapter creates a new classifier adapter
func NewClassifierAdapter(logger *logrus.Logger, provider domain.ModelProvider) *ClassifierAdapter {
	return &ClassifierAdapter{
		logger:   logger,
		provider: provider,
	}
}

// Classify calls Predict and PredictProbability on the model in that order. The
// label and probability are returned as produced and are not reconciled. There
// is no retry and no default value on failure.
func (c *ClassifierAdapter) Classify(ctx context.Context, rec domain.PatientRecord) (domain.ClassifierResult, error) {
	model, err := c.provider.Model()
	if err != nil {
		if errors.Is(err, domain.ErrModelUnavailable) {
			return domain.ClassifierResult{}, err
		}
		return domain.ClassifierResult{}, domain.NewClassifierError(domain.ErrModelUnavailable, "load", err)
	}

	features := rec.Features()

	label, err := model.Predict(ctx, features)
	if err != nil {
		return domain.ClassifierResult{}, domain.NewClassifierError(domain.ErrInferenceFailure, "predict", err)
	}
	if label != 0 && label != 1 {
		return domain.ClassifierResult{}, domain.NewClassifierError(domain.ErrInferenceFailure, "predict",
			fmt.Errorf("%w: %d", domain.ErrInvalidLabel, label))
	}

	probability, err := model.PredictProbability(ctx, features)
	if err != nil {
		return domain.ClassifierResult{}, domain.NewClassifierError(domain.ErrInferenceFailure, "predict_probability", err)
	}
	if math.IsNaN(probability) || math.IsInf(probability, 0) {
		return domain.ClassifierResult{}, domain.NewClassifierError(domain.ErrInferenceFailure, "predict_probability",
			fmt.Errorf("non-finite probability %v", probability))
	}

	c.logger.WithFields(logrus.Fields{
		"label":         label,
		"probability":   probability,
		"model_version": c.provider.Version(),
	}).Debug("Classifier call completed")

	return domain.ClassifierResult{Label: label, Probability: probability}, nil
}

// ModelVersion returns the version string of the model behind the adapter.
func (c *ClassifierAdapter) ModelVersion() string {
	return c.provider.Version()
}

// Ready reports whether the model handle has loaded successfully.
func (c *ClassifierAdapter) Ready() error {
	_, err := c.provider.Model()
	return err
}
