package service

import (
	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// Risk band boundaries. A probability equal to a boundary falls in the higher band.
const (
	MediumRiskThreshold = 0.3
	HighRiskThreshold   = 0.6
)

// RiskClassifier maps a classifier probability to a coarse risk level.
type RiskClassifier struct{}

// NewRiskClassifier creates a new risk classifier
func NewRiskClassifier() *RiskClassifier {
	return &RiskClassifier{}
}

// Categorize applies the fixed thresholds. Probabilities outside [0,1] are not
// rejected and still follow the thresholds.
func (r *RiskClassifier) Categorize(p float64) domain.RiskLevel {
	switch {
	case p < MediumRiskThreshold:
		return domain.LOW_RISK
	case p < HighRiskThreshold:
		return domain.MEDIUM_RISK
	default:
		return domain.HIGH_RISK
	}
}

// Assess pairs the level with the probability it was derived from.
func (r *RiskClassifier) Assess(p float64) domain.RiskAssessment {
	return domain.RiskAssessment{Level: r.Categorize(p), Probability: p}
}
