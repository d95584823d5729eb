package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

type requestIDKey struct{}

// ContextWithRequestID attaches a request id for the pipeline to stamp on its result.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id set by ContextWithRequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Classifier is the model-facing step of the pipeline.
type Classifier interface {
	Classify(ctx context.Context, rec domain.PatientRecord) (domain.ClassifierResult, error)
	ModelVersion() string
}

// InferencePipeline runs one record through sanitize, classify, categorize and
// explain. Runs are synchronous and share no mutable state.
type InferencePipeline struct {
	logger     *logrus.Logger
	sanitizer  *InputSanitizer
	validator  *InputValidator
	classifier Classifier
	risk       *RiskClassifier
	explainer  *ExplanationEngine
	now        func() time.Time
}

// NewInferencePipeline creates a new pipeline around the given classifier
func NewInferencePipeline(logger *logrus.Logger, classifier Classifier) *InferencePipeline {
	return &InferencePipeline{
		logger:     logger,
		sanitizer:  NewInputSanitizer(),
		validator:  NewInputValidator(),
		classifier: classifier,
		risk:       NewRiskClassifier(),
		explainer:  NewExplanationEngine(logger),
		now:        time.Now,
	}
}

// Run scores one raw record. A classification error aborts the run and is
// returned as is; categorize and explain are then not invoked.
func (p *InferencePipeline) Run(ctx context.Context, raw domain.PatientRecord) (*domain.PredictionResult, error) {
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	startTime := time.Now()

	logger := p.logger.WithField("request_id", requestID)
	logger.Info("Starting risk prediction")
	logger.WithField("record", raw).Debug("Raw input record")

	warnings := p.validator.Validate(raw)
	for _, w := range warnings {
		logger.WithField("field", w.Field).Warn(w.Message)
	}

	sanitized, imputed := p.sanitizer.SanitizeWithReport(raw)

	classified, err := p.classifier.Classify(ctx, sanitized)
	if err != nil {
		logger.WithError(err).Error("Risk prediction failed")
		return nil, err
	}

	assessment := p.risk.Assess(classified.Probability)
	explanations, codes := p.explainer.Evaluate(sanitized)

	result := &domain.PredictionResult{
		RequestID:        requestID,
		ClassifierResult: classified,
		RiskAssessment:   assessment,
		Explanations:     explanations,
		RuleCodes:        codes,
		ImputedFields:    imputed,
		Warnings:         warnings,
		ModelVersion:     p.classifier.ModelVersion(),
		Disclaimer:       domain.Disclaimer,
		GeneratedAt:      p.now().UTC(),
	}

	logger.WithFields(logrus.Fields{
		"risk_level":      assessment.Level.String(),
		"label":           classified.Label,
		"rules_applied":   len(codes),
		"imputed_fields":  len(imputed),
		"warnings":        len(warnings),
		"processing_time": time.Since(startTime),
	}).Info("Risk prediction completed")

	return result, nil
}

// RunInput applies front-end defaults to the input and runs it.
func (p *InferencePipeline) RunInput(ctx context.Context, in domain.PatientInput) (*domain.PredictionResult, error) {
	return p.Run(ctx, in.ToRecord())
}

// Rules returns the explanation rule catalogue.
func (p *InferencePipeline) Rules() []RiskRule {
	return p.explainer.Rules()
}

// Ranges returns the input ranges used for warnings.
func (p *InferencePipeline) Ranges() []FieldRange {
	return p.validator.Ranges()
}
