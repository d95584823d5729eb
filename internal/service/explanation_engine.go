package service

import (
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// Rule codes
const (
	RuleHighGlucose       = "HIGH_GLUCOSE"
	RuleObesity           = "OBESITY"
	RuleAge               = "AGE"
	RuleFamilyHistory     = "FAMILY_HISTORY"
	RuleHighBloodPressure = "HIGH_BLOOD_PRESSURE"
	RuleLowBloodPressure  = "LOW_BLOOD_PRESSURE"
)

// NoDominantRiskFactor is the sole explanation when no rule fires.
const NoDominantRiskFactor = "no dominant risk factor"

// Comparison is the operator a rule applies to its field.
type Comparison string

const (
	GREATER_THAN Comparison = ">"
	LESS_THAN    Comparison = "<"
)

// RiskRule is one threshold predicate over a sanitized record.
type RiskRule struct {
	Code       string     `json:"code"`
	Field      string     `json:"field"`
	Comparison Comparison `json:"comparison"`
	Threshold  float64    `json:"threshold"`
	Message    string     `json:"message"`
}

// Applies reports whether the rule fires for the record.
func (r RiskRule) Applies(rec domain.PatientRecord) bool {
	v := rec.Features().Map()[r.Field]
	switch r.Comparison {
	case GREATER_THAN:
		return v > r.Threshold
	case LESS_THAN:
		return v < r.Threshold
	default:
		return false
	}
}

// riskRules is evaluation and output order.
var riskRules = []RiskRule{
	{Code: RuleHighGlucose, Field: domain.FieldGlucose, Comparison: GREATER_THAN, Threshold: 140, Message: "high blood glucose"},
	{Code: RuleObesity, Field: domain.FieldBMI, Comparison: GREATER_THAN, Threshold: 30, Message: "BMI indicates obesity"},
	{Code: RuleAge, Field: domain.FieldAge, Comparison: GREATER_THAN, Threshold: 45, Message: "age is a risk factor"},
	{Code: RuleFamilyHistory, Field: domain.FieldDiabetesPedigreeFunction, Comparison: GREATER_THAN, Threshold: 0.8, Message: "strong family history of diabetes"},
	{Code: RuleHighBloodPressure, Field: domain.FieldBloodPressure, Comparison: GREATER_THAN, Threshold: 85, Message: "blood pressure too high"},
	{Code: RuleLowBloodPressure, Field: domain.FieldBloodPressure, Comparison: LESS_THAN, Threshold: 60, Message: "blood pressure too low"},
}

// ExplanationEngine produces the human-readable risk factors for a record.
// It never looks at the classifier output.
type ExplanationEngine struct {
	logger *logrus.Logger
	rules  []RiskRule
}

// NewExplanationEngine creates a new explanation engine
func NewExplanationEngine(logger *logrus.Logger) *ExplanationEngine {
	rules := make([]RiskRule, len(riskRules))
	copy(rules, riskRules)
	return &ExplanationEngine{
		logger: logger,
		rules:  rules,
	}
}

// Explain evaluates every rule in order and returns the messages of the fired
// ones. The result is never empty.
func (e *ExplanationEngine) Explain(rec domain.PatientRecord) []string {
	explanations, _ := e.Evaluate(rec)
	return explanations
}

// Evaluate is Explain plus the codes of the fired rules.
func (e *ExplanationEngine) Evaluate(rec domain.PatientRecord) ([]string, []string) {
	var explanations, codes []string
	for _, rule := range e.rules {
		if rule.Applies(rec) {
			explanations = append(explanations, rule.Message)
			codes = append(codes, rule.Code)
		}
	}

	e.logger.WithFields(logrus.Fields{
		"total_rules":   len(e.rules),
		"applied_rules": len(codes),
	}).Debug("Evaluated risk rules")

	if len(explanations) == 0 {
		return []string{NoDominantRiskFactor}, nil
	}
	return explanations, codes
}

// Rules returns the rule catalogue in evaluation order.
func (e *ExplanationEngine) Rules() []RiskRule {
	out := make([]RiskRule, len(e.rules))
	copy(out, e.rules)
	return out
}
