// Package domain contains the core entities of the diabetes risk inference pipeline:
// the patient measurement record, the classifier output, the risk assessment and
// the aggregate prediction result returned to front-ends.
//
// The result is a risk indicator only. It is never a medical diagnosis.
package domain

import (
	"errors"
	"time"
)

// RiskLevel is the ordinal risk category derived from the classifier probability.
type RiskLevel string

const (
	LOW_RISK    RiskLevel = "Low"
	MEDIUM_RISK RiskLevel = "Medium"
	HIGH_RISK   RiskLevel = "High"
)

// Validation errors for risk and label values
var (
	ErrInvalidRiskLevel = errors.New("invalid risk level")
	ErrInvalidLabel     = errors.New("invalid classifier label")
)

// IsValid reports whether the level is one of the three known categories.
func (r RiskLevel) IsValid() bool {
	switch r {
	case LOW_RISK, MEDIUM_RISK, HIGH_RISK:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk level.
func (r RiskLevel) String() string {
	return string(r)
}

// Icon returns the traffic-light marker shown next to the level.
func (r RiskLevel) Icon() string {
	switch r {
	case LOW_RISK:
		return "🟢"
	case MEDIUM_RISK:
		return "🟡"
	case HIGH_RISK:
		return "🔴"
	default:
		return "⚪"
	}
}

// Rank orders levels for comparisons: Low < Medium < High.
func (r RiskLevel) Rank() int {
	switch r {
	case LOW_RISK:
		return 1
	case MEDIUM_RISK:
		return 2
	case HIGH_RISK:
		return 3
	default:
		return 0
	}
}

// Field names exactly as the classifier was trained on them.
const (
	FieldPregnancies              = "Pregnancies"
	FieldGlucose                  = "Glucose"
	FieldBloodPressure            = "BloodPressure"
	FieldSkinThickness            = "SkinThickness"
	FieldInsulin                  = "Insulin"
	FieldBMI                      = "BMI"
	FieldDiabetesPedigreeFunction = "DiabetesPedigreeFunction"
	FieldAge                      = "Age"
)

// FeatureCount is the number of model inputs.
const FeatureCount = 8

// featureNames holds the training column order. Never reorder.
var featureNames = [FeatureCount]string{
	FieldPregnancies,
	FieldGlucose,
	FieldBloodPressure,
	FieldSkinThickness,
	FieldInsulin,
	FieldBMI,
	FieldDiabetesPedigreeFunction,
	FieldAge,
}

// FeatureNames returns the model feature names in training order.
func FeatureNames() [FeatureCount]string {
	return featureNames
}

// PatientRecord holds the eight raw or sanitized measurements of one patient.
// It is a value type: every transformation returns a new record.
type PatientRecord struct {
	Pregnancies              int     `json:"pregnancies"`
	Glucose                  float64 `json:"glucose"`                    // mg/dL
	BloodPressure            float64 `json:"blood_pressure"`             // diastolic, mmHg
	SkinThickness            float64 `json:"skin_thickness"`             // mm
	Insulin                  float64 `json:"insulin"`                    // µU/mL
	BMI                      float64 `json:"bmi"`                        // kg/m²
	DiabetesPedigreeFunction float64 `json:"diabetes_pedigree_function"` // family history score
	Age                      int     `json:"age"`                        // years
}

// FeatureVector is the record laid out in training column order.
type FeatureVector [FeatureCount]float64

// Features returns the record as model input, ordered as FeatureNames.
func (p PatientRecord) Features() FeatureVector {
	return FeatureVector{
		float64(p.Pregnancies),
		p.Glucose,
		p.BloodPressure,
		p.SkinThickness,
		p.Insulin,
		p.BMI,
		p.DiabetesPedigreeFunction,
		float64(p.Age),
	}
}

// Float32 converts the vector for runtimes that take single precision input.
func (f FeatureVector) Float32() []float32 {
	out := make([]float32, FeatureCount)
	for i, v := range f {
		out[i] = float32(v)
	}
	return out
}

// Map returns the vector keyed by feature name.
func (f FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, FeatureCount)
	for i, name := range featureNames {
		out[name] = f[i]
	}
	return out
}

// Population medians used to replace sentinel zeros.
const (
	MedianGlucose       = 117.0
	MedianBloodPressure = 72.0
	MedianSkinThickness = 29.0
	MedianInsulin       = 125.0
	MedianBMI           = 32.3
)

// ImputationTable returns the replacement value for each sentinel-prone field.
// A fresh map is returned on every call; the medians themselves are constants.
func ImputationTable() map[string]float64 {
	return map[string]float64{
		FieldGlucose:       MedianGlucose,
		FieldBloodPressure: MedianBloodPressure,
		FieldSkinThickness: MedianSkinThickness,
		FieldInsulin:       MedianInsulin,
		FieldBMI:           MedianBMI,
	}
}

// Placeholder values used when a front-end does not collect these fields.
const (
	DefaultSkinThickness            = 29.0
	DefaultInsulin                  = 125.0
	DefaultDiabetesPedigreeFunction = 0.3725
)

// PatientInput is the request shape accepted by front-ends. The three optional
// measurements fall back to the placeholder defaults when omitted.
type PatientInput struct {
	Pregnancies              int      `json:"pregnancies"`
	Glucose                  float64  `json:"glucose"`
	BloodPressure            float64  `json:"blood_pressure"`
	SkinThickness            *float64 `json:"skin_thickness,omitempty"`
	Insulin                  *float64 `json:"insulin,omitempty"`
	BMI                      float64  `json:"bmi"`
	DiabetesPedigreeFunction *float64 `json:"diabetes_pedigree_function,omitempty"`
	Age                      int      `json:"age"`
}

// ToRecord builds the raw record, applying defaults for missing optional fields.
func (in PatientInput) ToRecord() PatientRecord {
	rec := PatientRecord{
		Pregnancies:              in.Pregnancies,
		Glucose:                  in.Glucose,
		BloodPressure:            in.BloodPressure,
		SkinThickness:            DefaultSkinThickness,
		Insulin:                  DefaultInsulin,
		BMI:                      in.BMI,
		DiabetesPedigreeFunction: DefaultDiabetesPedigreeFunction,
		Age:                      in.Age,
	}
	if in.SkinThickness != nil {
		rec.SkinThickness = *in.SkinThickness
	}
	if in.Insulin != nil {
		rec.Insulin = *in.Insulin
	}
	if in.DiabetesPedigreeFunction != nil {
		rec.DiabetesPedigreeFunction = *in.DiabetesPedigreeFunction
	}
	return rec
}

// ClassifierResult is the normalized output of one external model call.
// Label and Probability come from independent model operations and are not
// reconciled against each other.
type ClassifierResult struct {
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
}

// IsDiabetic reports whether the model labelled the record positive.
func (c ClassifierResult) IsDiabetic() bool {
	return c.Label == 1
}

// LabelText returns the caller-facing wording for the binary label.
func (c ClassifierResult) LabelText() string {
	if c.IsDiabetic() {
		return "potentially diabetic"
	}
	return "potentially not diabetic"
}

// RiskAssessment is a pure function of the classifier probability.
type RiskAssessment struct {
	Level       RiskLevel `json:"level"`
	Probability float64   `json:"probability"`
}

// Disclaimer accompanies every rendered result.
const Disclaimer = "This result is not a medical diagnosis. Please consult a health professional or the nearest clinic."

// PredictionResult is created fresh for every request and discarded after it is read.
type PredictionResult struct {
	RequestID        string           `json:"request_id,omitempty"`
	ClassifierResult ClassifierResult `json:"classifier_result"`
	RiskAssessment   RiskAssessment   `json:"risk_assessment"`
	Explanations     []string         `json:"explanations"`
	RuleCodes        []string         `json:"rule_codes,omitempty"`
	ImputedFields    []string         `json:"imputed_fields,omitempty"`
	Warnings         []RangeWarning   `json:"warnings,omitempty"`
	ModelVersion     string           `json:"model_version,omitempty"`
	Disclaimer       string           `json:"disclaimer"`
	GeneratedAt      time.Time        `json:"generated_at"`
}
