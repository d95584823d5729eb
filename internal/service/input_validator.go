package service

import (
	"fmt"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// ValueRange is an inclusive numeric interval.
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range, bounds included.
func (r ValueRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// FieldRange describes the accepted and typical values of one input field.
type FieldRange struct {
	Field     string      `json:"field"`
	Plausible ValueRange  `json:"plausible"`
	Typical   *ValueRange `json:"typical,omitempty"`
	Default   float64     `json:"default,omitempty"`
	Sentinel  bool        `json:"sentinel"` // zero means "not measured"
}

var normalGlucoseAndPressure = &ValueRange{Min: 70, Max: 200}

var fieldRanges = []FieldRange{
	{Field: domain.FieldPregnancies, Plausible: ValueRange{0, 20}},
	{Field: domain.FieldGlucose, Plausible: ValueRange{50, 300}, Typical: normalGlucoseAndPressure, Default: 70, Sentinel: true},
	{Field: domain.FieldBloodPressure, Plausible: ValueRange{30, 250}, Typical: normalGlucoseAndPressure, Default: 85, Sentinel: true},
	{Field: domain.FieldBMI, Plausible: ValueRange{1.0, 60.0}, Sentinel: true},
	{Field: domain.FieldAge, Plausible: ValueRange{15, 120}},
}

// typicalMessages follow the wording shown to users of the form front-end.
var typicalMessages = map[string]string{
	domain.FieldGlucose:       "glucose value is outside the normal range",
	domain.FieldBloodPressure: "blood pressure is outside the normal range",
}

// InputValidator checks raw records against the front-end input ranges.
// Violations never reject a request; they become warnings.
type InputValidator struct {
	ranges []FieldRange
}

// NewInputValidator creates a new input validator
func NewInputValidator() *InputValidator {
	return &InputValidator{ranges: fieldRanges}
}

// Validate returns one warning per violated bound, in field order. A zero in a
// sentinel-prone field is skipped since it will be imputed.
func (v *InputValidator) Validate(rec domain.PatientRecord) []domain.RangeWarning {
	values := rec.Features().Map()
	var warnings []domain.RangeWarning

	for _, fr := range v.ranges {
		value := values[fr.Field]
		if fr.Sentinel && value == 0 {
			continue
		}

		if !fr.Plausible.Contains(value) {
			warnings = append(warnings, domain.NewRangeWarning(fr.Field, value, fr.Plausible.Min, fr.Plausible.Max,
				fmt.Sprintf("%s value %g is outside the plausible range %g–%g", fr.Field, value, fr.Plausible.Min, fr.Plausible.Max)))
		}
		if fr.Typical != nil && !fr.Typical.Contains(value) {
			warnings = append(warnings, domain.NewRangeWarning(fr.Field, value, fr.Typical.Min, fr.Typical.Max, typicalMessages[fr.Field]))
		}
	}

	return warnings
}

// Ranges returns the field ranges in check order.
func (v *InputValidator) Ranges() []FieldRange {
	out := make([]FieldRange, len(v.ranges))
	copy(out, v.ranges)
	return out
}
