package service

import (
	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// InputSanitizer replaces sentinel zeros with population medians.
type InputSanitizer struct{}

// NewInputSanitizer creates a new input sanitizer
func NewInputSanitizer() *InputSanitizer {
	return &InputSanitizer{}
}

// Sanitize returns a copy of the record in which every sentinel-prone field that
// is exactly zero holds its median instead. Negative values are not sentinels and
// pass through. The call is total and idempotent because no median is zero.
func (s *InputSanitizer) Sanitize(rec domain.PatientRecord) domain.PatientRecord {
	out, _ := s.SanitizeWithReport(rec)
	return out
}

// SanitizeWithReport is Sanitize plus the names of the imputed fields, in
// training column order.
func (s *InputSanitizer) SanitizeWithReport(rec domain.PatientRecord) (domain.PatientRecord, []string) {
	table := domain.ImputationTable()
	var imputed []string

	impute := func(field string, v *float64) {
		if *v == 0 {
			*v = table[field]
			imputed = append(imputed, field)
		}
	}

	impute(domain.FieldGlucose, &rec.Glucose)
	impute(domain.FieldBloodPressure, &rec.BloodPressure)
	impute(domain.FieldSkinThickness, &rec.SkinThickness)
	impute(domain.FieldInsulin, &rec.Insulin)
	impute(domain.FieldBMI, &rec.BMI)

	return rec, imputed
}
