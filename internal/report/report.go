// Package report renders prediction results for people: plain text for the CLI,
// Markdown for MCP clients and a flat view for JSON front-ends.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// View is the display form of a prediction result.
type View struct {
	RequestID       string   `json:"request_id,omitempty"`
	RiskLevel       string   `json:"risk_level"`
	Icon            string   `json:"icon"`
	Headline        string   `json:"headline"`
	Probability     float64  `json:"probability"`
	ProbabilityText string   `json:"probability_text"`
	Progress        int      `json:"progress"` // 0-100
	Label           int      `json:"label"`
	LabelText       string   `json:"label_text"`
	Explanations    []string `json:"explanations"`
	Warnings        []string `json:"warnings,omitempty"`
	ImputedFields   []string `json:"imputed_fields,omitempty"`
	ModelVersion    string   `json:"model_version,omitempty"`
	Disclaimer      string   `json:"disclaimer"`
}

// FormatProbability renders p as a percentage with two decimals, e.g. 0.6432 -> "64.32%".
func FormatProbability(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}

// Progress converts p to a whole percentage clamped to [0,100].
func Progress(p float64) int {
	switch {
	case math.IsNaN(p), p <= 0:
		return 0
	case p >= 1:
		return 100
	default:
		return int(p * 100)
	}
}

// Headline is the one-line summary, e.g. "🔴 Diabetes risk: High".
func Headline(level domain.RiskLevel) string {
	return fmt.Sprintf("%s Diabetes risk: %s", level.Icon(), level.String())
}

// NewView builds the display form of r.
func NewView(r *domain.PredictionResult) View {
	level := r.RiskAssessment.Level
	p := r.ClassifierResult.Probability

	warnings := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		warnings = append(warnings, w.Message)
	}

	disclaimer := r.Disclaimer
	if disclaimer == "" {
		disclaimer = domain.Disclaimer
	}

	return View{
		RequestID:       r.RequestID,
		RiskLevel:       level.String(),
		Icon:            level.Icon(),
		Headline:        Headline(level),
		Probability:     p,
		ProbabilityText: FormatProbability(p),
		Progress:        Progress(p),
		Label:           r.ClassifierResult.Label,
		LabelText:       "Patient is " + r.ClassifierResult.LabelText(),
		Explanations:    r.Explanations,
		Warnings:        warnings,
		ImputedFields:   r.ImputedFields,
		ModelVersion:    r.ModelVersion,
		Disclaimer:      disclaimer,
	}
}

// Text renders r for a terminal.
func Text(r *domain.PredictionResult) string {
	v := NewView(r)
	var b strings.Builder

	for _, w := range v.Warnings {
		fmt.Fprintf(&b, "⚠️  %s\n", w)
	}
	if len(v.Warnings) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s\n", v.Headline)
	fmt.Fprintf(&b, "[%s%s] %s\n", strings.Repeat("#", v.Progress/5), strings.Repeat(".", 20-v.Progress/5), v.ProbabilityText)
	fmt.Fprintf(&b, "%s\n\n", v.LabelText)

	b.WriteString("Factors to watch:\n")
	for _, e := range v.Explanations {
		fmt.Fprintf(&b, "  - %s\n", e)
	}
	if len(v.ImputedFields) > 0 {
		fmt.Fprintf(&b, "\nImputed with population medians: %s\n", strings.Join(v.ImputedFields, ", "))
	}

	fmt.Fprintf(&b, "\n%s\n", v.Disclaimer)
	return b.String()
}

// Markdown renders r for chat clients.
func Markdown(r *domain.PredictionResult) string {
	v := NewView(r)
	var b strings.Builder

	b.WriteString("## Prediction result\n\n")
	fmt.Fprintf(&b, "%s **Diabetes risk: %s**\n\n", v.Icon, v.RiskLevel)
	fmt.Fprintf(&b, "Probability: %s\n\n", v.ProbabilityText)
	fmt.Fprintf(&b, "%s\n\n", v.LabelText)

	b.WriteString("### Factors to watch\n")
	for _, e := range v.Explanations {
		fmt.Fprintf(&b, "- %s\n", e)
	}

	if len(v.Warnings) > 0 {
		b.WriteString("\n### Input warnings\n")
		for _, w := range v.Warnings {
			fmt.Fprintf(&b, "- ⚠️ %s\n", w)
		}
	}
	if len(v.ImputedFields) > 0 {
		fmt.Fprintf(&b, "\n_Imputed with population medians: %s_\n", strings.Join(v.ImputedFields, ", "))
	}

	fmt.Fprintf(&b, "\n> %s\n", v.Disclaimer)
	return b.String()
}
