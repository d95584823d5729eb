package report

import (
	"fmt"
	"strings"
)

// NormalRange is one reference interval shown next to the input form.
type NormalRange struct {
	Indicator string `json:"indicator"`
	Range     string `json:"range"`
	Note      string `json:"note,omitempty"`
}

// Guidance is the static informational content served alongside predictions.
type Guidance struct {
	NormalRanges []NormalRange `json:"normal_ranges"`
	Tips         []string      `json:"tips"`
}

// DefaultGuidance returns a fresh copy of the reference ranges and health tips.
func DefaultGuidance() Guidance {
	return Guidance{
		NormalRanges: []NormalRange{
			{Indicator: "Diastolic blood pressure", Range: "60–80 mmHg"},
			{Indicator: "Blood glucose", Range: "70–100 mg/dL", Note: "after 8 hours of fasting"},
			{Indicator: "Blood glucose", Range: "< 140 mg/dL", Note: "two hours after eating"},
			{Indicator: "Body Mass Index (BMI)", Range: "weight (kg) / height (m)²", Note: "e.g. 70 / 1.70² = 24.22"},
		},
		Tips: []string{
			"Keep a balanced diet",
			"Exercise regularly, at least 30 minutes a day",
			"Avoid smoking and alcohol",
			"Get enough sleep and manage stress",
		},
	}
}

// Markdown renders the guidance for chat clients.
func (g Guidance) Markdown() string {
	var b strings.Builder

	b.WriteString("## Normal ranges\n")
	for _, r := range g.NormalRanges {
		if r.Note != "" {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", r.Indicator, r.Range, r.Note)
		} else {
			fmt.Fprintf(&b, "- %s: %s\n", r.Indicator, r.Range)
		}
	}

	b.WriteString("\n## Tips to reduce diabetes risk\n")
	for _, tip := range g.Tips {
		fmt.Fprintf(&b, "- %s\n", tip)
	}
	return b.String()
}
