package batch

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/diabetes-risk-mcp-server/internal/domain"
	"github.com/diabetes-risk-mcp-server/internal/report"
)

// ResultsSheet is the sheet name of the results workbook.
const ResultsSheet = "Results"

var resultColumns = []interface{}{
	"Row", "Label", "Probability", "Risk Level", "Explanations", "Warnings", "Error",
}

// WriteResults writes one results row per outcome as an xlsx workbook.
func WriteResults(w io.Writer, outcomes []Outcome) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ResultsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(ResultsSheet, "A1", &resultColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(ResultsSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, o := range outcomes {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := resultRow(o)
		if err := f.SetSheetRow(ResultsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", o.Row, err)
		}
	}

	if err := f.SetColWidth(ResultsSheet, "E", "G", 48); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func resultRow(o Outcome) []interface{} {
	if o.Err != nil {
		return []interface{}{o.Row, "", "", "", "", "", o.Err.Error()}
	}
	r := o.Result
	return []interface{}{
		o.Row,
		r.ClassifierResult.Label,
		report.FormatProbability(r.ClassifierResult.Probability),
		string(r.RiskAssessment.Level),
		strings.Join(r.Explanations, "; "),
		joinWarnings(r.Warnings),
		"",
	}
}

func joinWarnings(warnings []domain.RangeWarning) string {
	msgs := make([]string, len(warnings))
	for i, w := range warnings {
		msgs[i] = w.Message
	}
	return strings.Join(msgs, "; ")
}
