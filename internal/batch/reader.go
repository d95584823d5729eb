// Package batch scores spreadsheets of patients through the inference pipeline.
package batch

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// Row is one parsed data row. Number is the 1-based sheet row. Err is set when
// the row could not be turned into a record.
type Row struct {
	Number int
	Record domain.PatientRecord
	Err    error
}

// ReadRows parses the first sheet of an xlsx workbook. The first row must name
// every required model feature; matching ignores case and surrounding spaces,
// and unknown columns are ignored. SkinThickness, Insulin and
// DiabetesPedigreeFunction may be absent or blank and then take their defaults.
// Rows with only blank cells are skipped.
func ReadRows(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	columns, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	var out []Row
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		number := i + 2
		rec, err := parseRecord(cells, columns)
		out = append(out, Row{Number: number, Record: rec, Err: err})
	}
	return out, nil
}

// noColumn marks an optional feature missing from the header.
const noColumn = -1

// optionalFeature reports whether a feature index may be omitted.
func optionalFeature(i int) bool {
	switch i {
	case 3, 4, 6: // SkinThickness, Insulin, DiabetesPedigreeFunction
		return true
	}
	return false
}

// mapHeader returns the column index of each feature, in feature order.
func mapHeader(header []string) ([domain.FeatureCount]int, error) {
	var columns [domain.FeatureCount]int
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	var missing []string
	for i, name := range domain.FeatureNames() {
		col, ok := index[strings.ToLower(name)]
		switch {
		case ok:
			columns[i] = col
		case optionalFeature(i):
			columns[i] = noColumn
		default:
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columns, fmt.Errorf("header is missing columns: %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

func parseRecord(cells []string, columns [domain.FeatureCount]int) (domain.PatientRecord, error) {
	names := domain.FeatureNames()
	var values [domain.FeatureCount]*float64
	for i, col := range columns {
		raw := ""
		if col != noColumn && col < len(cells) {
			raw = strings.TrimSpace(cells[col])
		}
		if raw == "" {
			if optionalFeature(i) {
				continue
			}
			return domain.PatientRecord{}, fmt.Errorf("%s: missing value", names[i])
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.PatientRecord{}, fmt.Errorf("%s: %q is not a number", names[i], raw)
		}
		values[i] = &v
	}

	pregnancies, err := wholeNumber(names[0], *values[0])
	if err != nil {
		return domain.PatientRecord{}, err
	}
	age, err := wholeNumber(names[7], *values[7])
	if err != nil {
		return domain.PatientRecord{}, err
	}

	in := domain.PatientInput{
		Pregnancies:              pregnancies,
		Glucose:                  *values[1],
		BloodPressure:            *values[2],
		SkinThickness:            values[3],
		Insulin:                  values[4],
		BMI:                      *values[5],
		DiabetesPedigreeFunction: values[6],
		Age:                      age,
	}
	return in.ToRecord(), nil
}

func wholeNumber(field string, v float64) (int, error) {
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%s: %g is not a whole number", field, v)
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%s: %g is out of range", field, v)
	}
	return int(v), nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
