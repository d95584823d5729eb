package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diabetes-risk-mcp-server/internal/audit"
	"github.com/diabetes-risk-mcp-server/internal/domain"
	"github.com/diabetes-risk-mcp-server/internal/report"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score one patient",
	Example: `  risk-cli predict --glucose 148 --blood-pressure 72 --bmi 33.6 --age 50 --pregnancies 6
  risk-cli predict --glucose 89 --bmi 28.1 --age 21 --insulin 94 --json`,
	RunE: runPredict,
}

func init() {
	registerPredictFlags(predictCmd)
}

func registerPredictFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("pregnancies", 0, "Number of pregnancies")
	f.Float64("glucose", 0, "Plasma glucose (mg/dL), 0 if not measured")
	f.Float64("blood-pressure", 0, "Diastolic blood pressure (mmHg), 0 if not measured")
	f.Float64("skin-thickness", domain.DefaultSkinThickness, "Triceps skin fold thickness (mm)")
	f.Float64("insulin", domain.DefaultInsulin, "Two-hour serum insulin (µU/mL)")
	f.Float64("bmi", 0, "Body mass index (kg/m²), 0 if not measured")
	f.Float64("dpf", domain.DefaultDiabetesPedigreeFunction, "Diabetes pedigree function")
	f.Int("age", 0, "Age in years")
	f.Bool("json", false, "Print the full result as JSON")
}

func inputFromFlags(cmd *cobra.Command) domain.PatientInput {
	f := cmd.Flags()
	var in domain.PatientInput
	in.Pregnancies, _ = f.GetInt("pregnancies")
	in.Glucose, _ = f.GetFloat64("glucose")
	in.BloodPressure, _ = f.GetFloat64("blood-pressure")
	in.BMI, _ = f.GetFloat64("bmi")
	in.Age, _ = f.GetInt("age")

	if f.Changed("skin-thickness") {
		v, _ := f.GetFloat64("skin-thickness")
		in.SkinThickness = &v
	}
	if f.Changed("insulin") {
		v, _ := f.GetFloat64("insulin")
		in.Insulin = &v
	}
	if f.Changed("dpf") {
		v, _ := f.GetFloat64("dpf")
		in.DiabetesPedigreeFunction = &v
	}
	return in
}

func runPredict(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	result, err := a.Pipeline.RunInput(ctx, inputFromFlags(cmd))
	if err != nil {
		return fmt.Errorf("%s: %w", domain.ErrorCode(err), err)
	}
	a.Recorder.Record(ctx, result, audit.SourceCLI)

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	_, err = fmt.Fprint(out, report.Text(result))
	return err
}
