package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-mcp-server/internal/audit"
	"github.com/diabetes-risk-mcp-server/internal/domain"
	"github.com/diabetes-risk-mcp-server/internal/report"
	"github.com/diabetes-risk-mcp-server/internal/service"
)

// PredictRiskParams defines parameters for the predict_diabetes_risk tool
type PredictRiskParams struct {
	Pregnancies              int      `json:"pregnancies" jsonschema:"number of pregnancies"`
	Glucose                  float64  `json:"glucose" jsonschema:"plasma glucose in mg/dL, 0 if not measured"`
	BloodPressure            float64  `json:"blood_pressure" jsonschema:"diastolic blood pressure in mmHg, 0 if not measured"`
	SkinThickness            *float64 `json:"skin_thickness,omitempty" jsonschema:"triceps skin fold thickness in mm"`
	Insulin                  *float64 `json:"insulin,omitempty" jsonschema:"two-hour serum insulin in µU/mL"`
	BMI                      float64  `json:"bmi" jsonschema:"body mass index in kg/m², 0 if not measured"`
	DiabetesPedigreeFunction *float64 `json:"diabetes_pedigree_function,omitempty" jsonschema:"family history score"`
	Age                      int      `json:"age" jsonschema:"age in years"`
}

// Input converts the tool parameters to pipeline input.
func (p PredictRiskParams) Input() domain.PatientInput {
	return domain.PatientInput{
		Pregnancies:              p.Pregnancies,
		Glucose:                  p.Glucose,
		BloodPressure:            p.BloodPressure,
		SkinThickness:            p.SkinThickness,
		Insulin:                  p.Insulin,
		BMI:                      p.BMI,
		DiabetesPedigreeFunction: p.DiabetesPedigreeFunction,
		Age:                      p.Age,
	}
}

// PredictRiskResult defines the structured output of predict_diabetes_risk
type PredictRiskResult struct {
	Result *domain.PredictionResult `json:"result"`
	View   report.View              `json:"view"`
}

// ListRulesParams takes no arguments.
type ListRulesParams struct{}

// ListRulesResult defines the structured output of list_risk_rules
type ListRulesResult struct {
	Rules []service.RiskRule `json:"rules"`
}

// GuidanceParams takes no arguments.
type GuidanceParams struct{}

func (s *Server) handlePredictRisk(ctx context.Context, req *mcp.CallToolRequest, params PredictRiskParams) (*mcp.CallToolResult, any, error) {
	requestID := uuid.New().String()
	ctx = service.ContextWithRequestID(ctx, requestID)
	s.logger.WithFields(logrus.Fields{
		"tool":       ToolPredictRisk,
		"request_id": requestID,
	}).Info("Tool invoked")

	result, err := s.predictor.RunInput(ctx, params.Input())
	if err != nil {
		return s.createErrorResult(requestID, err), nil, nil
	}

	s.recorder.Record(ctx, result, audit.SourceMCP)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: report.Markdown(result)},
		},
	}, PredictRiskResult{Result: result, View: report.NewView(result)}, nil
}

func (s *Server) handleListRules(ctx context.Context, req *mcp.CallToolRequest, _ ListRulesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolListRules).Debug("Tool invoked")

	rules := s.predictor.Rules()
	var b strings.Builder
	b.WriteString("## Risk factor rules\n")
	for _, r := range rules {
		fmt.Fprintf(&b, "- `%s`: %s %s %g → %s\n", r.Code, r.Field, r.Comparison, r.Threshold, r.Message)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
	}, ListRulesResult{Rules: rules}, nil
}

func (s *Server) handleGuidance(ctx context.Context, req *mcp.CallToolRequest, _ GuidanceParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolGuidance).Debug("Tool invoked")

	guidance := report.DefaultGuidance()
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: guidance.Markdown()}},
	}, guidance, nil
}

// createErrorResult reports a pipeline failure to the client as a tool error.
func (s *Server) createErrorResult(requestID string, err error) *mcp.CallToolResult {
	code := domain.ErrorCode(err)
	s.logger.WithError(err).WithFields(logrus.Fields{
		"request_id": requestID,
		"code":       code,
	}).Error("Tool failed")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s: %v (request %s)", code, err, requestID)},
		},
		IsError: true,
	}
}
