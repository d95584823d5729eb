package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-mcp-server/internal/audit"
	"github.com/diabetes-risk-mcp-server/internal/domain"
	"github.com/diabetes-risk-mcp-server/internal/service"
)

// Tool names
const (
	ToolPredictRisk = "predict_diabetes_risk"
	ToolListRules   = "list_risk_rules"
	ToolGuidance    = "get_health_guidance"
)

// Predictor runs patient input through inference.
type Predictor interface {
	RunInput(ctx context.Context, in domain.PatientInput) (*domain.PredictionResult, error)
	Rules() []service.RiskRule
}

// Server exposes the inference pipeline as MCP tools.
type Server struct {
	logger    *logrus.Logger
	predictor Predictor
	recorder  *audit.Recorder
	mcpServer *mcp.Server
}

// NewServer creates a new MCP server instance with all tools registered.
// recorder may be nil.
func NewServer(cfg domain.MCPConfig, logger *logrus.Logger, predictor Predictor, recorder *audit.Recorder) *Server {
	if recorder == nil {
		recorder = audit.NewRecorder(nil, logger)
	}

	name, version := cfg.ServerName, cfg.ServerVersion
	if name == "" {
		name = "diabetes-risk-mcp-server"
	}
	if version == "" {
		version = "v0.1.0"
	}

	s := &Server{
		logger:    logger,
		predictor: predictor,
		recorder:  recorder,
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolPredictRisk,
		Description: "Estimate diabetes risk from eight clinical measurements. Returns the risk level, probability, contributing factors and input warnings. Not a medical diagnosis.",
	}, s.handlePredictRisk)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListRules,
		Description: "List the threshold rules used to explain which measurements contribute to risk.",
	}, s.handleListRules)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolGuidance,
		Description: "Return normal reference ranges and general tips for reducing diabetes risk.",
	}, s.handleGuidance)

	s.logger.WithField("tool_count", 3).Info("Registered MCP tools")
}

// Run serves the tools over transport until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("Starting MCP server")
	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// RunStdio serves the tools over stdin/stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}
