package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-mcp-server/internal/audit"
	"github.com/diabetes-risk-mcp-server/internal/domain"
	"github.com/diabetes-risk-mcp-server/internal/middleware"
	"github.com/diabetes-risk-mcp-server/internal/report"
	"github.com/diabetes-risk-mcp-server/internal/service"
)

// Audit listing bounds
const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// Predictor runs patient input through inference.
type Predictor interface {
	RunInput(ctx context.Context, in domain.PatientInput) (*domain.PredictionResult, error)
	Rules() []service.RiskRule
}

// ModelStatus reports the state of the loaded model.
type ModelStatus interface {
	Status() string
	Version() string
}

// PredictResponse is the body of a successful prediction.
type PredictResponse struct {
	Result *domain.PredictionResult `json:"result"`
	View   report.View              `json:"view"`
}

// AuditResponse is one page of the prediction audit log.
type AuditResponse struct {
	Entries []*audit.Entry `json:"entries"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// Handlers serves the HTTP routes.
type Handlers struct {
	logger    *logrus.Logger
	predictor Predictor
	model     ModelStatus
	recorder  *audit.Recorder
}

// NewHandlers creates the route handlers. recorder may be nil.
func NewHandlers(logger *logrus.Logger, predictor Predictor, model ModelStatus, recorder *audit.Recorder) *Handlers {
	if recorder == nil {
		recorder = audit.NewRecorder(nil, logger)
	}
	return &Handlers{logger: logger, predictor: predictor, model: model, recorder: recorder}
}

// Health reports model and audit store status.
func (h *Handlers) Health(c *gin.Context) {
	modelStatus := h.model.Status()

	auditStatus := "ok"
	if err := h.recorder.Store().Ping(c.Request.Context()); err != nil {
		h.logger.WithError(err).Warn("Audit store ping failed")
		auditStatus = "unavailable"
	}

	status, code := "healthy", http.StatusOK
	if modelStatus != "loaded" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	} else if auditStatus != "ok" {
		status = "degraded"
	}

	c.JSON(code, gin.H{
		"status":        status,
		"model":         modelStatus,
		"model_version": h.model.Version(),
		"audit":         auditStatus,
		"timestamp":     time.Now().UTC(),
	})
}

// Predict scores one patient.
func (h *Handlers) Predict(c *gin.Context) {
	requestID := c.GetString(middleware.RequestIDKey)

	var in domain.PatientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, domain.NewAPIError(
			domain.CodeInvalidInput, "Request body is not a valid patient record", err.Error(), requestID,
		))
		return
	}

	result, err := h.predictor.RunInput(c.Request.Context(), in)
	if err != nil {
		code := domain.ErrorCode(err)
		c.JSON(statusForCode(code), domain.NewAPIError(code, messageForCode(code), err.Error(), requestID))
		return
	}

	h.recorder.Record(c.Request.Context(), result, audit.SourceHTTP)
	c.JSON(http.StatusOK, PredictResponse{Result: result, View: report.NewView(result)})
}

// Rules lists the risk factor rules in evaluation order.
func (h *Handlers) Rules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rules": h.predictor.Rules()})
}

// Guidance returns the reference ranges and health tips.
func (h *Handlers) Guidance(c *gin.Context) {
	c.JSON(http.StatusOK, report.DefaultGuidance())
}

// ListAudit pages through the prediction audit log, newest first.
func (h *Handlers) ListAudit(c *gin.Context) {
	requestID := c.GetString(middleware.RequestIDKey)

	limit, err := queryInt(c, "limit", defaultAuditLimit)
	if err != nil || limit < 1 || limit > maxAuditLimit {
		c.JSON(http.StatusBadRequest, domain.NewAPIError(
			domain.CodeInvalidInput, "limit must be between 1 and 500", c.Query("limit"), requestID,
		))
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, domain.NewAPIError(
			domain.CodeInvalidInput, "offset must be zero or positive", c.Query("offset"), requestID,
		))
		return
	}

	store := h.recorder.Store()
	entries, err := store.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list audit entries")
		c.JSON(http.StatusInternalServerError, domain.NewAPIError(
			domain.CodeInternalServer, "Failed to read audit log", "", requestID,
		))
		return
	}
	total, err := store.Count(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to count audit entries")
		c.JSON(http.StatusInternalServerError, domain.NewAPIError(
			domain.CodeInternalServer, "Failed to read audit log", "", requestID,
		))
		return
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}

	c.JSON(http.StatusOK, AuditResponse{Entries: entries, Total: total, Limit: limit, Offset: offset})
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func statusForCode(code string) int {
	switch code {
	case domain.CodeInvalidInput:
		return http.StatusBadRequest
	case domain.CodeModelUnavailable:
		return http.StatusServiceUnavailable
	case domain.CodeInferenceFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageForCode(code string) string {
	switch code {
	case domain.CodeModelUnavailable:
		return "The prediction model is not available"
	case domain.CodeInferenceFailure:
		return "The prediction could not be computed"
	case domain.CodeInvalidInput:
		return "Invalid patient record"
	default:
		return "Internal server error"
	}
}
