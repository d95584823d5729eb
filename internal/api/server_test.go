package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/diabetes-risk-mcp-server/internal/audit"
	"github.com/diabetes-risk-mcp-server/internal/domain"
	"github.com/diabetes-risk-mcp-server/internal/service"
)

// MockPredictor is a mock implementation of the Predictor interface
type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) RunInput(ctx context.Context, in domain.PatientInput) (*domain.PredictionResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PredictionResult), args.Error(1)
}

func (m *MockPredictor) Rules() []service.RiskRule {
	return service.NewExplanationEngine(logrus.New()).Rules()
}

type stubModel struct {
	status string
}

func (s stubModel) Status() string  { return s.status }
func (s stubModel) Version() string { return "xgb-test" }

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

func newTestServer(t *testing.T, predictor Predictor, status string) (*Server, audit.Store) {
	t.Helper()
	store, err := audit.NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := newTestLogger()
	cfg := domain.ServerConfig{Host: "127.0.0.1", Port: 0, WriteTimeout: 5 * time.Second, AllowOrigins: []string{"*"}}
	return NewServer(cfg, logger, predictor, stubModel{status: status}, audit.NewRecorder(store, logger)), store
}

func sampleResult() *domain.PredictionResult {
	return &domain.PredictionResult{
		RequestID:        "req-1",
		ClassifierResult: domain.ClassifierResult{Label: 1, Probability: 0.72},
		RiskAssessment:   domain.RiskAssessment{Level: domain.HIGH_RISK, Probability: 0.72},
		Explanations:     []string{"high blood glucose"},
		RuleCodes:        []string{service.RuleHighGlucose},
		ModelVersion:     "xgb-test",
		Disclaimer:       domain.Disclaimer,
		GeneratedAt:      time.Now().UTC(),
	}
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	t.Run("Loaded", func(t *testing.T) {
		s, _ := newTestServer(t, new(MockPredictor), "loaded")
		w := doRequest(s, http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "loaded", body["model"])
		assert.Equal(t, "xgb-test", body["model_version"])
		assert.Equal(t, "ok", body["audit"])
	})

	t.Run("Unavailable", func(t *testing.T) {
		s, _ := newTestServer(t, new(MockPredictor), "unavailable")
		w := doRequest(s, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestPredict(t *testing.T) {
	predictor := new(MockPredictor)
	s, store := newTestServer(t, predictor, "loaded")

	predictor.On("RunInput", mock.Anything, mock.MatchedBy(func(in domain.PatientInput) bool {
		return in.Glucose == 150 && in.SkinThickness == nil
	})).Return(sampleResult(), nil)

	body := []byte(`{"pregnancies":2,"glucose":150,"blood_pressure":72,"bmi":31.5,"age":50}`)
	w := doRequest(s, http.MethodPost, "/api/v1/predict", body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp PredictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.HIGH_RISK, resp.Result.RiskAssessment.Level)
	assert.Equal(t, "72.00%", resp.View.ProbabilityText)
	assert.Equal(t, domain.Disclaimer, resp.View.Disclaimer)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPredict_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"ModelUnavailable", domain.NewClassifierError(domain.ErrModelUnavailable, "load", errors.New("missing")), http.StatusServiceUnavailable, domain.CodeModelUnavailable},
		{"InferenceFailure", domain.NewClassifierError(domain.ErrInferenceFailure, "predict", errors.New("boom")), http.StatusBadGateway, domain.CodeInferenceFailure},
		{"Unknown", errors.New("unexpected"), http.StatusInternalServerError, domain.CodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			predictor := new(MockPredictor)
			predictor.On("RunInput", mock.Anything, mock.Anything).Return(nil, tt.err)
			s, store := newTestServer(t, predictor, "loaded")

			w := doRequest(s, http.MethodPost, "/api/v1/predict", []byte(`{"glucose":100,"bmi":25,"age":30}`))
			assert.Equal(t, tt.wantStatus, w.Code)

			var apiErr domain.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, w.Header().Get("X-Request-ID"), apiErr.RequestID)

			count, err := store.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count, "failed predictions are not audited")
		})
	}
}

func TestPredict_BadBody(t *testing.T) {
	predictor := new(MockPredictor)
	s, _ := newTestServer(t, predictor, "loaded")

	w := doRequest(s, http.MethodPost, "/api/v1/predict", []byte(`{"glucose":"high"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.CodeInvalidInput)
	predictor.AssertNotCalled(t, "RunInput", mock.Anything, mock.Anything)
}

func TestRulesAndGuidance(t *testing.T) {
	s, _ := newTestServer(t, new(MockPredictor), "loaded")

	w := doRequest(s, http.MethodGet, "/api/v1/rules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rules struct {
		Rules []service.RiskRule `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rules))
	require.Len(t, rules.Rules, 6)
	assert.Equal(t, service.RuleHighGlucose, rules.Rules[0].Code)

	w = doRequest(s, http.MethodGet, "/api/v1/guidance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Exercise regularly")
}

func TestListAudit(t *testing.T) {
	s, store := newTestServer(t, new(MockPredictor), "loaded")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		entry := audit.NewEntry(sampleResult(), audit.SourceHTTP)
		entry.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Save(ctx, entry))
	}

	w := doRequest(s, http.MethodGet, "/api/v1/audit?limit=2&offset=0", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AuditResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Entries, 2)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 2, resp.Limit)

	for _, query := range []string{"limit=0", "limit=abc", "limit=501", "offset=-1"} {
		w := doRequest(s, http.MethodGet, "/api/v1/audit?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, new(MockPredictor), "loaded")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/predict", nil)
	req.Header.Set("Origin", "http://client.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStart_Shutdown(t *testing.T) {
	s, _ := newTestServer(t, new(MockPredictor), "loaded")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
