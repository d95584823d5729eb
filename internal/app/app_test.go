package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diabetes-risk-mcp-server/internal/audit"
	"github.com/diabetes-risk-mcp-server/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNew_RemoteBackend(t *testing.T) {
	modelService := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"label": 1, "probability": 0.64})
	}))
	defer modelService.Close()

	dbPath := filepath.Join(t.TempDir(), "audit.db")
	path := writeConfig(t, `
model:
  backend: remote
  version: remote-test
  remote:
    base_url: `+modelService.URL+`
audit:
  driver: sqlite
  sqlite_path: `+dbPath+`
logging:
  level: error
`)

	a, err := New(Options{ConfigFile: path, LogOutput: io.Discard})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "loaded", a.Model.Status())
	assert.IsType(t, &audit.SQLiteStore{}, a.Audit)

	ctx := context.Background()
	result, err := a.Pipeline.Run(ctx, domain.PatientRecord{Glucose: 150, BloodPressure: 80, BMI: 31, Age: 50})
	require.NoError(t, err)
	assert.Equal(t, domain.HIGH_RISK, result.RiskAssessment.Level)
	assert.Equal(t, "remote-test", result.ModelVersion)

	a.Recorder.Record(ctx, result, audit.SourceCLI)
	count, err := a.Audit.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNew_MissingModel(t *testing.T) {
	path := writeConfig(t, `
model:
  backend: onnx
  path: `+filepath.Join(t.TempDir(), "missing.onnx")+`
`)

	_, err := New(Options{ConfigFile: path, LogOutput: io.Discard})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrModelUnavailable))
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, `
audit:
  driver: mongo
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported audit driver")
}

func TestNew_SkipAudit(t *testing.T) {
	modelService := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"label":0,"probability":0.1}`))
	}))
	defer modelService.Close()

	path := writeConfig(t, `
model:
  backend: remote
  remote:
    base_url: `+modelService.URL+`
audit:
  driver: sqlite
  sqlite_path: `+filepath.Join(t.TempDir(), "never.db")+`
`)

	a, err := New(Options{ConfigFile: path, LogOutput: io.Discard, SkipAudit: true})
	require.NoError(t, err)
	defer a.Close()
	assert.IsType(t, audit.NopStore{}, a.Audit)
}

func remoteConfig(t *testing.T, serviceURL, environment, level string) string {
	t.Helper()
	return writeConfig(t, `
environment: `+environment+`
model:
  backend: remote
  remote:
    base_url: `+serviceURL+`
logging:
  level: `+level+`
`)
}

func TestNew_Environment(t *testing.T) {
	modelService := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"label":0,"probability":0.1}`))
	}))
	defer modelService.Close()

	t.Run("Development", func(t *testing.T) {
		a, err := New(Options{ConfigFile: remoteConfig(t, modelService.URL, "development", "error"), LogOutput: io.Discard, SkipAudit: true})
		require.NoError(t, err)
		defer a.Close()
		assert.True(t, a.Logger.ReportCaller)
		assert.True(t, a.Manager.IsDevelopment())
	})

	t.Run("Production_Wildcard_CORS", func(t *testing.T) {
		var logs bytes.Buffer
		a, err := New(Options{ConfigFile: remoteConfig(t, modelService.URL, "production", "warn"), LogOutput: &logs, SkipAudit: true})
		require.NoError(t, err)
		defer a.Close()
		assert.False(t, a.Logger.ReportCaller)
		assert.True(t, a.Manager.IsProduction())
		assert.Contains(t, logs.String(), "CORS allows any origin in production")
	})
}

func TestApp_ReloadConfig(t *testing.T) {
	modelService := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"label":0,"probability":0.1}`))
	}))
	defer modelService.Close()

	path := remoteConfig(t, modelService.URL, "test", "error")
	a, err := New(Options{ConfigFile: path, LogOutput: io.Discard, SkipAudit: true})
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, logrus.ErrorLevel, a.Logger.GetLevel())

	rewrite := func(level string) {
		require.NoError(t, os.WriteFile(path, []byte(`
environment: test
model:
  backend: remote
  remote:
    base_url: `+modelService.URL+`
logging:
  level: `+level+`
`), 0o600))
	}

	rewrite("debug")
	require.NoError(t, a.ReloadConfig())
	assert.Equal(t, logrus.DebugLevel, a.Logger.GetLevel())

	// An invalid file is rejected and the level stays
	rewrite("loud")
	assert.Error(t, a.ReloadConfig())
	assert.Equal(t, logrus.DebugLevel, a.Logger.GetLevel())

	t.Run("On_Signal", func(t *testing.T) {
		rewrite("warn")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a.ReloadOnSignal(ctx, syscall.SIGHUP)
		require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGHUP))
		assert.Eventually(t, func() bool {
			return a.Logger.GetLevel() == logrus.WarnLevel
		}, 2*time.Second, 10*time.Millisecond)
	})
}
