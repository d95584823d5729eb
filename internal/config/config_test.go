package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

func TestNewManager_Defaults(t *testing.T) {
	m, err := NewManagerWithFile("")
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, domain.ModelBackendONNX, cfg.Model.Backend)
	assert.Equal(t, "probabilities", cfg.Model.ONNX.ProbabilityName)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, uint32(5), cfg.Model.Remote.FailureThreshold)
	assert.Equal(t, domain.AuditDriverNone, cfg.Audit.Driver)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "diabetes-risk-mcp-server", cfg.MCP.ServerName)

	assert.NoError(t, m.Validate())
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
}

func TestNewManager_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DIABETES_RISK_SERVER_PORT", "9090")
	t.Setenv("DIABETES_RISK_MODEL_BACKEND", "remote")
	t.Setenv("DIABETES_RISK_MODEL_REMOTE_BASE_URL", "http://model:8000")
	t.Setenv("DIABETES_RISK_AUDIT_DRIVER", "sqlite")
	t.Setenv("DIABETES_RISK_LOGGING_LEVEL", "debug")
	t.Setenv("DIABETES_RISK_ENVIRONMENT", "production")

	m, err := NewManagerWithFile("")
	require.NoError(t, err)

	assert.Equal(t, 9090, m.GetServerConfig().Port)
	assert.Equal(t, domain.ModelBackendRemote, m.GetModelConfig().Backend)
	assert.Equal(t, "http://model:8000", m.GetModelConfig().Remote.BaseURL)
	assert.Equal(t, domain.AuditDriverSQLite, m.GetAuditConfig().Driver)
	assert.Equal(t, "debug", m.GetConfig().Logging.Level)
	assert.True(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestNewManagerWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 7000
model:
  backend: onnx
  path: /srv/models/xgb.onnx
  version: xgb-2
audit:
  driver: postgres
  postgres_url: postgres://localhost/risk
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := NewManagerWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, m.GetServerConfig().Port)
	assert.Equal(t, "/srv/models/xgb.onnx", m.GetModelConfig().Path)
	assert.Equal(t, "xgb-2", m.GetModelConfig().Version)
	assert.Equal(t, domain.AuditDriverPostgres, m.GetAuditConfig().Driver)
	assert.NoError(t, m.Validate())

	// Reload picks up file changes
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7001\n"), 0o644))
	require.NoError(t, m.Reload())
	assert.Equal(t, 7001, m.GetServerConfig().Port)
}

func TestNewManagerWithFile_Missing(t *testing.T) {
	_, err := NewManagerWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestManager_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *domain.Config)
		wantErr string
	}{
		{"Bad port", func(c *domain.Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"Unknown backend", func(c *domain.Config) { c.Model.Backend = "pickle" }, "unsupported model backend"},
		{"Missing model path", func(c *domain.Config) { c.Model.Path = "" }, "model path is required"},
		{"Missing remote URL", func(c *domain.Config) { c.Model.Backend = domain.ModelBackendRemote }, "model service URL is required"},
		{"Unknown audit driver", func(c *domain.Config) { c.Audit.Driver = "mysql" }, "unsupported audit driver"},
		{"Missing postgres URL", func(c *domain.Config) { c.Audit.Driver = domain.AuditDriverPostgres }, "postgres URL is required"},
		{"Bad log level", func(c *domain.Config) { c.Logging.Level = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManagerWithFile("")
			require.NoError(t, err)

			tt.modify(m.GetConfig())
			err = m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
