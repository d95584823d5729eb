package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. DIABETES_RISK_MODEL_PATH.
const EnvPrefix = "DIABETES_RISK"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManagerWithFile loads configuration from an explicit file instead of the
// search paths. An empty path falls back to the search paths.
func NewManagerWithFile(path string) (*Manager, error) {
	m := &Manager{configFile: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		if _, err := os.Stat(m.configFile); err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/diabetes-risk/")
	}

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values. Every key is listed so that
// AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.allow_origins", []string{"*"})

	// Model defaults
	v.SetDefault("model.backend", domain.ModelBackendONNX)
	v.SetDefault("model.version", "xgb-diabetes-medical")
	v.SetDefault("model.path", "./models/xgb_diabetes_medical.onnx")
	v.SetDefault("model.ort_library", "")
	v.SetDefault("model.onnx.input_name", "input")
	v.SetDefault("model.onnx.label_output", "label")
	v.SetDefault("model.onnx.probability_output", "probabilities")
	v.SetDefault("model.remote.base_url", "")
	v.SetDefault("model.remote.api_key", "")
	v.SetDefault("model.remote.timeout", "10s")
	v.SetDefault("model.remote.rate_limit", 20)
	v.SetDefault("model.remote.breaker_max_requests", 3)
	v.SetDefault("model.remote.breaker_interval", "30s")
	v.SetDefault("model.remote.breaker_timeout", "60s")
	v.SetDefault("model.remote.breaker_failure_threshold", 5)

	// Cache defaults
	v.SetDefault("cache.max_items", 1000)
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.redis_url", "")

	// Audit defaults
	v.SetDefault("audit.driver", domain.AuditDriverNone)
	v.SetDefault("audit.sqlite_path", "./data/audit.db")
	v.SetDefault("audit.postgres_url", "")
	v.SetDefault("audit.migrations_path", "./migrations")
	v.SetDefault("audit.max_open_conns", 10)
	v.SetDefault("audit.max_idle_conns", 2)
	v.SetDefault("audit.conn_max_lifetime", "5m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// MCP defaults
	v.SetDefault("mcp.server_name", "diabetes-risk-mcp-server")
	v.SetDefault("mcp.server_version", "1.0.0")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetModelConfig returns model configuration
func (m *Manager) GetModelConfig() *domain.ModelConfig {
	return &m.config.Model
}

// GetAuditConfig returns audit configuration
func (m *Manager) GetAuditConfig() *domain.AuditConfig {
	return &m.config.Audit
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate model configuration
	switch config.Model.Backend {
	case domain.ModelBackendONNX:
		if config.Model.Path == "" {
			return fmt.Errorf("model path is required for the onnx backend")
		}
	case domain.ModelBackendRemote:
		if config.Model.Remote.BaseURL == "" {
			return fmt.Errorf("model service URL is required for the remote backend")
		}
	default:
		return fmt.Errorf("unsupported model backend: %s", config.Model.Backend)
	}

	// Validate audit configuration
	switch config.Audit.Driver {
	case domain.AuditDriverNone:
	case domain.AuditDriverSQLite:
		if config.Audit.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite audit driver")
		}
	case domain.AuditDriverPostgres:
		if config.Audit.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for the postgres audit driver")
		}
	default:
		return fmt.Errorf("unsupported audit driver: %s", config.Audit.Driver)
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}

// compile-time check
var _ domain.ConfigManager = (*Manager)(nil)
