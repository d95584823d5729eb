package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string        `mapstructure:"environment"`
	Server      ServerConfig  `mapstructure:"server"`
	Model       ModelConfig   `mapstructure:"model"`
	Cache       CacheConfig   `mapstructure:"cache"`
	Audit       AuditConfig   `mapstructure:"audit"`
	Logging     LoggingConfig `mapstructure:"logging"`
	MCP         MCPConfig     `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
}

// Model backends
const (
	ModelBackendONNX   = "onnx"
	ModelBackendRemote = "remote"
)

// ModelConfig selects and configures the external classifier
type ModelConfig struct {
	Backend    string            `mapstructure:"backend"` // "onnx", "remote"
	Version    string            `mapstructure:"version"`
	Path       string            `mapstructure:"path"`        // ONNX artifact
	ORTLibrary string            `mapstructure:"ort_library"` // onnxruntime shared library
	Remote     RemoteModelConfig `mapstructure:"remote"`
	ONNX       ONNXTensorConfig  `mapstructure:"onnx"`
}

// ONNXTensorConfig names the graph inputs and outputs of an exported XGBoost model
type ONNXTensorConfig struct {
	InputName       string `mapstructure:"input_name"`
	LabelOutput     string `mapstructure:"label_output"`
	ProbabilityName string `mapstructure:"probability_output"`
}

// RemoteModelConfig represents the HTTP model service configuration
type RemoteModelConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
	RateLimit        int           `mapstructure:"rate_limit"` // requests per second
	MaxRequests      uint32        `mapstructure:"breaker_max_requests"`
	BreakerInterval  time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout   time.Duration `mapstructure:"breaker_timeout"`
	FailureThreshold uint32        `mapstructure:"breaker_failure_threshold"`
}

// CacheConfig represents remote-model response cache configuration
type CacheConfig struct {
	MaxItems int           `mapstructure:"max_items"`
	TTL      time.Duration `mapstructure:"ttl"`
	RedisURL string        `mapstructure:"redis_url"`
}

// Audit drivers
const (
	AuditDriverNone     = "none"
	AuditDriverSQLite   = "sqlite"
	AuditDriverPostgres = "postgres"
)

// AuditConfig represents prediction audit log configuration
type AuditConfig struct {
	Driver         string        `mapstructure:"driver"` // "none", "sqlite", "postgres"
	SQLitePath     string        `mapstructure:"sqlite_path"`
	PostgresURL    string        `mapstructure:"postgres_url"`
	MigrationsPath string        `mapstructure:"migrations_path"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	ConnMaxLife    time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}
