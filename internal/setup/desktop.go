// Package setup registers the MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/diabetes-risk-mcp-server/internal/config"
)

// ServerName is the key of our entry in the client's mcpServers map.
const ServerName = "diabetes-risk"

// BinaryName is the MCP stdio server executable.
const BinaryName = "mcp-server"

// ClientConfig is the desktop client's configuration file. Keys other than
// mcpServers are preserved on save.
type ClientConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
	extra      map[string]json.RawMessage
}

// ServerEntry describes how the client launches one MCP server.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options control registration.
type Options struct {
	BinaryPath string // empty searches PATH and common locations
	ConfigFile string // passed to the server as --config
	ModelPath  string // exported as DIABETES_RISK_MODEL_PATH
}

// DefaultClientConfigPath returns the desktop client's config path for this OS.
func DefaultClientConfigPath() (string, error) {
	var dir string
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "Claude")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			dir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
	return filepath.Join(dir, "claude_desktop_config.json"), nil
}

// Load reads the client config. A missing file yields an empty config.
func Load(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{MCPServers: map[string]ServerEntry{}, extra: map[string]json.RawMessage{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read client config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.extra); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	if raw, ok := cfg.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.extra, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]ServerEntry{}
	}
	return cfg, nil
}

// Save writes the client config, creating its directory if needed.
func Save(path string, cfg *ClientConfig) error {
	out := make(map[string]interface{}, len(cfg.extra)+1)
	for k, v := range cfg.extra {
		out[k] = v
	}
	out["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal client config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write client config: %w", err)
	}
	return nil
}

// Register adds or replaces our server entry in the client config at path.
func Register(path string, opts Options) (ServerEntry, error) {
	binary := opts.BinaryPath
	if binary == "" {
		found, err := FindBinary()
		if err != nil {
			return ServerEntry{}, err
		}
		binary = found
	}

	entry := ServerEntry{Command: binary}
	if opts.ConfigFile != "" {
		abs, err := filepath.Abs(opts.ConfigFile)
		if err != nil {
			return ServerEntry{}, err
		}
		entry.Args = []string{"--config", abs}
	}
	if opts.ModelPath != "" {
		abs, err := filepath.Abs(opts.ModelPath)
		if err != nil {
			return ServerEntry{}, err
		}
		entry.Env = map[string]string{config.EnvPrefix + "_MODEL_PATH": abs}
	}

	cfg, err := Load(path)
	if err != nil {
		return ServerEntry{}, err
	}
	cfg.MCPServers[ServerName] = entry
	if err := Save(path, cfg); err != nil {
		return ServerEntry{}, err
	}
	return entry, nil
}

// Check lists problems with the registered entry. An empty result means the
// client can launch the server.
func Check(path string) []string {
	cfg, err := Load(path)
	if err != nil {
		return []string{err.Error()}
	}
	entry, ok := cfg.MCPServers[ServerName]
	if !ok {
		return []string{fmt.Sprintf("%s is not registered in %s", ServerName, path)}
	}

	var issues []string
	info, err := os.Stat(entry.Command)
	switch {
	case err != nil:
		issues = append(issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	case runtime.GOOS != "windows" && info.Mode()&0o111 == 0:
		issues = append(issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
	}
	if model, ok := entry.Env[config.EnvPrefix+"_MODEL_PATH"]; ok {
		if _, err := os.Stat(model); err != nil {
			issues = append(issues, fmt.Sprintf("model artifact not found: %s", model))
		}
	}
	return issues
}

// FindBinary looks for the MCP server on PATH, then in common build locations.
func FindBinary() (string, error) {
	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	locations := []string{
		"./" + BinaryName,
		"./bin/" + BinaryName,
		filepath.Join(home, ".local", "bin", BinaryName),
		"/usr/local/bin/" + BinaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return filepath.Abs(loc)
		}
	}
	return "", fmt.Errorf("binary %q not found on PATH or in common locations", BinaryName)
}
