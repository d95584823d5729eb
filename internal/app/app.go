// Package app wires configuration, logging, the model, the audit store and the
// inference pipeline for the entrypoints.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-mcp-server/internal/audit"
	"github.com/diabetes-risk-mcp-server/internal/config"
	"github.com/diabetes-risk-mcp-server/internal/domain"
	"github.com/diabetes-risk-mcp-server/internal/logging"
	"github.com/diabetes-risk-mcp-server/internal/model"
	"github.com/diabetes-risk-mcp-server/internal/service"
)

// Options control bootstrap.
type Options struct {
	// ConfigFile overrides the config search paths when set.
	ConfigFile string
	// LogOutput receives log lines. Nil means stdout.
	LogOutput io.Writer
	// SkipAudit leaves the audit store closed, for commands that do not record.
	SkipAudit bool
}

// App holds the wired components.
type App struct {
	Config   *domain.Config
	Manager  domain.ConfigManager
	Logger   *logrus.Logger
	Model    *model.Handle
	Pipeline *service.InferencePipeline
	Audit    audit.Store
	Recorder *audit.Recorder
}

// LoadConfig reads .env files, then the config file and environment, and validates the result.
func LoadConfig(configFile string) (domain.ConfigManager, error) {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
	}

	manager, err := config.NewManagerWithFile(configFile)
	if err != nil {
		return nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return manager, nil
}

// New loads configuration and builds every component. The model is loaded
// eagerly; a missing artifact fails with ErrModelUnavailable.
func New(opts Options) (*App, error) {
	manager, err := LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg := manager.GetConfig()

	var logger *logrus.Logger
	if opts.LogOutput != nil {
		logger = logging.NewWithOutput(cfg.Logging, opts.LogOutput)
	} else {
		logger = logging.New(cfg.Logging)
	}
	if manager.IsDevelopment() {
		logger.SetReportCaller(true)
	}
	if manager.IsProduction() && allowsAnyOrigin(cfg.Server.AllowOrigins) {
		logger.Warn("CORS allows any origin in production; set server.allow_origins")
	}

	handle, err := model.New(*manager.GetModelConfig(), cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	if _, err := handle.Model(); err != nil {
		handle.Close()
		return nil, err
	}

	store := audit.Store(audit.NopStore{})
	if !opts.SkipAudit {
		store, err = audit.Open(cfg.Audit)
		if err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
	}

	adapter := service.NewClassifierAdapter(logger, handle)

	logger.WithFields(logrus.Fields{
		"environment":   cfg.Environment,
		"model_backend": cfg.Model.Backend,
		"model_version": handle.Version(),
		"audit_driver":  cfg.Audit.Driver,
	}).Info("Application initialized")

	return &App{
		Config:   cfg,
		Manager:  manager,
		Logger:   logger,
		Model:    handle,
		Pipeline: service.NewInferencePipeline(logger, adapter),
		Audit:    store,
		Recorder: audit.NewRecorder(store, logger),
	}, nil
}

// ReloadConfig re-reads the configuration and applies the new log level. Other
// settings take effect on the next restart.
func (a *App) ReloadConfig() error {
	if err := a.Manager.Reload(); err != nil {
		return err
	}
	if err := a.Manager.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg := a.Manager.GetConfig()
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	a.Logger.SetLevel(level)
	a.Logger.WithField("level", level.String()).Info("Configuration reloaded")
	return nil
}

// ReloadOnSignal calls ReloadConfig each time one of sigs arrives, until ctx is
// done. Reload failures are logged and the previous configuration stays.
func (a *App) ReloadOnSignal(ctx context.Context, sigs ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				if err := a.ReloadConfig(); err != nil {
					a.Logger.WithError(err).Error("Failed to reload configuration")
				}
			}
		}
	}()
}

func allowsAnyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// Close releases the model and the audit store.
func (a *App) Close() error {
	var errs []error
	if err := a.Model.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing model: %w", err))
	}
	if err := a.Audit.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing audit store: %w", err))
	}
	return errors.Join(errs...)
}
