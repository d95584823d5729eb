// Package model provides the external binary classifier behind the inference
// pipeline: a load-once handle plus the ONNX Runtime and remote HTTP backends.
package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// Loader builds a classifier. It is called at most once per Handle.
type Loader func() (domain.BinaryClassifier, error)

// Handle is the process-wide model handle. The model is loaded on the first call
// to Model and shared read-only afterwards. A failed load is sticky: the handle
// never retries and keeps reporting ModelUnavailable.
type Handle struct {
	logger  *logrus.Logger
	loader  Loader
	version string

	once   sync.Once
	model  domain.BinaryClassifier
	err    error
	loaded atomic.Bool
}

// NewHandle creates a handle that will load its model with the given loader
func NewHandle(logger *logrus.Logger, version string, loader Loader) *Handle {
	return &Handle{
		logger:  logger,
		loader:  loader,
		version: version,
	}
}

// Model returns the loaded classifier, loading it on first use.
func (h *Handle) Model() (domain.BinaryClassifier, error) {
	h.once.Do(h.load)
	return h.model, h.err
}

func (h *Handle) load() {
	model, err := h.loader()
	if err == nil && model == nil {
		err = errors.New("loader returned no model")
	}
	if err != nil {
		h.err = domain.NewClassifierError(domain.ErrModelUnavailable, "load", err)
		h.logger.WithError(err).WithField("model_version", h.version).Error("Failed to load model")
		return
	}

	h.model = model
	h.loaded.Store(true)
	h.logger.WithField("model_version", h.version).Info("Model loaded")
}

// Version returns the configured model version.
func (h *Handle) Version() string {
	return h.version
}

// Status reports "loaded" or "unavailable" without triggering a load.
func (h *Handle) Status() string {
	if h.Loaded() {
		return "loaded"
	}
	return "unavailable"
}

// Loaded reports whether a load has already completed successfully.
func (h *Handle) Loaded() bool {
	return h.loaded.Load()
}

// Close releases the model if it holds native resources.
func (h *Handle) Close() error {
	if !h.Loaded() {
		return nil
	}
	if closer, ok := h.model.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// New builds a handle for the configured backend. The model is not loaded until
// the first call to Model.
func New(cfg domain.ModelConfig, cacheCfg domain.CacheConfig, logger *logrus.Logger) (*Handle, error) {
	switch cfg.Backend {
	case domain.ModelBackendONNX, "":
		return NewHandle(logger, cfg.Version, func() (domain.BinaryClassifier, error) {
			return NewONNXModel(cfg, logger)
		}), nil
	case domain.ModelBackendRemote:
		return NewHandle(logger, cfg.Version, func() (domain.BinaryClassifier, error) {
			cache, err := NewResponseCache(context.Background(), cacheCfg, logger)
			if err != nil {
				return nil, err
			}
			return NewRemoteModel(cfg.Remote, cache, logger), nil
		}), nil
	default:
		return nil, fmt.Errorf("unsupported model backend: %s", cfg.Backend)
	}
}
