package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// Open returns the store selected by cfg.Driver. The "none" driver yields a
// NopStore so callers never deal with a nil store.
func Open(cfg domain.AuditConfig) (Store, error) {
	switch cfg.Driver {
	case domain.AuditDriverNone, "":
		return NopStore{}, nil
	case domain.AuditDriverSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case domain.AuditDriverPostgres:
		return NewPostgresStoreFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported audit driver: %s", cfg.Driver)
	}
}

// NopStore discards every entry.
type NopStore struct{}

func (NopStore) Save(context.Context, *Entry) error { return nil }
func (NopStore) List(context.Context, int, int) ([]*Entry, error) { return []*Entry{}, nil }
func (NopStore) Count(context.Context) (int64, error) { return 0, nil }
func (NopStore) Ping(context.Context) error { return nil }
func (NopStore) Close() error { return nil }

// Recorder saves entries for served predictions. A failed save is logged and
// never fails the prediction it describes.
type Recorder struct {
	store  Store
	logger *logrus.Logger
}

// NewRecorder creates a new recorder
func NewRecorder(store Store, logger *logrus.Logger) *Recorder {
	if store == nil {
		store = NopStore{}
	}
	return &Recorder{store: store, logger: logger}
}

// Record saves an entry for r.
func (r *Recorder) Record(ctx context.Context, result *domain.PredictionResult, source Source) {
	entry := NewEntry(result, source)
	if err := r.store.Save(ctx, entry); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": result.RequestID,
			"source":     source,
		}).Warn("Failed to record prediction audit entry")
	}
}

// Store returns the underlying store.
func (r *Recorder) Store() Store {
	return r.store
}

func encodeExport(w io.Writer, export *Export) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}
