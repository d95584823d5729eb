// Package audit records which predictions were served. An entry holds the model
// outputs and fired rule codes only; patient measurements are never stored.
package audit

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// Source names the front-end that served a prediction.
type Source string

const (
	SourceHTTP  Source = "http"
	SourceMCP   Source = "mcp"
	SourceCLI   Source = "cli"
	SourceBatch Source = "batch"
)

// Entry is one served prediction.
type Entry struct {
	ID           string           `json:"id"`
	RequestID    string           `json:"request_id"`
	Label        int              `json:"label"`
	Probability  float64          `json:"probability"`
	RiskLevel    domain.RiskLevel `json:"risk_level"`
	RuleCodes    []string         `json:"rule_codes"`
	WarningCount int              `json:"warning_count"`
	ModelVersion string           `json:"model_version"`
	Source       Source           `json:"source"`
	CreatedAt    time.Time        `json:"created_at"`
}

// NewEntry builds an entry for a successful prediction.
func NewEntry(r *domain.PredictionResult, source Source) *Entry {
	codes := r.RuleCodes
	if codes == nil {
		codes = []string{}
	}
	return &Entry{
		ID:           uuid.New().String(),
		RequestID:    r.RequestID,
		Label:        r.ClassifierResult.Label,
		Probability:  r.ClassifierResult.Probability,
		RiskLevel:    r.RiskAssessment.Level,
		RuleCodes:    codes,
		WarningCount: len(r.Warnings),
		ModelVersion: r.ModelVersion,
		Source:       source,
		CreatedAt:    r.GeneratedAt,
	}
}

// Store defines the interface for audit storage operations.
type Store interface {
	// Save appends an entry. Entries are immutable once saved.
	Save(ctx context.Context, entry *Entry) error

	// List returns entries newest first with pagination.
	List(ctx context.Context, limit, offset int) ([]*Entry, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int64, error)

	// Ping checks that the backing database is reachable.
	Ping(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// Export is the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Entries    []*Entry  `json:"entries"`
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON writes every entry of the store to w.
func ExportJSON(ctx context.Context, store Store, w io.Writer) error {
	all, err := store.List(ctx, maxExportLimit, 0)
	if err != nil {
		return err
	}
	if all == nil {
		all = []*Entry{}
	}
	return encodeExport(w, &Export{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Entries:    all,
	})
}
